// Package extract converts uploaded report documents into normalized plain
// text. The declared filename selects the decoder; format-specific parsing
// leans on existing libraries where the format warrants it.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat indicates the file extension is not one of the
// supported document types.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractionError wraps a format-library failure with the offending filename.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract text from %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Text extracts normalized plain text from raw document bytes. The filename
// is used only for its extension, case-insensitively. Supported: .pdf, .docx,
// .doc, .txt, .md.
func Text(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var raw string
	var err error
	switch ext {
	case ".pdf":
		raw, err = pdfText(data)
	case ".docx", ".doc":
		raw, err = docxText(data)
	case ".txt", ".md":
		raw = string(bytes.ToValidUTF8(data, nil))
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", &ExtractionError{Filename: filename, Err: err}
	}

	return Normalize(raw), nil
}

var (
	runsOfBlank    = regexp.MustCompile(`[ \t]+`)
	newlineCluster = regexp.MustCompile(`\s*\n\s*`)
)

// Normalize collapses runs of spaces and tabs to a single space, collapses
// whitespace around newlines to a single newline, and trims the result. It is
// a pure function and idempotent.
func Normalize(text string) string {
	cleaned := runsOfBlank.ReplaceAllString(text, " ")
	cleaned = newlineCluster.ReplaceAllString(cleaned, "\n")
	return strings.TrimSpace(cleaned)
}

// pdfText concatenates per-page text with newlines. Pages whose text cannot
// be read contribute an empty string rather than failing the whole document.
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

// docxText walks word/document.xml and concatenates paragraph texts with
// newlines. A DOCX container is a zip archive; paragraph text lives in w:t
// runs inside w:p elements.
func docxText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx container: %w", err)
	}

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", errors.New("docx container has no word/document.xml")
	}

	handle, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("docx document part: %w", err)
	}
	defer handle.Close()

	content, err := io.ReadAll(handle)
	if err != nil {
		return "", fmt.Errorf("docx document part: %w", err)
	}

	return paragraphText(content)
}

func paragraphText(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	var out strings.Builder
	var paragraph strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx xml: %w", err)
		}

		switch element := token.(type) {
		case xml.StartElement:
			if element.Name.Local == "t" {
				var text string
				if err := decoder.DecodeElement(&text, &element); err != nil {
					return "", fmt.Errorf("docx xml: %w", err)
				}
				paragraph.WriteString(text)
			}
		case xml.EndElement:
			if element.Name.Local == "p" {
				out.WriteString(paragraph.String())
				out.WriteString("\n")
				paragraph.Reset()
			}
		}
	}
	if paragraph.Len() > 0 {
		out.WriteString(paragraph.String())
	}

	return out.String(), nil
}
