package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	input := "  Report\t\ttitle \n\n\n   indented line\t \n trailing  "
	want := "Report title\nindented line\ntrailing"
	require.Equal(t, want, Normalize(input))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	input := "a  b\t c \n\n d\n"
	once := Normalize(input)
	require.Equal(t, once, Normalize(once))
}

func TestNormalizeEmpty(t *testing.T) {
	require.Equal(t, "", Normalize("   \n\t  "))
}

func TestTextPlainFile(t *testing.T) {
	text, err := Text([]byte("hello   world\n\nsecond  line"), "report.txt")
	require.NoError(t, err)
	require.Equal(t, "hello world\nsecond line", text)
}

func TestTextMarkdownUsesPlainDecoder(t *testing.T) {
	text, err := Text([]byte("# Title\n\nbody"), "README.md")
	require.NoError(t, err)
	require.Equal(t, "# Title\nbody", text)
}

func TestTextDropsInvalidUTF8(t *testing.T) {
	text, err := Text([]byte{'o', 'k', 0xff, 0xfe, '!'}, "notes.txt")
	require.NoError(t, err)
	require.Equal(t, "ok!", text)
}

func TestTextUnsupportedExtension(t *testing.T) {
	_, err := Text([]byte("data"), "archive.tar.gz")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Text([]byte("data"), "noextension")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestTextExtensionIsCaseInsensitive(t *testing.T) {
	text, err := Text([]byte("upper case extension"), "REPORT.TXT")
	require.NoError(t, err)
	require.Equal(t, "upper case extension", text)
}

func TestTextDocxParagraphs(t *testing.T) {
	document := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`

	text, err := Text(buildDocx(t, document), "report.docx")
	require.NoError(t, err)
	require.Equal(t, "First paragraph\nSecond paragraph", text)
}

func TestTextDocxWithoutDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = Text(buf.Bytes(), "report.docx")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	require.Equal(t, "report.docx", extractionErr.Filename)
}

func TestTextGarbagePDF(t *testing.T) {
	_, err := Text([]byte("this is not a pdf"), "report.pdf")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	require.Equal(t, "report.pdf", extractionErr.Filename)
	require.False(t, errors.Is(err, ErrUnsupportedFormat))
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return buf.Bytes()
}
