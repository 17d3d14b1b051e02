// Package verdict extracts structured judge verdicts from raw language-model
// replies. Replies are expected to contain a single JSON object, possibly
// wrapped in a markdown code fence and surrounded by extraneous prose.
package verdict

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedReply indicates the judge reply did not contain parseable JSON.
var ErrMalformedReply = errors.New("malformed judge reply")

// ErrSchemaViolation indicates the parsed verdict is missing fields required
// for its branch, which is a contract violation on the judge side.
var ErrSchemaViolation = errors.New("verdict violates contract")

// Statuses the judge may return for an initial check.
const (
	StatusOK       = "ok"
	StatusNeedsFix = "needs_fix"
)

// Question is a single quiz entry generated by the judge. The wire keys are
// deliberately terse; they are part of the judge prompt contract.
type Question struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// Initial is the verdict returned for a first submission check.
type Initial struct {
	Status    string     `json:"status"`
	Feedback  string     `json:"feedback"`
	Missing   []string   `json:"missing"`
	Questions []Question `json:"questions"`
}

// Accepted reports whether the submission passed the initial check.
func (v Initial) Accepted() bool {
	return v.Status == StatusOK
}

// Revision is the verdict returned when a corrected submission is re-checked.
type Revision struct {
	Fixed     bool       `json:"fixed"`
	Missing   []string   `json:"missing"`
	Feedback  string     `json:"feedback"`
	Questions []Question `json:"questions"`
}

var (
	fencePattern = regexp.MustCompile("```(?:json)?\\s*\\n([\\s\\S]*?)```")
	labelPattern = regexp.MustCompile(`(?i)^json\s*`)
)

// ExtractJSON locates the JSON payload inside a raw judge reply, stripping an
// optional markdown fence and a leading bare "json" label.
func ExtractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if match := fencePattern.FindStringSubmatch(text); match != nil {
		text = strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(labelPattern.ReplaceAllString(text, ""))
}

// ParseInitial parses and validates an initial-check verdict.
func ParseInitial(raw string) (Initial, error) {
	text := ExtractJSON(raw)

	if err := validateInitial(text); err != nil {
		return Initial{}, err
	}

	var v Initial
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Initial{}, parseError(text, err)
	}
	if v.Missing == nil {
		v.Missing = []string{}
	}
	return v, nil
}

// ParseRevision parses and validates a revision-check verdict.
func ParseRevision(raw string) (Revision, error) {
	text := ExtractJSON(raw)

	if err := validateRevision(text); err != nil {
		return Revision{}, err
	}

	var v Revision
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Revision{}, parseError(text, err)
	}
	if v.Missing == nil {
		v.Missing = []string{}
	}
	return v, nil
}

func parseError(text string, err error) error {
	return fmt.Errorf("%w: %v (reply: %s)", ErrMalformedReply, err, snippet(text))
}

func snippet(text string) string {
	const max = 200
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
