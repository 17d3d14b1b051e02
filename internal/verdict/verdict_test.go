package verdict

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const okReply = `{
	"status": "ok",
	"feedback": "solid work",
	"missing": [],
	"questions": [{"q": "why?", "a": "because"}]
}`

func TestParseInitialBareJSON(t *testing.T) {
	v, err := ParseInitial(okReply)
	require.NoError(t, err)
	require.True(t, v.Accepted())
	require.Equal(t, "solid work", v.Feedback)
	require.Len(t, v.Questions, 1)
	require.Equal(t, "why?", v.Questions[0].Q)
	require.Equal(t, "because", v.Questions[0].A)
}

func TestParseInitialFencedEqualsBare(t *testing.T) {
	bare, err := ParseInitial(okReply)
	require.NoError(t, err)

	fenced, err := ParseInitial("Sure, here is the verdict:\n```json\n" + okReply + "\n```\nLet me know if you need more.")
	require.NoError(t, err)
	require.Equal(t, bare, fenced)

	unlabeled, err := ParseInitial("```\n" + okReply + "\n```")
	require.NoError(t, err)
	require.Equal(t, bare, unlabeled)
}

func TestParseInitialStripsJSONLabel(t *testing.T) {
	v, err := ParseInitial("json\n" + okReply)
	require.NoError(t, err)
	require.True(t, v.Accepted())
}

func TestParseInitialNeedsFix(t *testing.T) {
	v, err := ParseInitial(`{
		"status": "needs_fix",
		"feedback": "sections are missing",
		"missing": ["no conclusions"]
	}`)
	require.NoError(t, err)
	require.False(t, v.Accepted())
	require.Equal(t, []string{"no conclusions"}, v.Missing)
}

func TestParseInitialDefaultsMissingToEmptyList(t *testing.T) {
	v, err := ParseInitial(`{
		"status": "ok",
		"feedback": "fine",
		"questions": [{"q": "why?", "a": "because"}]
	}`)
	require.NoError(t, err)
	require.NotNil(t, v.Missing)
	require.Empty(t, v.Missing)
}

func TestParseInitialRejectsProse(t *testing.T) {
	_, err := ParseInitial("The submission looks good to me overall.")
	require.ErrorIs(t, err, ErrMalformedReply)
}

func TestParseInitialRejectsOKWithoutQuestions(t *testing.T) {
	_, err := ParseInitial(`{"status": "ok", "feedback": "fine"}`)
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestParseInitialRejectsUnknownStatus(t *testing.T) {
	_, err := ParseInitial(`{"status": "maybe", "feedback": "hmm"}`)
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestParseRevisionFixedRequiresQuestions(t *testing.T) {
	_, err := ParseRevision(`{"fixed": true, "feedback": "all good"}`)
	require.ErrorIs(t, err, ErrSchemaViolation)

	v, err := ParseRevision(`{
		"fixed": true,
		"feedback": "all good",
		"questions": [{"q": "what changed?", "a": "added conclusions"}]
	}`)
	require.NoError(t, err)
	require.True(t, v.Fixed)
	require.Len(t, v.Questions, 1)
}

func TestParseRevisionNotFixed(t *testing.T) {
	v, err := ParseRevision("```json\n" + `{
		"fixed": false,
		"feedback": "still incomplete",
		"missing": ["no conclusions"]
	}` + "\n```")
	require.NoError(t, err)
	require.False(t, v.Fixed)
	require.Equal(t, []string{"no conclusions"}, v.Missing)
}

func TestParseErrorCarriesSnippet(t *testing.T) {
	_, err := ParseInitial("{not json at all")
	require.ErrorIs(t, err, ErrMalformedReply)
	require.Contains(t, err.Error(), "{not json at all")
}

func TestExtractJSONLeavesPlainObjectAlone(t *testing.T) {
	require.Equal(t, `{"a":1}`, ExtractJSON("  {\"a\":1}  "))
}
