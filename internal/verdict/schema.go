package verdict

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// The judge wire contract, enforced before unmarshalling. A verdict that
// passes JSON parsing but misses fields required for its branch (for example
// status "ok" without questions) is a data-integrity failure, not something
// to silently default. The absent-missing case is the one sanctioned default:
// it collapses to an empty list.
const initialSchema = `{
  "type": "object",
  "required": ["status", "feedback"],
  "properties": {
    "status": {"enum": ["ok", "needs_fix"]},
    "feedback": {"type": "string"},
    "missing": {"type": "array", "items": {"type": "string"}},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["q", "a"],
        "properties": {"q": {"type": "string"}, "a": {"type": "string"}}
      }
    }
  },
  "if": {"properties": {"status": {"const": "ok"}}},
  "then": {"required": ["questions"]}
}`

const revisionSchema = `{
  "type": "object",
  "required": ["fixed", "feedback"],
  "properties": {
    "fixed": {"type": "boolean"},
    "feedback": {"type": "string"},
    "missing": {"type": "array", "items": {"type": "string"}},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["q", "a"],
        "properties": {"q": {"type": "string"}, "a": {"type": "string"}}
      }
    }
  },
  "if": {"properties": {"fixed": {"const": true}}},
  "then": {"required": ["questions"]}
}`

var (
	compiledInitial  = mustCompile("initial.schema.json", initialSchema)
	compiledRevision = mustCompile("revision.schema.json", revisionSchema)
)

func mustCompile(name, source string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		panic(fmt.Sprintf("verdict: add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

func validateInitial(text string) error {
	return validate(compiledInitial, text)
}

func validateRevision(text string) error {
	return validate(compiledRevision, text)
}

func validate(schema *jsonschema.Schema, text string) error {
	var payload interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return parseError(text, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v (reply: %s)", ErrSchemaViolation, err, snippet(text))
	}
	return nil
}
