package claudecode

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// recordSchemaSource is a minimal structural schema for one JSONL session
// record: every record must carry a recognized "type" discriminator. This
// catches the common corruption mode (a stray non-object line, or a record
// missing its tag) before the full normalizeRecord walk, rather than
// tolerating it silently as a zero-value record.
const recordSchemaSource = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {
      "type": "string",
      "enum": ["user", "assistant", "tool_use", "tool_result", "summary", "system"]
    }
  }
}`

var recordSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	var doc any
	if err := json.Unmarshal([]byte(recordSchemaSource), &doc); err != nil {
		panic(err)
	}
	if err := c.AddResource("record.json", doc); err != nil {
		panic(err)
	}
	schema, err := c.Compile("record.json")
	if err != nil {
		panic(err)
	}
	return schema
}

// validateRecord reports whether raw (one decoded-to-any JSONL line) passes
// the structural schema. Used as a cheap pre-filter before the full
// normalizeRecord walk.
func validateRecord(raw []byte) bool {
	var doc any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &doc); err != nil {
		return false
	}
	return recordSchema.Validate(doc) == nil
}
