package summary

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// summarySchema constrains the summary document shape: a mandatory
// exportResult object whose optional fields, when present, have the right
// types and ranges. Base-result fields are pipeline-owned and left open.
const summarySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["exportResult"],
  "properties": {
    "inputValues": {"type": "object"},
    "exportResult": {
      "type": "object",
      "properties": {
        "filePath": {"type": "string", "minLength": 1},
        "elapsedTimeMs": {"type": "integer", "minimum": 0},
        "ssim": {"type": "number", "minimum": -1, "maximum": 1},
        "throughputFps": {"type": "number", "minimum": 0},
        "fallbackDetails": {
          "type": "object",
          "properties": {
            "originalOutputHeight": {"type": ["integer", "string"]},
            "fallbackOutputHeight": {"type": "integer"},
            "originalAudioMimeType": {"type": "string"},
            "fallbackAudioMimeType": {"type": "string"},
            "originalVideoMimeType": {"type": "string"},
            "fallbackVideoMimeType": {"type": "string"},
            "originalHdrMode": {"type": "integer"},
            "fallbackHdrMode": {"type": "integer"}
          }
        },
        "analysisException": {"$ref": "#/$defs/exception"},
        "testException": {"$ref": "#/$defs/exception"},
        "exportException": {"$ref": "#/$defs/exception"}
      }
    }
  },
  "$defs": {
    "exception": {
      "type": "object",
      "required": ["message"],
      "properties": {
        "message": {"type": "string"},
        "type": {"type": "string"}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("summary.schema.json", summarySchema)

// ValidateSummary checks a serialized summary document against the schema
func ValidateSummary(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("summary: decode document: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("summary: schema validation: %w", err)
	}
	return nil
}

// ValidateSummaryMap checks an in-memory summary document against the schema
func ValidateSummaryMap(doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("summary: marshal document: %w", err)
	}
	return ValidateSummary(data)
}
