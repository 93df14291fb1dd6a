package ai

import "github.com/santhosh-tekuri/jsonschema/v5"

const responseSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["criteria"],
  "properties": {
    "criteria": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["value"],
        "properties": {
          "value": {"type": "number", "minimum": 0, "maximum": 1},
          "feedback": {"type": "string"}
        }
      }
    }
  }
}`

var responseSchema = jsonschema.MustCompileString("scoring-response.schema.json", responseSchemaJSON)
