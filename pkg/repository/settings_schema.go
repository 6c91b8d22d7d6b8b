package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const settingsSchemaURL = "settings.schema.json"

const settingsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "propertyNames": { "pattern": "^[0-9]+$" },
  "additionalProperties": {
    "type": "object",
    "additionalProperties": false,
    "properties": {
      "system_prompt":   { "type": ["string", "null"] },
      "model":           { "type": ["string", "null"] },
      "required_role":   { "type": ["integer", "null"], "minimum": 0 },
      "reply_history":   { "type": ["integer", "null"], "minimum": 0 },
      "message_history": { "type": ["integer", "null"], "minimum": 0 }
    }
  }
}`

var settingsSchema = jsonschema.MustCompileString(settingsSchemaURL, settingsSchemaJSON)

func validateSettings(data []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parsing settings: %w", err)
	}

	if err := settingsSchema.Validate(doc); err != nil {
		return fmt.Errorf("validating settings: %w", err)
	}
	return nil
}
