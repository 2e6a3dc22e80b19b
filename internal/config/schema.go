package config

import (
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// tricksSchema describes the shape of a decoded tricks file. Parameter
// contents are left to each trick.
const tricksSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tricks"],
  "properties": {
    "tricks": {
      "type": "array",
      "items": {
        "type": "object",
        "minProperties": 1,
        "maxProperties": 1,
        "additionalProperties": {"type": ["object", "null"]}
      }
    },
    "search-roots": {
      "type": ["array", "string"],
      "items": {"type": "string"}
    },
    "python-path": {
      "type": ["array", "string"],
      "items": {"type": "string"}
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(tricksSchema)

// validateSchema checks doc against tricksSchema and returns one
// ConfigError per violation.
func validateSchema(path string, doc map[string]any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ConfigError{Path: path, Err: fmt.Errorf("schema validation: %w", err)}
	}

	if result.Valid() {
		return nil
	}

	var errs []error

	for _, re := range result.Errors() {
		errs = append(errs, &ConfigError{
			Path: path,
			Key:  re.Field(),
			Err:  errors.New(re.Description()),
		})
	}

	return errors.Join(errs...)
}
