package validate

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

func ValidateJSON(schemaBytes []byte, data []byte) error {
	schema, err := loadSchema(schemaBytes)
	if err != nil {
		return err
	}
	return validateJSON(schema, data)
}

func loadSchema(schemaBytes []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(schemaBytes)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
