package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "repohealth-config.schema.json"

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to register schema: %w", err)
	}
	return c.Compile(schemaURL)
}

// ValidateFile checks a config file's raw keys and value types against the
// embedded JSON Schema, then checks the decoded result with Validate.
// Unknown keys are rejected here even though Load ignores them.
func ValidateFile(path string) error {
	k, err := loadKoanf(path)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(k.Raw())
	if err != nil {
		return fmt.Errorf("failed to encode %s for validation: %w", path, err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode %s for validation: %w", path, err)
	}

	sch, err := compileSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	_, err = Load(path)
	return err
}
