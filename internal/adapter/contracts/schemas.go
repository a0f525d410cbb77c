package contracts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// compiledSchemas is keyed by event type, taken from the schema file name.
var compiledSchemas = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	err := fs.WalkDir(schemaFS, "schemas", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}

		file, err := schemaFS.Open(p)
		if err != nil {
			return err
		}
		defer file.Close()

		if err := compiler.AddResource(p, file); err != nil {
			return fmt.Errorf("add schema resource %s: %w", p, err)
		}

		schema, err := compiler.Compile(p)
		if err != nil {
			return fmt.Errorf("compile schema %s: %w", p, err)
		}
		compiledSchemas[strings.TrimSuffix(path.Base(p), ".json")] = schema
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("contracts: %v", err))
	}
}

// Validate checks a JSON event body against the schema registered for eventType.
func Validate(eventType string, body []byte) error {
	schema, ok := compiledSchemas[eventType]
	if !ok {
		return fmt.Errorf("schema for event '%s' not found", eventType)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("message body is not a valid JSON: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}
