package source

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_document.schema.json
var rawDocumentSchema string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// compiledSchema compiles the embedded raw-document schema once.
func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("raw_document.schema.json", strings.NewReader(rawDocumentSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("raw_document.schema.json")
	})
	return schema, schemaErr
}

// ValidateDocument checks one decoded document payload against the
// raw-document schema. The payload must be the interface{} shape that
// encoding/json produces.
func ValidateDocument(payload any) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	return s.Validate(payload)
}
