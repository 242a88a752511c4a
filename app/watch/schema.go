package watch

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the Batch payload accepted by the ingest API
func Schema() *jsonschema.Schema {
	schema := jsonschema.Reflect(&Batch{})
	schema.Title = "Hoover ingest batch"
	schema.Description = "One enumeration of the line records visible in a log window"
	return schema
}

// SchemaJSON renders Schema as indented JSON
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
