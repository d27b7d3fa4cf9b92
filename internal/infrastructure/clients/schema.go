package clients

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wms-platform/sorter-station-service/internal/domain"
)

const stationStateSchemaURL = "https://schemas.wms-platform.io/sorter/station-state.json"

//go:embed schemas/station_state.schema.json
var stationStateSchema []byte

// SnapshotValidator checks station state payloads before they are mapped
type SnapshotValidator struct {
	schema *jsonschema.Schema
}

// NewSnapshotValidator compiles the embedded station state schema
func NewSnapshotValidator() (*SnapshotValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(stationStateSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse station state schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(stationStateSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add station state schema: %w", err)
	}
	schema, err := compiler.Compile(stationStateSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile station state schema: %w", err)
	}
	return &SnapshotValidator{schema: schema}, nil
}

// Validate returns an error wrapping domain.ErrMalformedSnapshot when raw
// is not a valid station state document.
func (v *SnapshotValidator) Validate(raw []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
	}
	if err := v.schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
	}
	return nil
}
