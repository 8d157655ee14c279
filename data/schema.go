package data

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// TaskBatchSchema returns the Arrow schema for a consensus-ordered task
// batch. One row per transaction, rows sequence-ascending.
//
// Fields:
//   - id: string - Transaction identifier, stable across retries
//   - sequence: uint64 - Position assigned by the ordering collaborator
//   - read_keys: list<string> - Declared read footprint
//   - write_keys: list<string> - Declared write footprint
//   - payload: binary - Opaque transaction body
func TaskBatchSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "id", Type: arrow.BinaryTypes.String},
			{Name: "sequence", Type: arrow.PrimitiveTypes.Uint64},
			{Name: "read_keys", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
			{Name: "write_keys", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
			{Name: "payload", Type: arrow.BinaryTypes.Binary, Nullable: true},
		},
		nil,
	)
}

// ValidateSchema checks that a record matches the expected schema.
func ValidateSchema(record arrow.Record, expected *arrow.Schema) error {
	if record == nil {
		return errors.New("record is nil")
	}

	actual := record.Schema()
	if actual.NumFields() != expected.NumFields() {
		return fmt.Errorf("field count mismatch: got %d, expected %d",
			actual.NumFields(), expected.NumFields())
	}

	for i := 0; i < actual.NumFields(); i++ {
		actualField := actual.Field(i)
		expectedField := expected.Field(i)

		if actualField.Name != expectedField.Name {
			return fmt.Errorf("field %d name mismatch: got %s, expected %s",
				i, actualField.Name, expectedField.Name)
		}

		if !arrow.TypeEqual(actualField.Type, expectedField.Type) {
			return fmt.Errorf("field %s type mismatch: got %s, expected %s",
				actualField.Name, actualField.Type, expectedField.Type)
		}
	}

	return nil
}
