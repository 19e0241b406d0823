package schema

import (
	cerrors "github.com/cinderfts/cinder/pkg/errors"
)

// Schema is the ordered field-name-to-FieldType mapping spec.md §3
// describes. Field order is preserved because it determines column and
// stored-field layout order on disk; lookups are also indexed by name for
// O(1) access during analysis and query parsing.
type Schema struct {
	names  []string
	fields map[string]FieldType
}

// New builds an empty Schema.
func New() *Schema {
	return &Schema{fields: make(map[string]FieldType)}
}

// AddField registers name with the given FieldType. Re-adding an existing
// name returns a SchemaError rather than silently overwriting it, since a
// field's on-disk layout is fixed at the point it is first used by a
// segment.
func (s *Schema) AddField(name string, ft FieldType) error {
	if name == "" {
		return cerrors.NewSchemaError(name, "field name must not be empty")
	}
	if _, exists := s.fields[name]; exists {
		return cerrors.NewSchemaError(name, "field already defined")
	}
	s.names = append(s.names, name)
	s.fields[name] = ft
	return nil
}

// Field returns the FieldType registered for name and whether it exists.
func (s *Schema) Field(name string) (FieldType, bool) {
	ft, ok := s.fields[name]
	return ft, ok
}

// FieldNames returns field names in registration order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// HasField reports whether name is defined.
func (s *Schema) HasField(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// StoredFieldNames returns, in registration order, the names of fields
// whose FieldType.Stored is true.
func (s *Schema) StoredFieldNames() []string {
	var out []string
	for _, name := range s.names {
		if s.fields[name].Stored {
			out = append(out, name)
		}
	}
	return out
}

// ScoredFieldNames returns, in registration order, the names of fields
// that record a per-document length for scoring.
func (s *Schema) ScoredFieldNames() []string {
	var out []string
	for _, name := range s.names {
		if s.fields[name].Scored {
			out = append(out, name)
		}
	}
	return out
}
