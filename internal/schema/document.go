package schema

// Document is an ordered field-name-to-value mapping submitted to a
// writer. Field order is preserved on Set so that callers iterating a
// Document see values in the order they were added, independent of the
// Schema's own field order.
type Document struct {
	names  []string
	values map[string]any
}

// NewDocument builds an empty Document.
func NewDocument() *Document {
	return &Document{values: make(map[string]any)}
}

// Set assigns value to name, appending name to the iteration order the
// first time it is used.
func (d *Document) Set(name string, value any) *Document {
	if _, exists := d.values[name]; !exists {
		d.names = append(d.names, name)
	}
	d.values[name] = value
	return d
}

// Get returns the value assigned to name and whether it was set.
func (d *Document) Get(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

// FieldNames returns the field names in the order they were first Set.
func (d *Document) FieldNames() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of fields set on the document.
func (d *Document) Len() int {
	return len(d.names)
}
