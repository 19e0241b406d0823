package analysis

// Named is implemented by analyzers that can round-trip through a
// schema's serialized form: Name identifies which registry entry
// Lookup should hand back to reconstruct an equivalent analyzer.
type Named interface {
	Name() string
}

var registry = map[string]Analyzer{
	"whitespace": WhitespaceAnalyzer{},
}

// Lookup returns the registered analyzer for name, used by a schema's
// deserializer to reconstruct a field's Analyzer from the name a Named
// analyzer recorded when the schema was encoded.
func Lookup(name string) (Analyzer, bool) {
	a, ok := registry[name]
	return a, ok
}
