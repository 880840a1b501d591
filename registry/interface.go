package registry

// SchemaRegistry manages JSON schemas for manifest document kinds.
type SchemaRegistry interface {
	// Register adds a schema for a document kind (e.g. "manifest").
	// model can be a struct (to generate a schema) or a JSON schema string/map.
	Register(kind string, model interface{}) error

	// GetSchema returns the JSON schema for a document kind.
	GetSchema(kind string) (string, bool)

	// Validate checks a JSON document against the schema for kind.
	Validate(kind string, document []byte) error

	// List returns all registered document kinds.
	List() []string
}
