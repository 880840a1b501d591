// Package registry implements a schema registry for manifest documents. A
// host registers the manifest model once and can then validate untrusted
// manifest bytes against the generated schema before parsing them.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsvalidate "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/modacct/account-sdk/component/entities"
)

// KindManifest is the document kind registered by NewManifestRegistry.
const KindManifest = "manifest"

// Registry implements SchemaRegistry using in-memory storage.
type Registry struct {
	schemas   map[string]string
	compiled  map[string]*jsvalidate.Schema
	mu        sync.RWMutex
	reflector *jsonschema.Reflector
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithReflector overrides the schema reflector used for Go struct models.
func WithReflector(ref *jsonschema.Reflector) RegistryOption {
	return func(r *Registry) {
		r.reflector = ref
	}
}

// NewRegistry creates a new, empty schema registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		schemas:   make(map[string]string),
		compiled:  make(map[string]*jsvalidate.Schema),
		reflector: new(jsonschema.Reflector),
	}
	r.reflector.ExpandedStruct = true
	r.reflector.Anonymous = true
	r.reflector.DoNotReference = true

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewManifestRegistry returns a registry with the component manifest model
// pre-registered under KindManifest.
func NewManifestRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(KindManifest, &entities.Manifest{}); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a schema for a document kind. model can be a Go struct (to
// generate a schema via reflection) or a raw JSON schema string, byte slice,
// or map.
func (r *Registry) Register(kind string, model interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[kind]; exists {
		return fmt.Errorf("document kind already registered: %s", kind)
	}

	var schemaStr string
	switch v := model.(type) {
	case string:
		schemaStr = v
	case []byte:
		schemaStr = string(v)
	case map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal schema map: %w", err)
		}
		schemaStr = string(b)
	default:
		s := r.reflector.Reflect(model)
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal generated schema: %w", err)
		}
		schemaStr = string(b)
	}

	compiled, err := compileSchema(kind, schemaStr)
	if err != nil {
		return err
	}

	r.schemas[kind] = schemaStr
	r.compiled[kind] = compiled
	return nil
}

func compileSchema(kind, schemaStr string) (*jsvalidate.Schema, error) {
	compiler := jsvalidate.NewCompiler()
	url := "schema://" + kind + ".json"
	if err := compiler.AddResource(url, bytes.NewReader([]byte(schemaStr))); err != nil {
		return nil, fmt.Errorf("invalid schema for %s: %w", kind, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", kind, err)
	}
	return compiled, nil
}

// GetSchema retrieves the JSON schema for a document kind.
func (r *Registry) GetSchema(kind string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[kind]
	return s, ok
}

// Validate checks a JSON document against the registered schema for kind.
func (r *Registry) Validate(kind string, document []byte) error {
	r.mu.RLock()
	compiled, ok := r.compiled[kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("document kind not registered: %s", kind)
	}

	var doc interface{}
	if err := json.Unmarshal(document, &doc); err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("document does not match %s schema: %w", kind, err)
	}
	return nil
}

// List returns all registered document kinds.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		keys = append(keys, k)
	}
	return keys
}

var _ SchemaRegistry = (*Registry)(nil)
