package registry_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/registry"
)

func TestRegistry_RegisterStructModel(t *testing.T) {
	t.Parallel()

	r := registry.NewRegistry()
	require.NoError(t, r.Register("manifest", &entities.Manifest{}))

	schema, ok := r.GetSchema("manifest")
	require.True(t, ok)
	assert.Contains(t, schema, "executionFunctions")

	assert.Error(t, r.Register("manifest", &entities.Manifest{}), "double registration is rejected")
	assert.Equal(t, []string{"manifest"}, r.List())
}

func TestRegistry_RegisterRawSchema(t *testing.T) {
	t.Parallel()

	raw := `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`
	r := registry.NewRegistry()
	require.NoError(t, r.Register("thing", raw))

	assert.NoError(t, r.Validate("thing", []byte(`{"name": "x"}`)))
	assert.Error(t, r.Validate("thing", []byte(`{}`)), "missing required field")
}

func TestRegistry_RegisterRejectsBadSchema(t *testing.T) {
	t.Parallel()

	r := registry.NewRegistry()
	assert.Error(t, r.Register("broken", `{"type": 42}`))
}

func TestManifestRegistry_ValidatesManifestDocuments(t *testing.T) {
	t.Parallel()

	r, err := registry.NewManifestRegistry()
	require.NoError(t, err)

	m := &entities.Manifest{Name: "signer", Version: "1.0.0"}
	doc, err := json.Marshal(m)
	require.NoError(t, err)
	assert.NoError(t, r.Validate(registry.KindManifest, doc))

	assert.Error(t, r.Validate(registry.KindManifest, []byte(`not json`)))
	assert.Error(t, r.Validate("unknown", doc))
}
