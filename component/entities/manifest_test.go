package entities_test

import (
	"testing"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_Digest(t *testing.T) {
	t.Parallel()

	m := &entities.Manifest{
		Name:               "counter",
		Version:            "1.2.0",
		ExecutionFunctions: []values.Selector{values.SelectorFromSignature("increment()")},
	}

	assert.True(t, m.Digest().Equals(m.Digest()), "digest must be deterministic")

	changed := *m
	changed.CanSpendValue = true
	assert.False(t, m.Digest().Equals(changed.Digest()), "digest must be sensitive to every field")
}

func TestManifest_Validate(t *testing.T) {
	t.Parallel()

	op := values.SelectorFromSignature("increment()")

	t.Run("valid", func(t *testing.T) {
		m := &entities.Manifest{
			Name: "counter",
			ExecutionHooks: []entities.ExecutionHookBinding{
				{Operation: op, PostHook: entities.FuncDecl{Kind: entities.DeclSelf, Fn: 1}},
			},
		}
		require.NoError(t, m.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		m := &entities.Manifest{}
		err := m.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrInvalidManifest)
	})

	t.Run("empty hook pairing", func(t *testing.T) {
		m := &entities.Manifest{
			Name:           "counter",
			ExecutionHooks: []entities.ExecutionHookBinding{{Operation: op}},
		}
		err := m.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrNullReference)
	})

	t.Run("zero dependency tag", func(t *testing.T) {
		m := &entities.Manifest{
			Name:         "counter",
			Dependencies: []entities.DependencyRequirement{{}},
		}
		assert.ErrorIs(t, m.Validate(), entities.ErrInvalidManifest)
	})
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	addr := values.MustParseAddress("0x00000000000000000000000000000000000000aa")
	op := values.SelectorFromSignature("increment()")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"digest mismatch", &entities.ManifestDigestError{}, entities.ErrInvalidManifest},
		{"resolution", &entities.FunctionResolutionError{Slot: "hook", Reason: "x"}, entities.ErrInvalidManifest},
		{"dependency violation", &entities.DependencyViolationError{Component: addr, Dependents: 1}, entities.ErrDependencyViolation},
		{"operation bound", &entities.OperationBoundError{Operation: op, Owner: addr}, entities.ErrOperationAlreadyBound},
		{"install callback", &entities.InstallCallbackError{Component: addr}, entities.ErrInstallCallbackFailed},
		{"permission denied", &entities.PermissionDeniedError{Caller: addr, Operation: op}, entities.ErrPermissionDenied},
		{"aggregator conflict", &entities.AggregatorConflictError{}, entities.ErrUnexpectedAggregator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
