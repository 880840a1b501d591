package gatekeeper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modacct/account-sdk/capability"
	"github.com/modacct/account-sdk/capability/gatekeeper"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

type memoryStore struct {
	approvals *capability.ApprovalSet
	saved     bool
}

func (s *memoryStore) Load() (*capability.ApprovalSet, error) {
	if s.approvals == nil {
		return capability.NewApprovalSet(), nil
	}
	return s.approvals, nil
}

func (s *memoryStore) Save(approvals *capability.ApprovalSet) error {
	s.approvals = approvals
	s.saved = true
	return nil
}

func (s *memoryStore) ConfigPath() string {
	return "memory"
}

type scriptedPrompter struct {
	interactive bool
	grant       bool
	always      bool
	prompts     int
}

func (p *scriptedPrompter) IsInteractive() bool {
	return p.interactive
}

func (p *scriptedPrompter) PromptForRequest(_ capability.Request) (bool, bool, error) {
	p.prompts++
	return p.grant, p.always, nil
}

func (p *scriptedPrompter) FormatNonInteractiveError(name string, _ []capability.Request) error {
	return assert.AnError
}

func askingManifest() *entities.Manifest {
	return &entities.Manifest{
		Name:    "spender",
		Version: "2.0.0",
		PermittedOperations: []values.Selector{
			values.SelectorFromSignature("transfer(address,uint256)"),
		},
	}
}

func TestGatekeeper_ApprovesInertManifest(t *testing.T) {
	t.Parallel()

	gk := gatekeeper.NewGatekeeper(
		gatekeeper.WithStore(&memoryStore{}),
		gatekeeper.WithPrompter(&scriptedPrompter{}),
	)
	assert.NoError(t, gk.ApproveInstall(context.Background(), &entities.Manifest{Name: "inert"}))
}

func TestGatekeeper_PromptGrantAndDeny(t *testing.T) {
	t.Parallel()

	t.Run("granted", func(t *testing.T) {
		t.Parallel()
		p := &scriptedPrompter{interactive: true, grant: true}
		gk := gatekeeper.NewGatekeeper(
			gatekeeper.WithStore(&memoryStore{}),
			gatekeeper.WithPrompter(p),
		)
		require.NoError(t, gk.ApproveInstall(context.Background(), askingManifest()))
		assert.Equal(t, 1, p.prompts)
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()
		p := &scriptedPrompter{interactive: true, grant: false}
		gk := gatekeeper.NewGatekeeper(
			gatekeeper.WithStore(&memoryStore{}),
			gatekeeper.WithPrompter(p),
		)
		assert.Error(t, gk.ApproveInstall(context.Background(), askingManifest()))
	})
}

func TestGatekeeper_AlwaysPersistsApproval(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	p := &scriptedPrompter{interactive: true, grant: true, always: true}
	gk := gatekeeper.NewGatekeeper(
		gatekeeper.WithStore(store),
		gatekeeper.WithPrompter(p),
	)

	m := askingManifest()
	require.NoError(t, gk.ApproveInstall(context.Background(), m))
	require.True(t, store.saved)
	assert.True(t, store.approvals.Contains(m.Digest().String()))

	// A second approval of the identical manifest needs no prompting.
	p.prompts = 0
	require.NoError(t, gk.ApproveInstall(context.Background(), m))
	assert.Zero(t, p.prompts)
}

func TestGatekeeper_NonInteractiveFails(t *testing.T) {
	t.Parallel()

	gk := gatekeeper.NewGatekeeper(
		gatekeeper.WithStore(&memoryStore{}),
		gatekeeper.WithPrompter(&scriptedPrompter{interactive: false}),
	)
	assert.Error(t, gk.ApproveInstall(context.Background(), askingManifest()))
}

func TestGatekeeper_SecurityLevels(t *testing.T) {
	t.Parallel()

	broad := &entities.Manifest{Name: "root", PermitAnyExternalTarget: true}

	t.Run("strict denies broad without prompting", func(t *testing.T) {
		t.Parallel()
		p := &scriptedPrompter{interactive: true, grant: true}
		gk := gatekeeper.NewGatekeeper(
			gatekeeper.WithStore(&memoryStore{}),
			gatekeeper.WithPrompter(p),
			gatekeeper.WithSecurityLevel(gatekeeper.SecurityStrict),
		)
		assert.Error(t, gk.ApproveInstall(context.Background(), broad))
		assert.Zero(t, p.prompts)
	})

	t.Run("permissive grants without prompting", func(t *testing.T) {
		t.Parallel()
		p := &scriptedPrompter{interactive: true}
		gk := gatekeeper.NewGatekeeper(
			gatekeeper.WithStore(&memoryStore{}),
			gatekeeper.WithPrompter(p),
			gatekeeper.WithSecurityLevel(gatekeeper.SecurityPermissive),
		)
		require.NoError(t, gk.ApproveInstall(context.Background(), broad))
		assert.Zero(t, p.prompts)
	})
}

func TestGatekeeper_TrustAll(t *testing.T) {
	t.Parallel()

	p := &scriptedPrompter{interactive: false}
	gk := gatekeeper.NewGatekeeper(
		gatekeeper.WithStore(&memoryStore{}),
		gatekeeper.WithPrompter(p),
		gatekeeper.WithTrustAll(true),
	)
	assert.NoError(t, gk.ApproveInstall(context.Background(), askingManifest()))
}
