// Package component implements the lifecycle manager: the install/uninstall
// orchestration over the capability store, the hook engine, and the domain
// services.
package component

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modacct/account-sdk/capability/hooks"
	"github.com/modacct/account-sdk/capability/store"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/ports"
	"github.com/modacct/account-sdk/component/services"
	"github.com/modacct/account-sdk/component/values"
)

// Gatekeeper approves a manifest before any install mutation happens. A nil
// gatekeeper approves everything.
type Gatekeeper interface {
	ApproveInstall(ctx context.Context, m *entities.Manifest) error
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	logger     *slog.Logger
	gatekeeper Gatekeeper
	events     ports.EventSink
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// WithGatekeeper installs a pre-install approval step.
func WithGatekeeper(gk Gatekeeper) ManagerOption {
	return func(c *managerConfig) {
		c.gatekeeper = gk
	}
}

// WithEventSink registers a sink for committed lifecycle events.
func WithEventSink(sink ports.EventSink) ManagerOption {
	return func(c *managerConfig) {
		c.events = sink
	}
}

// Manager orchestrates component installation and removal. Installs are
// all-or-nothing: the changeset is built inside a store transaction and
// committed only after the component's install callback succeeds. Uninstalls
// are best-effort the other way around: the removal commits first, and a
// failing teardown callback cannot block it.
type Manager struct {
	store      *store.Store
	hooks      *hooks.Engine
	integrity  *services.IntegrityService
	logger     *slog.Logger
	gatekeeper Gatekeeper
	events     ports.EventSink

	mu        sync.Mutex
	busy      bool
	providers map[values.Address]ports.Provider
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(st *store.Store, opts ...ManagerOption) *Manager {
	cfg := managerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		store:      st,
		hooks:      hooks.NewEngine(),
		integrity:  services.NewIntegrityService(),
		logger:     cfg.logger,
		gatekeeper: cfg.gatekeeper,
		events:     cfg.events,
		providers:  make(map[values.Address]ports.Provider),
	}
}

// Store exposes the underlying capability store for read-side collaborators.
func (m *Manager) Store() *store.Store {
	return m.store
}

// Provider returns the registered provider for an installed component.
func (m *Manager) Provider(addr values.Address) (ports.Provider, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[addr]
	return p, ok
}

func (m *Manager) enter() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return entities.ErrLifecycleInProgress
	}
	m.busy = true
	return nil
}

func (m *Manager) leave() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// Install installs a component. The provider's manifest is verified against
// the expected digest, the dependency array is checked against the manifest's
// declarations, and the full capability changeset is staged in one store
// transaction. The provider's OnInstall callback runs against the staged
// state; only if it succeeds does the transaction commit. On any failure the
// registry is left exactly as it was.
func (m *Manager) Install(ctx context.Context, provider ports.Provider, expected values.Digest, deps []values.FuncRef, installData []byte) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave()

	addr := provider.Address()
	manifest := provider.Manifest()

	if _, ok := m.store.Component(addr); ok {
		return fmt.Errorf("%w: %s", entities.ErrAlreadyInstalled, addr)
	}
	if err := m.integrity.VerifyManifest(manifest, expected); err != nil {
		return err
	}
	if err := manifest.Validate(); err != nil {
		return err
	}
	if !provider.SupportsTag(values.TagProvider) {
		return fmt.Errorf("%w: component %s does not support the provider capability", entities.ErrInvalidManifest, addr)
	}
	if m.gatekeeper != nil {
		if err := m.gatekeeper.ApproveInstall(ctx, manifest); err != nil {
			return err
		}
	}

	txn, err := m.store.Begin()
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := services.ValidateDependencies(manifest.Dependencies, deps, txnComponents{txn}, providerTags{m}); err != nil {
		return err
	}

	record := &entities.Component{
		Address:                  addr,
		ManifestDigest:           expected,
		Version:                  manifest.Version,
		Dependencies:             append([]values.FuncRef(nil), deps...),
		CanSpendValue:            manifest.CanSpendValue,
		AnyExternalCallPermitted: manifest.PermitAnyExternalTarget,
	}
	if err := txn.AddComponent(record); err != nil {
		return err
	}
	for _, dep := range deps {
		if err := txn.IncrementDependents(dep.Address()); err != nil {
			return err
		}
	}

	if err := m.stage(txn, addr, manifest, deps); err != nil {
		return err
	}

	if err := provider.OnInstall(ctx, installData); err != nil {
		m.logger.Warn("install callback failed, rolling back",
			"component", addr.String(),
			"error", err)
		return &entities.InstallCallbackError{Component: addr, Cause: err}
	}
	txn.Commit()

	m.mu.Lock()
	m.providers[addr] = provider
	m.mu.Unlock()

	m.logger.Info("component installed",
		"component", addr.String(),
		"name", manifest.Name,
		"version", manifest.Version,
		"digest", expected.String())
	if m.events != nil {
		m.events.ComponentInstalled(ctx, addr, expected, record.Dependencies)
	}
	return nil
}

// stage writes the manifest's full capability changeset into the transaction.
func (m *Manager) stage(txn *store.Txn, addr values.Address, manifest *entities.Manifest, deps []values.FuncRef) error {
	for _, sel := range manifest.ExecutionFunctions {
		if err := txn.BindOperation(sel, addr); err != nil {
			return err
		}
	}

	for _, op := range manifest.PermittedOperations {
		txn.GrantInternalCall(addr, op)
	}
	for _, perm := range manifest.ExternalCalls {
		txn.GrantExternalTarget(addr, perm.Target, perm.PermitAnySelector)
		for _, sel := range perm.Selectors {
			txn.GrantExternalSelector(addr, perm.Target, sel)
		}
	}

	for _, b := range manifest.UserOpValidation {
		ref, err := services.ResolveFunction(b.Fn, services.SlotUserOpValidation, addr, deps)
		if err != nil {
			return err
		}
		if ref.IsEmpty() {
			return fmt.Errorf("%w: user-op validation for %s", entities.ErrNullReference, b.Operation)
		}
		if err := txn.SetUserOpValidation(b.Operation, ref); err != nil {
			return err
		}
	}
	for _, b := range manifest.RuntimeValidation {
		ref, err := services.ResolveFunction(b.Fn, services.SlotRuntimeValidation, addr, deps)
		if err != nil {
			return err
		}
		if ref.IsEmpty() {
			return fmt.Errorf("%w: runtime validation for %s", entities.ErrNullReference, b.Operation)
		}
		if err := txn.SetRuntimeValidation(b.Operation, ref); err != nil {
			return err
		}
	}

	for _, b := range manifest.PreUserOpValidationHooks {
		ref, err := services.ResolveFunction(b.Fn, services.SlotHook, addr, deps)
		if err != nil {
			return err
		}
		if err := m.hooks.Add(txn.PreUserOpHooks(b.Operation), ref, values.EmptyRef()); err != nil {
			return err
		}
	}
	for _, b := range manifest.PreRuntimeValidationHooks {
		ref, err := services.ResolveFunction(b.Fn, services.SlotHook, addr, deps)
		if err != nil {
			return err
		}
		if err := m.hooks.Add(txn.PreRuntimeHooks(b.Operation), ref, values.EmptyRef()); err != nil {
			return err
		}
	}
	for _, h := range manifest.ExecutionHooks {
		pre, err := services.ResolveFunction(h.PreHook, services.SlotHook, addr, deps)
		if err != nil {
			return err
		}
		post, err := services.ResolveFunction(h.PostHook, services.SlotHook, addr, deps)
		if err != nil {
			return err
		}
		if err := m.hooks.Add(txn.ExecutionHooks(h.Operation), pre, post); err != nil {
			return err
		}
	}

	for _, tag := range manifest.SupportedTags {
		txn.IncrementTag(tag)
	}
	return nil
}

// Uninstall removes a component. The caller supplies the manifest fresh; it
// is re-verified against the digest committed at install time, so the removal
// undoes exactly what the install did. Removal commits before the component's
// OnUninstall callback runs: a failing teardown is logged and reported on the
// event, never allowed to block the removal.
func (m *Manager) Uninstall(ctx context.Context, addr values.Address, manifest *entities.Manifest, uninstallData []byte) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave()

	record, ok := m.store.Component(addr)
	if !ok {
		return fmt.Errorf("%w: %s", entities.ErrNotInstalled, addr)
	}
	if err := m.integrity.VerifyManifest(manifest, record.ManifestDigest); err != nil {
		return err
	}
	if record.DependentCount > 0 {
		return &entities.DependencyViolationError{Component: addr, Dependents: record.DependentCount}
	}

	txn, err := m.store.Begin()
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := m.unstage(txn, addr, manifest, record.Dependencies); err != nil {
		return err
	}
	for _, dep := range record.Dependencies {
		if err := txn.DecrementDependents(dep.Address()); err != nil {
			return err
		}
	}
	txn.DeleteComponent(addr)
	txn.Commit()

	m.mu.Lock()
	provider := m.providers[addr]
	delete(m.providers, addr)
	m.mu.Unlock()

	teardownOK := true
	if provider != nil {
		if err := provider.OnUninstall(ctx, uninstallData); err != nil {
			teardownOK = false
			m.logger.Warn("uninstall callback failed, removal already committed",
				"component", addr.String(),
				"error", err)
		}
	}

	m.logger.Info("component uninstalled",
		"component", addr.String(),
		"teardown_ok", teardownOK)
	if m.events != nil {
		m.events.ComponentUninstalled(ctx, addr, teardownOK)
	}
	return nil
}

// unstage removes the manifest's capability changeset in the reverse of the
// install order: execution hooks first, then pre-validation hooks, validation
// handles, external and internal permissions, operation bindings, and finally
// the capability tag counters.
func (m *Manager) unstage(txn *store.Txn, addr values.Address, manifest *entities.Manifest, deps []values.FuncRef) error {
	touched := make(map[values.Selector]bool)

	for _, h := range manifest.ExecutionHooks {
		pre, err := services.ResolveFunction(h.PreHook, services.SlotHook, addr, deps)
		if err != nil {
			return err
		}
		post, err := services.ResolveFunction(h.PostHook, services.SlotHook, addr, deps)
		if err != nil {
			return err
		}
		if _, err := m.hooks.Remove(txn.ExecutionHooks(h.Operation), pre, post); err != nil {
			return err
		}
		touched[h.Operation] = true
	}

	for _, b := range manifest.PreRuntimeValidationHooks {
		ref, err := services.ResolveFunction(b.Fn, services.SlotHook, addr, deps)
		if err != nil {
			return err
		}
		if _, err := m.hooks.Remove(txn.PreRuntimeHooks(b.Operation), ref, values.EmptyRef()); err != nil {
			return err
		}
		touched[b.Operation] = true
	}
	for _, b := range manifest.PreUserOpValidationHooks {
		ref, err := services.ResolveFunction(b.Fn, services.SlotHook, addr, deps)
		if err != nil {
			return err
		}
		if _, err := m.hooks.Remove(txn.PreUserOpHooks(b.Operation), ref, values.EmptyRef()); err != nil {
			return err
		}
		touched[b.Operation] = true
	}

	for _, b := range manifest.RuntimeValidation {
		txn.ClearRuntimeValidation(b.Operation)
		touched[b.Operation] = true
	}
	for _, b := range manifest.UserOpValidation {
		txn.ClearUserOpValidation(b.Operation)
		touched[b.Operation] = true
	}

	for _, perm := range manifest.ExternalCalls {
		for _, sel := range perm.Selectors {
			txn.RevokeExternalSelector(addr, perm.Target, sel)
		}
		txn.RevokeExternalTarget(addr, perm.Target)
	}
	for _, op := range manifest.PermittedOperations {
		txn.RevokeInternalCall(addr, op)
	}

	for _, sel := range manifest.ExecutionFunctions {
		txn.UnbindOperation(sel)
		touched[sel] = true
	}

	for _, tag := range manifest.SupportedTags {
		txn.DecrementTag(tag)
	}

	for sel := range touched {
		txn.CompactOperation(sel)
	}
	return nil
}

// txnComponents adapts a store transaction to the dependency service's reader.
type txnComponents struct {
	txn *store.Txn
}

func (r txnComponents) Component(addr values.Address) *entities.Component {
	c, _ := r.txn.Component(addr)
	return c
}

// providerTags answers capability-tag queries from the registered providers.
type providerTags struct {
	m *Manager
}

func (r providerTags) SupportsTag(addr values.Address, tag values.CapabilityTag) bool {
	p, ok := r.m.Provider(addr)
	return ok && p.SupportsTag(tag)
}
