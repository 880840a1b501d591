// Package store implements the capability store: the persistent data model of
// the account registry. It exposes pure key-value primitives over component
// records, operation entries, permission tables, and interface-support
// counters. Cross-entity validation is the lifecycle manager's job, not the
// store's.
//
// Mutations go through a transaction: Begin clones the live state, the caller
// mutates the clone, and Commit swaps it in as one atomic unit. Readers keep
// seeing the pre-transaction state until the commit, which is what lets an
// install abort without any partial state becoming visible.
package store

import (
	"errors"
	"sync"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

var (
	// ErrNotInitialized is returned when the store is used before Initialize.
	ErrNotInitialized = errors.New("capability store not initialized")

	// ErrAlreadyInitialized is returned on a second Initialize.
	ErrAlreadyInitialized = errors.New("capability store already initialized")

	// ErrDisabled is returned by stores constructed permanently disabled.
	ErrDisabled = errors.New("capability store permanently disabled")

	// ErrTransactionActive is returned when Begin is called while another
	// transaction is pending, including reentrant calls from lifecycle
	// callbacks.
	ErrTransactionActive = errors.New("capability store transaction already active")

	// ErrValidationAlreadySet is returned when a validation slot of an
	// operation entry is assigned twice.
	ErrValidationAlreadySet = errors.New("validation function already set")
)

// Phase is the one-shot initialization state of a store.
type Phase uint8

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseInitialized
	PhaseDisabled
)

type state struct {
	components    map[values.Address]*entities.Component
	operations    map[values.Selector]*OperationEntry
	internalPerms map[values.Address]map[values.Selector]bool
	externalPerms map[values.Address]map[values.Address]*ExternalPermission
	tagCounts     map[values.CapabilityTag]uint
}

func newState() *state {
	return &state{
		components:    make(map[values.Address]*entities.Component),
		operations:    make(map[values.Selector]*OperationEntry),
		internalPerms: make(map[values.Address]map[values.Selector]bool),
		externalPerms: make(map[values.Address]map[values.Address]*ExternalPermission),
		tagCounts:     make(map[values.CapabilityTag]uint),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for addr, c := range s.components {
		cp.components[addr] = c.Clone()
	}
	for sel, e := range s.operations {
		cp.operations[sel] = e.Clone()
	}
	for caller, ops := range s.internalPerms {
		m := make(map[values.Selector]bool, len(ops))
		for op := range ops {
			m[op] = true
		}
		cp.internalPerms[caller] = m
	}
	for caller, targets := range s.externalPerms {
		m := make(map[values.Address]*ExternalPermission, len(targets))
		for target, perm := range targets {
			m[target] = perm.Clone()
		}
		cp.externalPerms[caller] = m
	}
	for tag, n := range s.tagCounts {
		cp.tagCounts[tag] = n
	}
	return cp
}

func (s *state) empty() bool {
	return len(s.components) == 0 &&
		len(s.operations) == 0 &&
		len(s.internalPerms) == 0 &&
		len(s.externalPerms) == 0 &&
		len(s.tagCounts) == 0
}

// Store is the process-wide capability store. It must be initialized exactly
// once before use; a store constructed with NewDisabled can never be
// initialized (for base contracts that must not be used directly).
type Store struct {
	mu        sync.RWMutex
	phase     Phase
	txnActive bool
	st        *state
}

// New returns an uninitialized store.
func New() *Store {
	return &Store{phase: PhaseUninitialized, st: newState()}
}

// NewDisabled returns a store in the terminal disabled phase.
func NewDisabled() *Store {
	return &Store{phase: PhaseDisabled, st: newState()}
}

// Initialize moves the store through initializing to initialized. It runs at
// most once; repeated or disabled initialization is an error.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case PhaseDisabled:
		return ErrDisabled
	case PhaseInitializing, PhaseInitialized:
		return ErrAlreadyInitialized
	}
	s.phase = PhaseInitializing
	s.phase = PhaseInitialized
	return nil
}

// Phase returns the current initialization phase.
func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Component returns a copy of the stored record for addr.
func (s *Store) Component(addr values.Address) (*entities.Component, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.st.components[addr]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Operation returns a copy of the entry for the given operation identifier.
func (s *Store) Operation(sel values.Selector) (*OperationEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.st.operations[sel]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// InternalCallAllowed reports whether caller was granted the operation.
func (s *Store) InternalCallAllowed(caller values.Address, op values.Selector) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.internalPerms[caller][op]
}

// ExternalCallPermission returns a copy of the (caller, target) record.
func (s *Store) ExternalCallPermission(caller, target values.Address) (*ExternalPermission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perm, ok := s.st.externalPerms[caller][target]
	if !ok {
		return nil, false
	}
	return perm.Clone(), true
}

// TagCount returns the number of installed components declaring support for tag.
func (s *Store) TagCount(tag values.CapabilityTag) uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.tagCounts[tag]
}

// SupportsTag reports whether at least one installed component declares tag.
func (s *Store) SupportsTag(tag values.CapabilityTag) bool {
	return s.TagCount(tag) > 0
}

// Empty reports whether every table is back to its initial empty state. An
// install followed by an uninstall of the same manifest must leave the store
// empty again.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.empty()
}

// Begin starts a transaction over a deep copy of the live state. Only one
// transaction may be pending at a time; a second Begin fails, which is the
// guard against registry-mutating reentrancy from lifecycle callbacks.
func (s *Store) Begin() (*Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case PhaseDisabled:
		return nil, ErrDisabled
	case PhaseInitialized:
	default:
		return nil, ErrNotInitialized
	}
	if s.txnActive {
		return nil, ErrTransactionActive
	}
	s.txnActive = true
	return &Txn{store: s, st: s.st.clone()}, nil
}

// Txn is a pending mutation set over a private copy of the store state.
// Nothing a Txn does is visible to readers until Commit.
type Txn struct {
	store *Store
	st    *state
	done  bool
}

// Commit atomically publishes the transaction's state.
func (t *Txn) Commit() {
	if t.done {
		return
	}
	t.done = true
	t.store.mu.Lock()
	t.store.st = t.st
	t.store.txnActive = false
	t.store.mu.Unlock()
}

// Rollback discards the transaction. Safe to call after Commit; it is a no-op
// then, so callers may defer it unconditionally.
func (t *Txn) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.store.mu.Lock()
	t.store.txnActive = false
	t.store.mu.Unlock()
}

// AddComponent inserts a component record, reporting an already-present slot.
func (t *Txn) AddComponent(c *entities.Component) error {
	if _, ok := t.st.components[c.Address]; ok {
		return entities.ErrAlreadyInstalled
	}
	t.st.components[c.Address] = c
	return nil
}

// Component returns the live record inside this transaction.
func (t *Txn) Component(addr values.Address) (*entities.Component, bool) {
	c, ok := t.st.components[addr]
	return c, ok
}

// DeleteComponent clears a component record.
func (t *Txn) DeleteComponent(addr values.Address) {
	delete(t.st.components, addr)
}

// IncrementDependents bumps the dependent count of addr.
func (t *Txn) IncrementDependents(addr values.Address) error {
	c, ok := t.st.components[addr]
	if !ok {
		return entities.ErrNotInstalled
	}
	c.DependentCount++
	return nil
}

// DecrementDependents drops the dependent count of addr.
func (t *Txn) DecrementDependents(addr values.Address) error {
	c, ok := t.st.components[addr]
	if !ok {
		return entities.ErrNotInstalled
	}
	if c.DependentCount > 0 {
		c.DependentCount--
	}
	return nil
}

func (t *Txn) ensureOperation(sel values.Selector) *OperationEntry {
	e, ok := t.st.operations[sel]
	if !ok {
		e = newOperationEntry()
		t.st.operations[sel] = e
	}
	return e
}

// Operation returns the live entry inside this transaction.
func (t *Txn) Operation(sel values.Selector) (*OperationEntry, bool) {
	e, ok := t.st.operations[sel]
	return e, ok
}

// BindOperation assigns ownership of an operation identifier to a component.
// At most one component may own an identifier at a time.
func (t *Txn) BindOperation(sel values.Selector, owner values.Address) error {
	e := t.ensureOperation(sel)
	if e.Bound() {
		return &entities.OperationBoundError{Operation: sel, Owner: e.Owner}
	}
	e.Owner = owner
	return nil
}

// BindNativeOperation marks an operation as built into the account itself.
func (t *Txn) BindNativeOperation(sel values.Selector) error {
	e := t.ensureOperation(sel)
	if e.Bound() {
		return &entities.OperationBoundError{Operation: sel, Owner: e.Owner}
	}
	e.Native = true
	return nil
}

// UnbindOperation clears the owner of an operation identifier.
func (t *Txn) UnbindOperation(sel values.Selector) {
	if e, ok := t.st.operations[sel]; ok {
		e.Owner = values.Address{}
		e.Native = false
	}
}

// SetUserOpValidation assigns the user-op validation handle of an operation.
func (t *Txn) SetUserOpValidation(sel values.Selector, ref values.FuncRef) error {
	e := t.ensureOperation(sel)
	if !e.UserOpValidation.IsEmpty() {
		return ErrValidationAlreadySet
	}
	e.UserOpValidation = ref
	return nil
}

// ClearUserOpValidation resets the user-op validation handle.
func (t *Txn) ClearUserOpValidation(sel values.Selector) {
	if e, ok := t.st.operations[sel]; ok {
		e.UserOpValidation = values.EmptyRef()
	}
}

// SetRuntimeValidation assigns the runtime validation handle of an operation.
func (t *Txn) SetRuntimeValidation(sel values.Selector, ref values.FuncRef) error {
	e := t.ensureOperation(sel)
	if !e.RuntimeValidation.IsEmpty() {
		return ErrValidationAlreadySet
	}
	e.RuntimeValidation = ref
	return nil
}

// ClearRuntimeValidation resets the runtime validation handle.
func (t *Txn) ClearRuntimeValidation(sel values.Selector) {
	if e, ok := t.st.operations[sel]; ok {
		e.RuntimeValidation = values.EmptyRef()
	}
}

// PreUserOpHooks returns the live pre-user-op hook multiset for an operation.
func (t *Txn) PreUserOpHooks(sel values.Selector) *HookGroup {
	return t.ensureOperation(sel).PreUserOpHooks
}

// PreRuntimeHooks returns the live pre-runtime hook multiset for an operation.
func (t *Txn) PreRuntimeHooks(sel values.Selector) *HookGroup {
	return t.ensureOperation(sel).PreRuntimeHooks
}

// ExecutionHooks returns the live execution hook group for an operation.
func (t *Txn) ExecutionHooks(sel values.Selector) *HookGroup {
	return t.ensureOperation(sel).ExecutionHooks
}

// CompactOperation prunes the entry when nothing references it anymore, so
// repeated install/uninstall cycles leave the table empty.
func (t *Txn) CompactOperation(sel values.Selector) {
	if e, ok := t.st.operations[sel]; ok && e.Empty() {
		delete(t.st.operations, sel)
	}
}

// GrantInternalCall permits caller to invoke one of the account's operations.
func (t *Txn) GrantInternalCall(caller values.Address, op values.Selector) {
	ops, ok := t.st.internalPerms[caller]
	if !ok {
		ops = make(map[values.Selector]bool)
		t.st.internalPerms[caller] = ops
	}
	ops[op] = true
}

// RevokeInternalCall removes an internal-call grant, pruning empty tables.
func (t *Txn) RevokeInternalCall(caller values.Address, op values.Selector) {
	if ops, ok := t.st.internalPerms[caller]; ok {
		delete(ops, op)
		if len(ops) == 0 {
			delete(t.st.internalPerms, caller)
		}
	}
}

func (t *Txn) ensureExternal(caller, target values.Address) *ExternalPermission {
	targets, ok := t.st.externalPerms[caller]
	if !ok {
		targets = make(map[values.Address]*ExternalPermission)
		t.st.externalPerms[caller] = targets
	}
	perm, ok := targets[target]
	if !ok {
		perm = newExternalPermission()
		targets[target] = perm
	}
	return perm
}

// GrantExternalTarget permits caller to call target, optionally with any selector.
func (t *Txn) GrantExternalTarget(caller, target values.Address, anySelector bool) {
	perm := t.ensureExternal(caller, target)
	perm.AddressPermitted = true
	if anySelector {
		perm.AnySelectorAllowed = true
	}
}

// GrantExternalSelector permits one selector on one target for caller.
func (t *Txn) GrantExternalSelector(caller, target values.Address, sel values.Selector) {
	t.ensureExternal(caller, target).Selectors[sel] = true
}

// RevokeExternalSelector removes one selector grant, pruning empty records.
func (t *Txn) RevokeExternalSelector(caller, target values.Address, sel values.Selector) {
	targets, ok := t.st.externalPerms[caller]
	if !ok {
		return
	}
	perm, ok := targets[target]
	if !ok {
		return
	}
	delete(perm.Selectors, sel)
	t.pruneExternal(caller, target, perm)
}

// RevokeExternalTarget clears the address-level grant, pruning empty records.
func (t *Txn) RevokeExternalTarget(caller, target values.Address) {
	targets, ok := t.st.externalPerms[caller]
	if !ok {
		return
	}
	perm, ok := targets[target]
	if !ok {
		return
	}
	perm.AddressPermitted = false
	perm.AnySelectorAllowed = false
	t.pruneExternal(caller, target, perm)
}

func (t *Txn) pruneExternal(caller, target values.Address, perm *ExternalPermission) {
	if !perm.Empty() {
		return
	}
	targets := t.st.externalPerms[caller]
	delete(targets, target)
	if len(targets) == 0 {
		delete(t.st.externalPerms, caller)
	}
}

// IncrementTag bumps the interface-support counter for a capability tag.
func (t *Txn) IncrementTag(tag values.CapabilityTag) {
	t.st.tagCounts[tag]++
}

// DecrementTag drops the counter, deleting it at zero.
func (t *Txn) DecrementTag(tag values.CapabilityTag) {
	n, ok := t.st.tagCounts[tag]
	if !ok {
		return
	}
	if n <= 1 {
		delete(t.st.tagCounts, tag)
		return
	}
	t.st.tagCounts[tag] = n - 1
}
