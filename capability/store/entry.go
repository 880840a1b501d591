package store

import "github.com/modacct/account-sdk/component/values"

// HookGroup holds three reference-counted multisets of hooks. Counts store
// the number of *additional* registrations beyond the first: the first
// registration inserts 0, each subsequent identical registration increments
// by one. Removal decrements, deleting the entry when the count is already 0.
type HookGroup struct {
	// Pre counts registrations of each pre hook.
	Pre map[values.FuncRef]uint

	// AssociatedPost counts, per pre hook, the post hooks tied to it.
	AssociatedPost map[values.FuncRef]map[values.FuncRef]uint

	// PostOnly counts post hooks registered without a pre hook.
	PostOnly map[values.FuncRef]uint
}

// NewHookGroup returns an empty group.
func NewHookGroup() *HookGroup {
	return &HookGroup{
		Pre:            make(map[values.FuncRef]uint),
		AssociatedPost: make(map[values.FuncRef]map[values.FuncRef]uint),
		PostOnly:       make(map[values.FuncRef]uint),
	}
}

// Empty reports whether no hooks are registered.
func (g *HookGroup) Empty() bool {
	return len(g.Pre) == 0 && len(g.AssociatedPost) == 0 && len(g.PostOnly) == 0
}

// Clone returns a deep copy.
func (g *HookGroup) Clone() *HookGroup {
	cp := NewHookGroup()
	for k, v := range g.Pre {
		cp.Pre[k] = v
	}
	for pre, posts := range g.AssociatedPost {
		m := make(map[values.FuncRef]uint, len(posts))
		for post, v := range posts {
			m[post] = v
		}
		cp.AssociatedPost[pre] = m
	}
	for k, v := range g.PostOnly {
		cp.PostOnly[k] = v
	}
	return cp
}

// OperationEntry is the per-operation record: the owning component (or the
// native marker for operations built into the account), the two main
// validation handles, the two independent pre-validation hook multisets, and
// the execution hook group.
type OperationEntry struct {
	Owner  values.Address
	Native bool

	UserOpValidation  values.FuncRef
	RuntimeValidation values.FuncRef

	PreUserOpHooks  *HookGroup
	PreRuntimeHooks *HookGroup
	ExecutionHooks  *HookGroup
}

func newOperationEntry() *OperationEntry {
	return &OperationEntry{
		PreUserOpHooks:  NewHookGroup(),
		PreRuntimeHooks: NewHookGroup(),
		ExecutionHooks:  NewHookGroup(),
	}
}

// Bound reports whether the operation has an owner (component or native).
func (e *OperationEntry) Bound() bool {
	return e.Native || !e.Owner.IsZero()
}

// Empty reports whether the entry holds no state at all and can be pruned.
func (e *OperationEntry) Empty() bool {
	return !e.Bound() &&
		e.UserOpValidation.IsEmpty() &&
		e.RuntimeValidation.IsEmpty() &&
		e.PreUserOpHooks.Empty() &&
		e.PreRuntimeHooks.Empty() &&
		e.ExecutionHooks.Empty()
}

// Clone returns a deep copy.
func (e *OperationEntry) Clone() *OperationEntry {
	cp := *e
	cp.PreUserOpHooks = e.PreUserOpHooks.Clone()
	cp.PreRuntimeHooks = e.PreRuntimeHooks.Clone()
	cp.ExecutionHooks = e.ExecutionHooks.Clone()
	return &cp
}

// ExternalPermission records what one caller may do on one external target.
type ExternalPermission struct {
	AddressPermitted   bool
	AnySelectorAllowed bool
	Selectors          map[values.Selector]bool
}

func newExternalPermission() *ExternalPermission {
	return &ExternalPermission{Selectors: make(map[values.Selector]bool)}
}

// Empty reports whether the record grants nothing and can be pruned.
func (p *ExternalPermission) Empty() bool {
	return !p.AddressPermitted && !p.AnySelectorAllowed && len(p.Selectors) == 0
}

// Clone returns a deep copy.
func (p *ExternalPermission) Clone() *ExternalPermission {
	cp := newExternalPermission()
	cp.AddressPermitted = p.AddressPermitted
	cp.AnySelectorAllowed = p.AnySelectorAllowed
	for sel := range p.Selectors {
		cp.Selectors[sel] = true
	}
	return cp
}
