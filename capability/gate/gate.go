// Package gate implements the permission gate: pure decision functions over
// the capability store answering whether a caller may invoke an internal
// operation or an external target and selector.
package gate

import (
	"github.com/modacct/account-sdk/capability/store"
	"github.com/modacct/account-sdk/component/values"
)

// Gate evaluates call permissions. It only reads the store and has no side
// effects; denial reporting lives with the caller.
type Gate struct {
	store *store.Store
}

// New returns a gate over the given store.
func New(s *store.Store) *Gate {
	return &Gate{store: s}
}

// InternalCallPermitted reports whether caller was granted the operation.
func (g *Gate) InternalCallPermitted(caller values.Address, op values.Selector) bool {
	return g.store.InternalCallAllowed(caller, op)
}

// ExternalCallPermitted reports whether caller may invoke selector on target.
// A component-wide any-external-call grant bypasses the per-target table.
func (g *Gate) ExternalCallPermitted(caller, target values.Address, sel values.Selector) bool {
	if comp, ok := g.store.Component(caller); ok && comp.AnyExternalCallPermitted {
		return true
	}
	perm, ok := g.store.ExternalCallPermission(caller, target)
	if !ok || !perm.AddressPermitted {
		return false
	}
	return perm.AnySelectorAllowed || perm.Selectors[sel]
}

// SpendPermitted reports whether caller may attach value to external calls.
func (g *Gate) SpendPermitted(caller values.Address) bool {
	comp, ok := g.store.Component(caller)
	return ok && comp.CanSpendValue
}
