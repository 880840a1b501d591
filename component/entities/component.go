package entities

import "github.com/modacct/account-sdk/component/values"

// Component is the stored record of an installed component. It is created by
// a successful install, mutated only by install/uninstall of itself or of its
// dependents, and deleted on uninstall.
//
// Components reference each other only by opaque handle. DependentCount gates
// uninstallation so a dependency can never be removed out from under a
// dependent.
type Component struct {
	Address        values.Address
	ManifestDigest values.Digest
	Version        string

	// Dependencies are the function handles this component was installed
	// with, in manifest slot order.
	Dependencies []values.FuncRef

	// DependentCount is the number of installed components that declared this
	// one as a dependency.
	DependentCount uint

	CanSpendValue            bool
	AnyExternalCallPermitted bool
}

// Installed reports whether the record represents a committed install. A
// component with a zero digest is treated as absent.
func (c *Component) Installed() bool {
	return c != nil && !c.ManifestDigest.IsZero()
}

// Clone returns a deep copy. The capability store clones records into pending
// transactions so uncommitted mutations never alias live state.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Dependencies = append([]values.FuncRef(nil), c.Dependencies...)
	return &cp
}
