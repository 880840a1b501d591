package services

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

// ComponentReader resolves installed component records by handle.
type ComponentReader interface {
	Component(addr values.Address) *entities.Component
}

// TagChecker reports whether an installed component supports a capability tag.
type TagChecker interface {
	SupportsTag(addr values.Address, tag values.CapabilityTag) bool
}

// ValidateDependencies checks the install-time dependency array against the
// manifest's declared requirements: one concrete handle per requirement, each
// pointing at an installed component that supports the required tag and whose
// version satisfies the requirement's semver constraint.
func ValidateDependencies(reqs []entities.DependencyRequirement, deps []values.FuncRef, components ComponentReader, tags TagChecker) error {
	if len(deps) != len(reqs) {
		return fmt.Errorf("%w: manifest declares %d dependencies, got %d", entities.ErrInvalidDependencies, len(reqs), len(deps))
	}
	for i, dep := range deps {
		if dep.Kind() != values.RefConcrete {
			return fmt.Errorf("%w: dependency %d is not a concrete function reference", entities.ErrInvalidDependencies, i)
		}
		rec := components.Component(dep.Address())
		if !rec.Installed() {
			return fmt.Errorf("%w: dependency %d (%s) is not installed", entities.ErrMissingDependency, i, dep.Address())
		}
		if !tags.SupportsTag(dep.Address(), reqs[i].Tag) {
			return fmt.Errorf("%w: dependency %d (%s) does not support tag %s", entities.ErrInvalidDependencies, i, dep.Address(), reqs[i].Tag)
		}
		if err := checkConstraint(reqs[i].Constraint, rec.Version); err != nil {
			return fmt.Errorf("%w: dependency %d (%s): %v", entities.ErrInvalidDependencies, i, dep.Address(), err)
		}
	}
	return nil
}

func checkConstraint(constraint, version string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("bad constraint %q: %v", constraint, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("dependency advertises no parseable version (%q) but constraint %q is declared", version, constraint)
	}
	if !c.Check(v) {
		return fmt.Errorf("version %s does not satisfy constraint %q", v, constraint)
	}
	return nil
}
