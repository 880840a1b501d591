// Package entities contains the domain entities of the account capability
// registry: manifests, component records, and the error taxonomy.
package entities

import (
	"encoding/json"
	"fmt"

	"github.com/modacct/account-sdk/component/values"
)

// DeclKind names how a manifest function declaration resolves to a handle.
type DeclKind string

const (
	// DeclNone marks an absent declaration, e.g. the missing pre hook of a
	// post-only execution hook.
	DeclNone DeclKind = ""

	// DeclSelf resolves to a local function on the component being installed.
	DeclSelf DeclKind = "self"

	// DeclDependency resolves by index into the install-time dependency array.
	DeclDependency DeclKind = "dependency"

	// DeclAlwaysAllow is the magic value legal only in runtime-validation slots.
	DeclAlwaysAllow DeclKind = "always-allow"

	// DeclAlwaysDeny is the magic value legal only in hook slots.
	DeclAlwaysDeny DeclKind = "always-deny"
)

// FuncDecl is a manifest-level function reference before resolution.
type FuncDecl struct {
	Kind DeclKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	// Fn is the local function tag, meaningful for kind "self".
	Fn uint8 `json:"fn,omitempty" yaml:"fn,omitempty"`
	// DependencyIndex selects a slot of the install-time dependency array,
	// meaningful for kind "dependency".
	DependencyIndex uint `json:"dependencyIndex,omitempty" yaml:"dependencyIndex,omitempty"`
}

// IsNone reports whether the declaration is absent.
func (d FuncDecl) IsNone() bool {
	return d.Kind == DeclNone
}

// DependencyRequirement declares what a dependency slot must provide.
type DependencyRequirement struct {
	// Tag is the capability the dependency component must support.
	Tag values.CapabilityTag `json:"tag" yaml:"tag"`
	// Constraint is an optional semver constraint on the dependency
	// component's advertised version. Empty means any version.
	Constraint string `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

// ExternalCallPermission grants calls to one external target.
type ExternalCallPermission struct {
	Target values.Address `json:"target" yaml:"target"`
	// PermitAnySelector permits every selector on the target.
	PermitAnySelector bool `json:"permitAnySelector,omitempty" yaml:"permitAnySelector,omitempty"`
	// Selectors are the individually permitted selectors when
	// PermitAnySelector is false.
	Selectors []values.Selector `json:"selectors,omitempty" yaml:"selectors,omitempty"`
}

// ValidationBinding attaches a validation function to one operation.
type ValidationBinding struct {
	Operation values.Selector `json:"operation" yaml:"operation"`
	Fn        FuncDecl        `json:"fn" yaml:"fn"`
}

// ExecutionHookBinding attaches a pre/post execution hook pair to one
// operation. Either side may be absent, but not both.
type ExecutionHookBinding struct {
	Operation values.Selector `json:"operation" yaml:"operation"`
	PreHook   FuncDecl        `json:"preHook,omitempty" yaml:"preHook,omitempty"`
	PostHook  FuncDecl        `json:"postHook,omitempty" yaml:"postHook,omitempty"`
}

// Manifest is a component's self-declared capability set. The registry never
// stores it; only its digest is committed, and the full manifest is supplied
// fresh and re-verified at install and uninstall time.
type Manifest struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// ExecutionFunctions are the operation identifiers this component owns.
	ExecutionFunctions []values.Selector `json:"executionFunctions,omitempty" yaml:"executionFunctions,omitempty"`

	// PermittedOperations are this account's own operations the component may
	// invoke.
	PermittedOperations []values.Selector `json:"permittedOperations,omitempty" yaml:"permittedOperations,omitempty"`

	// PermitAnyExternalTarget bypasses the per-target permission table.
	PermitAnyExternalTarget bool `json:"permitAnyExternalTarget,omitempty" yaml:"permitAnyExternalTarget,omitempty"`

	// ExternalCalls are per-target external call permissions.
	ExternalCalls []ExternalCallPermission `json:"externalCalls,omitempty" yaml:"externalCalls,omitempty"`

	// CanSpendValue permits the component to attach value to external calls.
	CanSpendValue bool `json:"canSpendValue,omitempty" yaml:"canSpendValue,omitempty"`

	// Dependencies declare the capability each install-time dependency slot
	// must provide, in order.
	Dependencies []DependencyRequirement `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	UserOpValidation  []ValidationBinding `json:"userOpValidation,omitempty" yaml:"userOpValidation,omitempty"`
	RuntimeValidation []ValidationBinding `json:"runtimeValidation,omitempty" yaml:"runtimeValidation,omitempty"`

	// Pre-validation hooks run before the main validation function of an
	// operation and feed the validation intersection.
	PreUserOpValidationHooks  []ValidationBinding `json:"preUserOpValidationHooks,omitempty" yaml:"preUserOpValidationHooks,omitempty"`
	PreRuntimeValidationHooks []ValidationBinding `json:"preRuntimeValidationHooks,omitempty" yaml:"preRuntimeValidationHooks,omitempty"`

	ExecutionHooks []ExecutionHookBinding `json:"executionHooks,omitempty" yaml:"executionHooks,omitempty"`

	// SupportedTags are the capability tags this component declares support
	// for, reference-counted by the store.
	SupportedTags []values.CapabilityTag `json:"supportedTags,omitempty" yaml:"supportedTags,omitempty"`
}

// Digest computes the manifest's commitment digest over its canonical JSON
// encoding. encoding/json emits struct fields in declaration order, so the
// encoding is deterministic for a given manifest value.
func (m *Manifest) Digest() values.Digest {
	data, err := json.Marshal(m)
	if err != nil {
		// Manifest contains only marshalable types; this cannot happen for a
		// well-formed value.
		panic(fmt.Sprintf("manifest encoding: %v", err))
	}
	return values.ComputeDigest(data)
}

// Validate checks structural invariants that do not require the registry:
// a name is present, no execution hook is empty on both sides, and no
// dependency requirement has a zero tag.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	}
	for _, h := range m.ExecutionHooks {
		if h.PreHook.IsNone() && h.PostHook.IsNone() {
			return fmt.Errorf("%w: execution hook for %s has neither pre nor post", ErrNullReference, h.Operation)
		}
	}
	for i, dep := range m.Dependencies {
		if dep.Tag.IsZero() {
			return fmt.Errorf("%w: dependency %d has no capability tag", ErrInvalidManifest, i)
		}
	}
	return nil
}
