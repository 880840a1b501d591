package entities

import (
	"errors"
	"fmt"

	"github.com/modacct/account-sdk/component/values"
)

// Sentinel errors for common error patterns.
// These allow both errors.Is() checks and errors.As() for detailed information.
var (
	// ErrAlreadyInstalled is returned when installing a component that is
	// already present in the registry.
	ErrAlreadyInstalled = errors.New("component already installed")

	// ErrNotInstalled is returned when uninstalling a component that is not
	// present in the registry.
	ErrNotInstalled = errors.New("component not installed")

	// ErrInvalidManifest is returned on a digest mismatch or a structurally
	// illegal function-reference resolution.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrMissingDependency is returned when a declared dependency is not
	// installed.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrInvalidDependencies is returned when the dependency array length or
	// a dependency capability does not match the manifest.
	ErrInvalidDependencies = errors.New("invalid dependencies")

	// ErrDependencyViolation is returned when uninstalling a component other
	// installed components still depend on.
	ErrDependencyViolation = errors.New("dependency violation")

	// ErrOperationAlreadyBound is returned when two components claim the same
	// operation identifier.
	ErrOperationAlreadyBound = errors.New("operation already bound")

	// ErrNullReference is returned when an empty function reference is
	// supplied where one is required, or a hook pairing is empty on both sides.
	ErrNullReference = errors.New("null function reference")

	// ErrInstallCallbackFailed is returned when the component's install
	// callback fails; the whole install is rolled back.
	ErrInstallCallbackFailed = errors.New("install callback failed")

	// ErrPermissionDenied is returned when the gate rejects a call.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnexpectedAggregator is returned when more than one distinct
	// authorizer appears across a validation chain.
	ErrUnexpectedAggregator = errors.New("unexpected aggregator")

	// ErrLifecycleInProgress is returned when a lifecycle callback re-enters
	// install or uninstall before the current one completes.
	ErrLifecycleInProgress = errors.New("lifecycle operation in progress")
)

// ManifestDigestError indicates the recomputed manifest digest does not match
// the committed one.
type ManifestDigestError struct {
	Expected values.Digest
	Actual   values.Digest
}

func (e *ManifestDigestError) Error() string {
	return fmt.Sprintf("invalid manifest: expected digest %s, got %s", e.Expected.String(), e.Actual.String())
}

// Is implements error matching for errors.Is() checks.
func (e *ManifestDigestError) Is(target error) bool {
	return target == ErrInvalidManifest
}

// FunctionResolutionError indicates a manifest function reference that cannot
// legally be resolved, e.g. a magic value used in a slot that forbids it or a
// dependency index out of range.
type FunctionResolutionError struct {
	Slot   string
	Reason string
}

func (e *FunctionResolutionError) Error() string {
	return fmt.Sprintf("invalid manifest: cannot resolve %s function: %s", e.Slot, e.Reason)
}

func (e *FunctionResolutionError) Is(target error) bool {
	return target == ErrInvalidManifest
}

// DependencyViolationError indicates an uninstall attempt on a component with
// live dependents.
type DependencyViolationError struct {
	Component  values.Address
	Dependents uint
}

func (e *DependencyViolationError) Error() string {
	return fmt.Sprintf("dependency violation: %s still has %d dependent(s)", e.Component, e.Dependents)
}

func (e *DependencyViolationError) Is(target error) bool {
	return target == ErrDependencyViolation
}

// OperationBoundError indicates an operation identifier already owned by
// another component.
type OperationBoundError struct {
	Operation values.Selector
	Owner     values.Address
}

func (e *OperationBoundError) Error() string {
	return fmt.Sprintf("operation %s already bound to %s", e.Operation, e.Owner)
}

func (e *OperationBoundError) Is(target error) bool {
	return target == ErrOperationAlreadyBound
}

// InstallCallbackError carries the component callback's failure reason
// through unchanged after the install has been rolled back.
type InstallCallbackError struct {
	Component values.Address
	Cause     error
}

func (e *InstallCallbackError) Error() string {
	return fmt.Sprintf("install callback failed for %s: %v", e.Component, e.Cause)
}

func (e *InstallCallbackError) Unwrap() error {
	return e.Cause
}

func (e *InstallCallbackError) Is(target error) bool {
	return target == ErrInstallCallbackFailed
}

// PermissionDeniedError names the caller, the attempted target or operation,
// and the payload selector of a rejected call.
type PermissionDeniedError struct {
	Caller    values.Address
	Target    values.Address  // zero for internal calls
	Operation values.Selector // operation or external selector
	External  bool
	Spend     bool // denied for attaching value, not for the target/selector
}

func (e *PermissionDeniedError) Error() string {
	if e.Spend {
		return fmt.Sprintf("permission denied: %s may not attach value to external calls", e.Caller)
	}
	if e.External {
		return fmt.Sprintf("permission denied: %s may not call %s on external target %s", e.Caller, e.Operation, e.Target)
	}
	return fmt.Sprintf("permission denied: %s may not invoke operation %s", e.Caller, e.Operation)
}

func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// AggregatorConflictError names the hook that produced a second distinct
// authorizer and the unexpected value it returned.
type AggregatorConflictError struct {
	Hook       values.FuncRef
	Unexpected values.Address
}

func (e *AggregatorConflictError) Error() string {
	return fmt.Sprintf("unexpected aggregator %s returned by %s", e.Unexpected, e.Hook)
}

func (e *AggregatorConflictError) Is(target error) bool {
	return target == ErrUnexpectedAggregator
}

// RawCallError carries the exact failure payload of an external callee. The
// bytes are propagated without reinterpretation so the original failure can
// be surfaced or re-raised unchanged.
type RawCallError struct {
	Data []byte
}

func (e *RawCallError) Error() string {
	return fmt.Sprintf("external call failed (%d raw bytes)", len(e.Data))
}
