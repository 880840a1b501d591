// Package ports declares the interfaces components and collaborators must
// satisfy to participate in the account registry.
package ports

import (
	"context"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
	"github.com/modacct/account-sdk/validation"
)

// LifecycleHandler is the callback interface every component exposes. The
// registry invokes OnInstall after computing (but before committing) the
// install changeset, and OnUninstall after the removal has already committed.
type LifecycleHandler interface {
	OnInstall(ctx context.Context, data []byte) error
	OnUninstall(ctx context.Context, data []byte) error
}

// Provider is the capability-provider contract an installable component must
// advertise. Install rejects anything that does not support
// values.TagProvider.
type Provider interface {
	LifecycleHandler

	// Address is the component's opaque handle.
	Address() values.Address

	// Manifest returns the component's declared capability set. The registry
	// recomputes its digest and checks it against the committed one; the
	// manifest itself is never retained.
	Manifest() *entities.Manifest

	// SupportsTag reports whether the component declares the capability tag.
	SupportsTag(tag values.CapabilityTag) bool
}

// ValidationProvider is implemented by components that contribute validation
// functions or pre-validation hooks.
type ValidationProvider interface {
	RunValidationFunction(ctx context.Context, fn uint8, kind validation.Kind, payload []byte) (validation.Result, error)
}

// OperationProvider is implemented by components that own operations.
type OperationProvider interface {
	HandleOperation(ctx context.Context, op values.Selector, payload []byte) ([]byte, error)
}

// ExecutionHookProvider is implemented by components that contribute
// execution hooks. The pre hook's return data is handed to its associated
// post hook.
type ExecutionHookProvider interface {
	PreExecutionHook(ctx context.Context, fn uint8, op values.Selector, payload []byte) ([]byte, error)
	PostExecutionHook(ctx context.Context, fn uint8, op values.Selector, preData []byte) error
}

// EventSink receives lifecycle events after they commit.
type EventSink interface {
	ComponentInstalled(ctx context.Context, component values.Address, digest values.Digest, dependencies []values.FuncRef)
	ComponentUninstalled(ctx context.Context, component values.Address, teardownOK bool)
}

// Forwarder forwards a raw call to an external target. On callee failure it
// returns *entities.RawCallError carrying the exact failure payload,
// unchanged and uninterpreted.
type Forwarder interface {
	Forward(ctx context.Context, target values.Address, value uint64, payload []byte) ([]byte, error)
}
