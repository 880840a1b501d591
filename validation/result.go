// Package validation implements the validation intersection engine: it runs
// an operation's pre-validation hook chain and main validation function, then
// reduces the ordered results into a single authorization decision.
package validation

import (
	"context"
	"math"

	"github.com/modacct/account-sdk/component/values"
)

// Unbounded is the composite validUntil when no result bounded the window.
const Unbounded = uint64(math.MaxUint64)

// Result is one validation verdict: an optional authorizer identity and a
// time window, or a signature failure.
type Result struct {
	// Authorizer is an alternate authorizing identity (an "aggregator") the
	// function asserts instead of the standard signature check. Zero means
	// none.
	Authorizer values.Address

	// SigFailed marks the distinguished signature-failure verdict.
	SigFailed bool

	// ValidAfter is the earliest time (seconds) the authorization holds.
	ValidAfter uint64

	// ValidUntil is the latest time the authorization holds. Zero means
	// unbounded.
	ValidUntil uint64
}

// SignatureFailed is the failure verdict.
func SignatureFailed() Result {
	return Result{SigFailed: true}
}

// Kind selects which validation route an operation is checked against.
type Kind int

const (
	// KindUserOp validates an operation arriving as a signed user operation.
	KindUserOp Kind = iota

	// KindRuntime validates an operation invoked directly at runtime.
	KindRuntime
)

// String returns a stable name for the kind.
func (k Kind) String() string {
	if k == KindRuntime {
		return "runtime"
	}
	return "userop"
}

// Invoker executes a concrete validation function or hook on its component.
// The account facade implements it over the installed providers.
type Invoker interface {
	InvokeValidation(ctx context.Context, ref values.FuncRef, kind Kind, payload []byte) (Result, error)
}

// Sourced pairs a result with the function that produced it, so aggregator
// conflicts can name the offending hook.
type Sourced struct {
	Source values.FuncRef
	Result Result
}
