package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/modacct/account-sdk/capability/store"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

// Dispatcher resolves an operation's validation configuration from the store,
// runs the pre-validation hook chain and the main validation function through
// the invoker, and intersects the results.
type Dispatcher struct {
	store   *store.Store
	invoker Invoker
	logger  *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a validation dispatcher.
func NewDispatcher(s *store.Store, invoker Invoker, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:   s,
		invoker: invoker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the validation chain configured for the operation and returns
// the composite decision.
func (d *Dispatcher) Run(ctx context.Context, op values.Selector, kind Kind, payload []byte) (Result, error) {
	entry, ok := d.store.Operation(op)
	if !ok {
		return Result{}, fmt.Errorf("%w: operation %s has no validation configured", entities.ErrNullReference, op)
	}

	var main values.FuncRef
	var group *store.HookGroup
	switch kind {
	case KindRuntime:
		main = entry.RuntimeValidation
		group = entry.PreRuntimeHooks
	default:
		main = entry.UserOpValidation
		group = entry.PreUserOpHooks
	}
	if main.IsEmpty() {
		return Result{}, fmt.Errorf("%w: operation %s has no %s validation", entities.ErrNullReference, op, kind)
	}

	var chain []Sourced
	for _, ref := range orderedHooks(group) {
		r, err := d.invoke(ctx, ref, kind, payload, true)
		if err != nil {
			return Result{}, fmt.Errorf("pre-%s validation hook %s: %w", kind, ref, err)
		}
		chain = append(chain, Sourced{Source: ref, Result: r})
	}

	r, err := d.invoke(ctx, main, kind, payload, false)
	if err != nil {
		return Result{}, fmt.Errorf("%s validation %s: %w", kind, main, err)
	}
	chain = append(chain, Sourced{Source: main, Result: r})

	composite, err := Intersect(chain)
	if err != nil {
		return Result{}, err
	}
	if composite.SigFailed {
		d.logger.Debug("validation chain reported signature failure",
			"operation", op.String(), "kind", kind.String())
	}
	return composite, nil
}

// invoke resolves one function reference to a verdict, matching every
// sentinel variant explicitly.
func (d *Dispatcher) invoke(ctx context.Context, ref values.FuncRef, kind Kind, payload []byte, isHook bool) (Result, error) {
	switch ref.Kind() {
	case values.RefConcrete:
		return d.invoker.InvokeValidation(ctx, ref, kind, payload)
	case values.RefAlwaysAllow:
		if isHook {
			return Result{}, &entities.FunctionResolutionError{Slot: "hook", Reason: "always-allow is not a hook"}
		}
		return Result{}, nil
	case values.RefAlwaysDeny:
		if !isHook {
			return Result{}, &entities.FunctionResolutionError{Slot: kind.String() + " validation", Reason: "always-deny is not a validation function"}
		}
		return SignatureFailed(), nil
	default:
		return Result{}, entities.ErrNullReference
	}
}

// orderedHooks flattens the pre-hook multiset into a deterministic order.
// Hook order carries no semantics, but a stable order keeps runs reproducible.
func orderedHooks(g *store.HookGroup) []values.FuncRef {
	refs := make([]values.FuncRef, 0, len(g.Pre))
	for ref := range g.Pre {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	return refs
}
