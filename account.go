// Package acctlib is the embedding surface of the account capability
// registry. An Account owns the capability store, the lifecycle manager, the
// permission gate, and the validation dispatcher, and routes operations
// through the execution hook chain to their owning component.
package acctlib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/modacct/account-sdk/capability/gate"
	"github.com/modacct/account-sdk/capability/store"
	"github.com/modacct/account-sdk/component"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/ports"
	"github.com/modacct/account-sdk/component/values"
	"github.com/modacct/account-sdk/validation"
)

var (
	// ErrUnknownOperation is returned when an operation identifier is not
	// bound to any component or native handler.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrNoForwarder is returned by ExecuteExternal when no forwarder is
	// configured.
	ErrNoForwarder = errors.New("no external call forwarder configured")
)

// AccountOption configures an Account.
type AccountOption func(*accountConfig)

type accountConfig struct {
	logger     *slog.Logger
	gatekeeper component.Gatekeeper
	events     ports.EventSink
	forwarder  ports.Forwarder
	middleware []Middleware
}

// WithAccountLogger sets the logger shared by the account's collaborators.
func WithAccountLogger(logger *slog.Logger) AccountOption {
	return func(c *accountConfig) {
		c.logger = logger
	}
}

// WithInstallGatekeeper adds a pre-install approval step.
func WithInstallGatekeeper(gk component.Gatekeeper) AccountOption {
	return func(c *accountConfig) {
		c.gatekeeper = gk
	}
}

// WithLifecycleEvents registers a sink for committed lifecycle events.
func WithLifecycleEvents(sink ports.EventSink) AccountOption {
	return func(c *accountConfig) {
		c.events = sink
	}
}

// WithForwarder sets the forwarder used for permitted external calls.
func WithForwarder(f ports.Forwarder) AccountOption {
	return func(c *accountConfig) {
		c.forwarder = f
	}
}

// WithOperationMiddleware appends middleware applied around every operation,
// outside the execution hook chain.
func WithOperationMiddleware(mw ...Middleware) AccountOption {
	return func(c *accountConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// Account is a modular account: a capability store plus the machinery that
// installs components into it and routes calls through it.
type Account struct {
	store      *store.Store
	manager    *component.Manager
	gate       *gate.Gate
	checker    *CallChecker
	dispatcher *validation.Dispatcher
	forwarder  ports.Forwarder
	logger     *slog.Logger
	middleware []Middleware

	mu     sync.RWMutex
	native map[values.Selector]OperationHandler
}

// NewAccount creates an initialized account.
func NewAccount(opts ...AccountOption) (*Account, error) {
	cfg := accountConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	st := store.New()
	if err := st.Initialize(); err != nil {
		return nil, err
	}

	mgrOpts := []component.ManagerOption{component.WithLogger(cfg.logger)}
	if cfg.gatekeeper != nil {
		mgrOpts = append(mgrOpts, component.WithGatekeeper(cfg.gatekeeper))
	}
	if cfg.events != nil {
		mgrOpts = append(mgrOpts, component.WithEventSink(cfg.events))
	}
	mgr := component.NewManager(st, mgrOpts...)

	a := &Account{
		store:      st,
		manager:    mgr,
		gate:       gate.New(st),
		forwarder:  cfg.forwarder,
		logger:     cfg.logger,
		middleware: cfg.middleware,
		native:     make(map[values.Selector]OperationHandler),
	}
	a.checker = NewCallChecker(a.gate, WithCheckerLogger(cfg.logger))
	a.dispatcher = validation.NewDispatcher(st, providerInvoker{mgr}, validation.WithLogger(cfg.logger))
	return a, nil
}

// Store exposes the capability store for read-side inspection.
func (a *Account) Store() *store.Store {
	return a.store
}

// Checker exposes the permission checker.
func (a *Account) Checker() *CallChecker {
	return a.checker
}

// IsInternalCallPermitted reports whether caller was granted the operation.
func (a *Account) IsInternalCallPermitted(caller values.Address, op values.Selector) bool {
	return a.gate.InternalCallPermitted(caller, op)
}

// IsExternalCallPermitted reports whether caller may invoke sel on target.
func (a *Account) IsExternalCallPermitted(caller, target values.Address, sel values.Selector) bool {
	return a.gate.ExternalCallPermitted(caller, target, sel)
}

// Install installs a component. See component.Manager.Install.
func (a *Account) Install(ctx context.Context, provider ports.Provider, expected values.Digest, deps []values.FuncRef, installData []byte) error {
	return a.manager.Install(ctx, provider, expected, deps, installData)
}

// Uninstall removes a component. See component.Manager.Uninstall.
func (a *Account) Uninstall(ctx context.Context, addr values.Address, manifest *entities.Manifest, uninstallData []byte) error {
	return a.manager.Uninstall(ctx, addr, manifest, uninstallData)
}

// RegisterNativeOperation binds an operation identifier to a handler built
// into the account itself. Native bindings conflict with component ownership
// the same way component bindings conflict with each other.
func (a *Account) RegisterNativeOperation(op values.Selector, handler OperationHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", entities.ErrNullReference, op)
	}

	txn, err := a.store.Begin()
	if err != nil {
		return err
	}
	defer txn.Rollback()
	if err := txn.BindNativeOperation(op); err != nil {
		return err
	}
	txn.Commit()

	a.mu.Lock()
	a.native[op] = handler
	a.mu.Unlock()
	return nil
}

// RunValidation executes the validation chain configured for an operation and
// returns the composite decision.
func (a *Account) RunValidation(ctx context.Context, op values.Selector, kind validation.Kind, payload []byte) (validation.Result, error) {
	return a.dispatcher.Run(ctx, op, kind, payload)
}

// HandleOperation routes an operation to its owner through the execution hook
// chain. A zero caller means the account's own entrypoint invoked the
// operation; a non-zero caller is an installed component, which must hold an
// internal-call grant for the operation.
func (a *Account) HandleOperation(ctx context.Context, caller values.Address, op values.Selector, payload []byte) ([]byte, error) {
	entry, ok := a.store.Operation(op)
	if !ok || !entry.Bound() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	if !caller.IsZero() {
		if err := a.checker.CheckInternal(ctx, caller, op); err != nil {
			return nil, err
		}
		ctx = WithCaller(ctx, caller)
	}

	base, err := a.resolveHandler(entry, op)
	if err != nil {
		return nil, err
	}

	handler := a.hookWrapped(entry, caller, op, base)
	return Chain(handler, a.middleware...)(ctx, payload)
}

// ExecuteExternal forwards a call to an external target on behalf of a
// component. The gate must permit the (caller, target, selector) triple, and
// attaching value additionally requires the spend grant. Callee failures
// arrive as *entities.RawCallError with the exact failure payload.
func (a *Account) ExecuteExternal(ctx context.Context, caller, target values.Address, sel values.Selector, value uint64, args []byte) ([]byte, error) {
	if err := a.checker.CheckExternal(ctx, caller, target, sel); err != nil {
		return nil, err
	}
	if value > 0 {
		if err := a.checker.CheckSpend(ctx, caller, target, sel); err != nil {
			return nil, err
		}
	}
	if a.forwarder == nil {
		return nil, ErrNoForwarder
	}

	payload := make([]byte, 0, len(sel)+len(args))
	payload = append(payload, sel[:]...)
	payload = append(payload, args...)
	return a.forwarder.Forward(WithCaller(ctx, caller), target, value, payload)
}

// resolveHandler returns the operation's base handler: the registered native
// handler or the owning component's operation entrypoint.
func (a *Account) resolveHandler(entry *store.OperationEntry, op values.Selector) (OperationHandler, error) {
	if entry.Native {
		a.mu.RLock()
		handler, ok := a.native[op]
		a.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: native operation %s has no handler", ErrUnknownOperation, op)
		}
		return handler, nil
	}

	provider, ok := a.manager.Provider(entry.Owner)
	if !ok {
		return nil, fmt.Errorf("%w: owner %s of %s", entities.ErrNotInstalled, entry.Owner, op)
	}
	opProvider, ok := provider.(ports.OperationProvider)
	if !ok {
		return nil, fmt.Errorf("component %s does not handle operations", entry.Owner)
	}
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		return opProvider.HandleOperation(ctx, op, payload)
	}, nil
}

// hookWrapped wraps the base handler with the operation's execution hook
// group: pre hooks run before the handler and each pre hook's return data is
// handed to its associated post hooks after the handler succeeds. A deny
// sentinel anywhere in the group blocks the operation outright.
func (a *Account) hookWrapped(entry *store.OperationEntry, caller values.Address, op values.Selector, next OperationHandler) OperationHandler {
	group := entry.ExecutionHooks
	if group.Empty() {
		return next
	}

	return func(ctx context.Context, payload []byte) ([]byte, error) {
		if groupDenies(group) {
			return nil, a.checker.deny(ctx, &entities.PermissionDeniedError{
				Caller:    caller,
				Operation: op,
			})
		}

		pres := orderedRefs(group.Pre)
		preData := make(map[values.FuncRef][]byte, len(pres))
		for _, pre := range pres {
			hookProvider, err := a.executionHookProvider(pre)
			if err != nil {
				return nil, err
			}
			data, err := hookProvider.PreExecutionHook(ctx, pre.Fn(), op, payload)
			if err != nil {
				return nil, fmt.Errorf("pre-execution hook %s: %w", pre, err)
			}
			preData[pre] = data
		}

		result, err := next(ctx, payload)
		if err != nil {
			return nil, err
		}

		for _, pre := range pres {
			for _, post := range orderedRefs(group.AssociatedPost[pre]) {
				if err := a.runPostHook(ctx, post, op, preData[pre]); err != nil {
					return nil, err
				}
			}
		}
		for _, post := range orderedRefs(group.PostOnly) {
			if err := a.runPostHook(ctx, post, op, nil); err != nil {
				return nil, err
			}
		}
		return result, nil
	}
}

func (a *Account) runPostHook(ctx context.Context, post values.FuncRef, op values.Selector, preData []byte) error {
	hookProvider, err := a.executionHookProvider(post)
	if err != nil {
		return err
	}
	if err := hookProvider.PostExecutionHook(ctx, post.Fn(), op, preData); err != nil {
		return fmt.Errorf("post-execution hook %s: %w", post, err)
	}
	return nil
}

func (a *Account) executionHookProvider(ref values.FuncRef) (ports.ExecutionHookProvider, error) {
	if ref.Kind() != values.RefConcrete {
		return nil, &entities.FunctionResolutionError{Slot: "execution hook", Reason: "reference is " + ref.Kind().String()}
	}
	provider, ok := a.manager.Provider(ref.Address())
	if !ok {
		return nil, fmt.Errorf("%w: hook component %s", entities.ErrNotInstalled, ref.Address())
	}
	hookProvider, ok := provider.(ports.ExecutionHookProvider)
	if !ok {
		return nil, fmt.Errorf("component %s does not implement execution hooks", ref.Address())
	}
	return hookProvider, nil
}

// groupDenies reports whether the deny sentinel appears anywhere in the group.
func groupDenies(g *store.HookGroup) bool {
	for ref := range g.Pre {
		if ref.Kind() == values.RefAlwaysDeny {
			return true
		}
	}
	for _, posts := range g.AssociatedPost {
		for ref := range posts {
			if ref.Kind() == values.RefAlwaysDeny {
				return true
			}
		}
	}
	for ref := range g.PostOnly {
		if ref.Kind() == values.RefAlwaysDeny {
			return true
		}
	}
	return false
}

// orderedRefs flattens a hook multiset into a stable order. Hook order
// carries no semantics, but a stable order keeps runs reproducible.
func orderedRefs(m map[values.FuncRef]uint) []values.FuncRef {
	refs := make([]values.FuncRef, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	return refs
}

// providerInvoker runs validation functions on their installed providers.
type providerInvoker struct {
	manager *component.Manager
}

func (i providerInvoker) InvokeValidation(ctx context.Context, ref values.FuncRef, kind validation.Kind, payload []byte) (validation.Result, error) {
	provider, ok := i.manager.Provider(ref.Address())
	if !ok {
		return validation.Result{}, fmt.Errorf("%w: validation component %s", entities.ErrNotInstalled, ref.Address())
	}
	vp, ok := provider.(ports.ValidationProvider)
	if !ok {
		return validation.Result{}, fmt.Errorf("component %s does not implement validation", ref.Address())
	}
	return vp.RunValidationFunction(ctx, ref.Fn(), kind, payload)
}
