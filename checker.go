package acctlib

import (
	"context"
	"log/slog"

	"github.com/modacct/account-sdk/capability/gate"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

// DenialHandler is called whenever a call is rejected by the permission gate.
// Hosts can use it to surface denials to an operator or feed an audit trail.
type DenialHandler func(ctx context.Context, denial *entities.PermissionDeniedError)

// CallChecker evaluates call permissions through the gate and reports
// denials. The gate itself stays a pure decision function; logging and the
// denial callback live here.
type CallChecker struct {
	gate     *gate.Gate
	onDenial DenialHandler
	logger   *slog.Logger
}

// CheckerOption configures a CallChecker.
type CheckerOption func(*CallChecker)

// WithDenialHandler sets a callback invoked on every denial.
func WithDenialHandler(h DenialHandler) CheckerOption {
	return func(c *CallChecker) {
		c.onDenial = h
	}
}

// WithCheckerLogger sets the logger used for denial records.
func WithCheckerLogger(logger *slog.Logger) CheckerOption {
	return func(c *CallChecker) {
		c.logger = logger
	}
}

// NewCallChecker creates a checker over the given gate.
func NewCallChecker(g *gate.Gate, opts ...CheckerOption) *CallChecker {
	c := &CallChecker{
		gate:   g,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckInternal returns an error unless caller was granted the operation.
func (c *CallChecker) CheckInternal(ctx context.Context, caller values.Address, op values.Selector) error {
	if c.gate.InternalCallPermitted(caller, op) {
		return nil
	}
	return c.deny(ctx, &entities.PermissionDeniedError{
		Caller:    caller,
		Operation: op,
	})
}

// CheckExternal returns an error unless caller may invoke sel on target.
func (c *CallChecker) CheckExternal(ctx context.Context, caller, target values.Address, sel values.Selector) error {
	if c.gate.ExternalCallPermitted(caller, target, sel) {
		return nil
	}
	return c.deny(ctx, &entities.PermissionDeniedError{
		Caller:    caller,
		Target:    target,
		Operation: sel,
		External:  true,
	})
}

// CheckSpend returns an error unless caller may attach value to external calls.
func (c *CallChecker) CheckSpend(ctx context.Context, caller, target values.Address, sel values.Selector) error {
	if c.gate.SpendPermitted(caller) {
		return nil
	}
	return c.deny(ctx, &entities.PermissionDeniedError{
		Caller:    caller,
		Target:    target,
		Operation: sel,
		External:  true,
		Spend:     true,
	})
}

func (c *CallChecker) deny(ctx context.Context, denial *entities.PermissionDeniedError) error {
	c.logger.Warn("call denied",
		"caller", denial.Caller.String(),
		"operation", denial.Operation.String(),
		"external", denial.External)
	if c.onDenial != nil {
		c.onDenial(ctx, denial)
	}
	return denial
}

type callerContextKey struct{}

// WithCaller records the calling component on the context so downstream
// layers can attribute work to it.
func WithCaller(ctx context.Context, caller values.Address) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext returns the calling component recorded on the context.
func CallerFromContext(ctx context.Context) (values.Address, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(values.Address)
	return caller, ok
}
