package acctlib

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OperationHandler processes one operation payload and returns the result bytes.
type OperationHandler func(ctx context.Context, payload []byte) ([]byte, error)

// Middleware wraps an OperationHandler with additional behavior.
// Middlewares compose in an onion pattern: the first middleware in a chain is
// the outermost layer.
type Middleware func(next OperationHandler) OperationHandler

// Chain composes middlewares around a handler. Chain(h, a, b) runs a first,
// then b, then h.
func Chain(h OperationHandler, middlewares ...Middleware) OperationHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// PanicRecoveryMiddleware converts handler panics into errors so one
// misbehaving component cannot take down the account.
func PanicRecoveryMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next OperationHandler) OperationHandler {
		return func(ctx context.Context, payload []byte) (result []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("operation handler panicked",
						"panic", fmt.Sprintf("%v", r))
					result = nil
					err = fmt.Errorf("operation handler panicked: %v", r)
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs each operation execution with its duration and the
// calling component, when one is recorded on the context.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next OperationHandler) OperationHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			start := time.Now()
			result, err := next(ctx, payload)

			attrs := []any{
				"duration_ms", time.Since(start).Milliseconds(),
				"payload_bytes", len(payload),
			}
			if caller, ok := CallerFromContext(ctx); ok {
				attrs = append(attrs, "caller", caller.String())
			}
			if err != nil {
				attrs = append(attrs, "error", err.Error())
				logger.Warn("operation failed", attrs...)
				return result, err
			}
			logger.Debug("operation handled", attrs...)
			return result, nil
		}
	}
}
