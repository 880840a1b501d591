package acctlib

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/ports"
	"github.com/modacct/account-sdk/component/values"
)

// RawCallHandler is an in-process external callee. The payload is the raw
// call encoding: the 4-byte selector followed by the argument bytes.
type RawCallHandler func(ctx context.Context, value uint64, payload []byte) ([]byte, error)

// LocalForwarder dispatches external calls to in-process handlers. It is the
// forwarder for embedded deployments where "external targets" are other
// subsystems of the same process.
type LocalForwarder struct {
	mu      sync.RWMutex
	targets map[values.Address]RawCallHandler
}

// NewLocalForwarder returns an empty forwarder.
func NewLocalForwarder() *LocalForwarder {
	return &LocalForwarder{targets: make(map[values.Address]RawCallHandler)}
}

// Register binds a handler to a target address, replacing any previous one.
func (f *LocalForwarder) Register(target values.Address, handler RawCallHandler) {
	f.mu.Lock()
	f.targets[target] = handler
	f.mu.Unlock()
}

// Forward dispatches the call to the registered handler. Handler failures are
// returned as *entities.RawCallError carrying the failure bytes unchanged.
func (f *LocalForwarder) Forward(ctx context.Context, target values.Address, value uint64, payload []byte) ([]byte, error) {
	f.mu.RLock()
	handler, ok := f.targets[target]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown external target %s", target)
	}

	result, err := handler(ctx, value, payload)
	if err != nil {
		var raw *entities.RawCallError
		if errors.As(err, &raw) {
			return nil, raw
		}
		return nil, &entities.RawCallError{Data: []byte(err.Error())}
	}
	return result, nil
}

var _ ports.Forwarder = (*LocalForwarder)(nil)
