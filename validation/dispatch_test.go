package validation_test

import (
	"context"
	"testing"

	"github.com/modacct/account-sdk/capability/store"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
	"github.com/modacct/account-sdk/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	results map[values.FuncRef]validation.Result
	calls   []values.FuncRef
}

func (f *fakeInvoker) InvokeValidation(_ context.Context, ref values.FuncRef, _ validation.Kind, _ []byte) (validation.Result, error) {
	f.calls = append(f.calls, ref)
	return f.results[ref], nil
}

func dispatchFixture(t *testing.T, configure func(txn *store.Txn)) *store.Store {
	t.Helper()
	s := store.New()
	require.NoError(t, s.Initialize())
	txn, err := s.Begin()
	require.NoError(t, err)
	configure(txn)
	txn.Commit()
	return s
}

func TestDispatcher_Run(t *testing.T) {
	t.Parallel()

	op := values.SelectorFromSignature("transfer(address,uint256)")
	owner := values.MustParseAddress("0x00000000000000000000000000000000000000aa")
	mainFn := values.NewFuncRef(owner, 0)
	hookFn := values.NewFuncRef(owner, 1)

	s := dispatchFixture(t, func(txn *store.Txn) {
		require.NoError(t, txn.BindOperation(op, owner))
		require.NoError(t, txn.SetUserOpValidation(op, mainFn))
		txn.PreUserOpHooks(op).Pre[hookFn] = 0
	})

	inv := &fakeInvoker{results: map[values.FuncRef]validation.Result{
		hookFn: {ValidAfter: 10, ValidUntil: 20},
		mainFn: {ValidAfter: 15, ValidUntil: 25},
	}}

	d := validation.NewDispatcher(s, inv)
	got, err := d.Run(context.Background(), op, validation.KindUserOp, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(15), got.ValidAfter)
	assert.Equal(t, uint64(20), got.ValidUntil)
	assert.Equal(t, []values.FuncRef{hookFn, mainFn}, inv.calls, "hooks run before the main function")
}

func TestDispatcher_AlwaysAllowRuntimeValidation(t *testing.T) {
	t.Parallel()

	op := values.SelectorFromSignature("increment()")
	owner := values.MustParseAddress("0x00000000000000000000000000000000000000aa")

	s := dispatchFixture(t, func(txn *store.Txn) {
		require.NoError(t, txn.BindOperation(op, owner))
		require.NoError(t, txn.SetRuntimeValidation(op, values.AlwaysAllowRef()))
	})

	d := validation.NewDispatcher(s, &fakeInvoker{})
	got, err := d.Run(context.Background(), op, validation.KindRuntime, nil)
	require.NoError(t, err)
	assert.False(t, got.SigFailed)
}

func TestDispatcher_AlwaysDenyHookFailsChain(t *testing.T) {
	t.Parallel()

	op := values.SelectorFromSignature("increment()")
	owner := values.MustParseAddress("0x00000000000000000000000000000000000000aa")
	mainFn := values.NewFuncRef(owner, 0)

	s := dispatchFixture(t, func(txn *store.Txn) {
		require.NoError(t, txn.BindOperation(op, owner))
		require.NoError(t, txn.SetRuntimeValidation(op, mainFn))
		txn.PreRuntimeHooks(op).Pre[values.AlwaysDenyRef()] = 0
	})

	inv := &fakeInvoker{results: map[values.FuncRef]validation.Result{mainFn: {}}}
	d := validation.NewDispatcher(s, inv)

	got, err := d.Run(context.Background(), op, validation.KindRuntime, nil)
	require.NoError(t, err)
	assert.True(t, got.SigFailed)
}

func TestDispatcher_MissingValidation(t *testing.T) {
	t.Parallel()

	op := values.SelectorFromSignature("increment()")
	owner := values.MustParseAddress("0x00000000000000000000000000000000000000aa")

	s := dispatchFixture(t, func(txn *store.Txn) {
		require.NoError(t, txn.BindOperation(op, owner))
	})

	d := validation.NewDispatcher(s, &fakeInvoker{})

	_, err := d.Run(context.Background(), op, validation.KindUserOp, nil)
	assert.ErrorIs(t, err, entities.ErrNullReference)

	_, err = d.Run(context.Background(), values.SelectorFromSignature("unknown()"), validation.KindUserOp, nil)
	assert.ErrorIs(t, err, entities.ErrNullReference)
}

func TestDispatcher_AggregatorConflictNamesHook(t *testing.T) {
	t.Parallel()

	op := values.SelectorFromSignature("transfer(address,uint256)")
	owner := values.MustParseAddress("0x00000000000000000000000000000000000000aa")
	mainFn := values.NewFuncRef(owner, 0)
	hookFn := values.NewFuncRef(owner, 1)

	s := dispatchFixture(t, func(txn *store.Txn) {
		require.NoError(t, txn.BindOperation(op, owner))
		require.NoError(t, txn.SetUserOpValidation(op, mainFn))
		txn.PreUserOpHooks(op).Pre[hookFn] = 0
	})

	inv := &fakeInvoker{results: map[values.FuncRef]validation.Result{
		hookFn: {Authorizer: aggG1},
		mainFn: {Authorizer: aggG2},
	}}

	d := validation.NewDispatcher(s, inv)
	_, err := d.Run(context.Background(), op, validation.KindUserOp, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrUnexpectedAggregator)

	var conflict *entities.AggregatorConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, mainFn, conflict.Hook)
}
