package validation_test

import (
	"testing"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
	"github.com/modacct/account-sdk/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hookA = values.NewFuncRef(values.MustParseAddress("0x00000000000000000000000000000000000000aa"), 1)
	hookB = values.NewFuncRef(values.MustParseAddress("0x00000000000000000000000000000000000000bb"), 1)
	aggG1 = values.MustParseAddress("0x0000000000000000000000000000000000000011")
	aggG2 = values.MustParseAddress("0x0000000000000000000000000000000000000022")
)

func sourced(results ...validation.Result) []validation.Sourced {
	out := make([]validation.Sourced, len(results))
	for i, r := range results {
		out[i] = validation.Sourced{Source: hookA, Result: r}
	}
	return out
}

func TestIntersect_TimeWindows(t *testing.T) {
	t.Parallel()

	a := validation.Result{ValidAfter: 10, ValidUntil: 20}
	b := validation.Result{ValidAfter: 15, ValidUntil: 25}

	for _, order := range [][]validation.Result{{a, b}, {b, a}} {
		got, err := validation.Intersect(sourced(order...))
		require.NoError(t, err)
		assert.Equal(t, uint64(15), got.ValidAfter)
		assert.Equal(t, uint64(20), got.ValidUntil)
	}
}

func TestIntersect_ZeroUntilIsUnbounded(t *testing.T) {
	t.Parallel()

	got, err := validation.Intersect(sourced(
		validation.Result{ValidAfter: 5, ValidUntil: 0},
		validation.Result{ValidAfter: 1, ValidUntil: 100},
	))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.ValidAfter)
	assert.Equal(t, uint64(100), got.ValidUntil)

	got, err = validation.Intersect(sourced(validation.Result{ValidUntil: 0}))
	require.NoError(t, err)
	assert.Equal(t, validation.Unbounded, got.ValidUntil)
}

func TestIntersect_SignatureFailureIsSticky(t *testing.T) {
	t.Parallel()

	got, err := validation.Intersect(sourced(
		validation.SignatureFailed(),
		validation.Result{ValidAfter: 1, ValidUntil: 2},
	))
	require.NoError(t, err)
	assert.True(t, got.SigFailed, "a later success must not downgrade a failure")
}

func TestIntersect_SingleAggregatorWins(t *testing.T) {
	t.Parallel()

	got, err := validation.Intersect([]validation.Sourced{
		{Source: hookA, Result: validation.Result{Authorizer: aggG1}},
		{Source: hookB, Result: validation.Result{}},
	})
	require.NoError(t, err)
	assert.Equal(t, aggG1, got.Authorizer)
}

func TestIntersect_NoAggregatorMeansEmpty(t *testing.T) {
	t.Parallel()

	got, err := validation.Intersect(sourced(validation.Result{}, validation.Result{}))
	require.NoError(t, err)
	assert.True(t, got.Authorizer.IsZero())
}

func TestIntersect_AggregatorConflict(t *testing.T) {
	t.Parallel()

	_, err := validation.Intersect([]validation.Sourced{
		{Source: hookA, Result: validation.Result{Authorizer: aggG1}},
		{Source: hookB, Result: validation.Result{Authorizer: aggG2}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrUnexpectedAggregator)

	var conflict *entities.AggregatorConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, hookB, conflict.Hook, "the error must name the offending function")
	assert.Equal(t, aggG2, conflict.Unexpected)
}

func TestIntersect_SameAggregatorTwiceIsFine(t *testing.T) {
	t.Parallel()

	got, err := validation.Intersect([]validation.Sourced{
		{Source: hookA, Result: validation.Result{Authorizer: aggG1}},
		{Source: hookB, Result: validation.Result{Authorizer: aggG1}},
	})
	require.NoError(t, err)
	assert.Equal(t, aggG1, got.Authorizer)
}
