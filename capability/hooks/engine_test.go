package hooks_test

import (
	"testing"

	"github.com/modacct/account-sdk/capability/hooks"
	"github.com/modacct/account-sdk/capability/store"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hookOwner = values.MustParseAddress("0x00000000000000000000000000000000000000aa")

func TestEngine_AddRemovePairing(t *testing.T) {
	t.Parallel()

	e := hooks.NewEngine()
	g := store.NewHookGroup()
	pre := values.NewFuncRef(hookOwner, 1)
	post := values.NewFuncRef(hookOwner, 2)

	// Register the identical pairing twice, as two independent components would.
	require.NoError(t, e.Add(g, pre, post))
	require.NoError(t, e.Add(g, pre, post))

	assert.Equal(t, uint(1), g.Pre[pre], "second registration stores one additional duplicate")
	assert.Equal(t, uint(1), g.AssociatedPost[pre][post])

	found, err := e.Remove(g, pre, post)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint(0), g.Pre[pre], "one active registration remains")

	found, err = e.Remove(g, pre, post)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, g.Empty(), "removing both registrations leaves no residual entry")
}

func TestEngine_FirstRegistrationStoresZero(t *testing.T) {
	t.Parallel()

	e := hooks.NewEngine()
	g := store.NewHookGroup()
	pre := values.NewFuncRef(hookOwner, 1)

	require.NoError(t, e.Add(g, pre, values.EmptyRef()))

	n, ok := g.Pre[pre]
	require.True(t, ok)
	assert.Equal(t, uint(0), n)
}

func TestEngine_PostOnly(t *testing.T) {
	t.Parallel()

	e := hooks.NewEngine()
	g := store.NewHookGroup()
	post := values.NewFuncRef(hookOwner, 2)

	require.NoError(t, e.Add(g, values.EmptyRef(), post))
	assert.Contains(t, g.PostOnly, post)
	assert.Empty(t, g.Pre)

	found, err := e.Remove(g, values.EmptyRef(), post)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, g.Empty())
}

func TestEngine_NullPairing(t *testing.T) {
	t.Parallel()

	e := hooks.NewEngine()
	g := store.NewHookGroup()

	err := e.Add(g, values.EmptyRef(), values.EmptyRef())
	assert.ErrorIs(t, err, entities.ErrNullReference)

	_, err = e.Remove(g, values.EmptyRef(), values.EmptyRef())
	assert.ErrorIs(t, err, entities.ErrNullReference)
}

func TestEngine_RemoveAbsentIsNoOp(t *testing.T) {
	t.Parallel()

	e := hooks.NewEngine()
	g := store.NewHookGroup()
	pre := values.NewFuncRef(hookOwner, 1)

	found, err := e.Remove(g, pre, values.EmptyRef())
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, g.Empty())
}

func TestEngine_AlwaysDenySentinelIsCountable(t *testing.T) {
	t.Parallel()

	// The always-deny magic value is a legal hook and must count like any
	// other registration.
	e := hooks.NewEngine()
	g := store.NewHookGroup()
	deny := values.AlwaysDenyRef()

	require.NoError(t, e.Add(g, deny, values.EmptyRef()))
	require.NoError(t, e.Add(g, deny, values.EmptyRef()))
	assert.Equal(t, uint(1), g.Pre[deny])

	_, err := e.Remove(g, deny, values.EmptyRef())
	require.NoError(t, err)
	_, err = e.Remove(g, deny, values.EmptyRef())
	require.NoError(t, err)
	assert.True(t, g.Empty())
}
