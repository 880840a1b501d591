// Package hooks implements the reference-counted composition of pre/post
// hooks over a store.HookGroup.
//
// Two independently authored components may legitimately register the
// identical hook function, so registrations are counted, not deduplicated.
// The count stored for an entry is the number of additional registrations
// beyond the first: the first registration stores 0, each subsequent
// identical registration increments by one, and removal decrements or, at 0,
// deletes the entry.
package hooks

import (
	"github.com/modacct/account-sdk/capability/store"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

// Engine composes hook registrations on hook groups owned by a store
// transaction. It is stateless.
type Engine struct{}

// NewEngine returns a hook composition engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Add registers a (pre, post) pairing on the group. A pairing with only a
// post hook lands in the post-only multiset; a pairing empty on both sides is
// a null-reference error.
func (e *Engine) Add(g *store.HookGroup, pre, post values.FuncRef) error {
	if pre.IsEmpty() && post.IsEmpty() {
		return entities.ErrNullReference
	}

	if pre.IsEmpty() {
		incrementOrInsert(g.PostOnly, post)
		return nil
	}

	incrementOrInsert(g.Pre, pre)
	if !post.IsEmpty() {
		posts, ok := g.AssociatedPost[pre]
		if !ok {
			posts = make(map[values.FuncRef]uint)
			g.AssociatedPost[pre] = posts
		}
		incrementOrInsert(posts, post)
	}
	return nil
}

// Remove unregisters one instance of a (pre, post) pairing. It reports
// whether a matching registration was found; removing an absent pairing is a
// no-op, which callers that already verified the manifest digest are free to
// ignore.
func (e *Engine) Remove(g *store.HookGroup, pre, post values.FuncRef) (bool, error) {
	if pre.IsEmpty() && post.IsEmpty() {
		return false, entities.ErrNullReference
	}

	if pre.IsEmpty() {
		return decrementOrDelete(g.PostOnly, post), nil
	}

	found := decrementOrDelete(g.Pre, pre)
	if !post.IsEmpty() {
		if posts, ok := g.AssociatedPost[pre]; ok {
			if decrementOrDelete(posts, post) {
				found = true
			}
			if len(posts) == 0 {
				delete(g.AssociatedPost, pre)
			}
		}
	}
	return found, nil
}

func incrementOrInsert(m map[values.FuncRef]uint, ref values.FuncRef) {
	if n, ok := m[ref]; ok {
		m[ref] = n + 1
		return
	}
	// First registration: one active instance, zero additional duplicates.
	m[ref] = 0
}

func decrementOrDelete(m map[values.FuncRef]uint, ref values.FuncRef) bool {
	n, ok := m[ref]
	if !ok {
		return false
	}
	if n > 0 {
		m[ref] = n - 1
		return true
	}
	delete(m, ref)
	return true
}
