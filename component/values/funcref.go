package values

import "fmt"

// RefKind discriminates the variants of a FuncRef.
type RefKind uint8

const (
	// RefEmpty is the "none" sentinel.
	RefEmpty RefKind = iota

	// RefConcrete identifies a specific local function on a specific component.
	RefConcrete

	// RefAlwaysAllow is the magic value that short-circuits a runtime
	// validation slot to "permitted". It is never a real function.
	RefAlwaysAllow

	// RefAlwaysDeny is the magic value that short-circuits a hook slot to
	// "denied". It is never a real function.
	RefAlwaysDeny
)

// String returns a stable name for the kind.
func (k RefKind) String() string {
	switch k {
	case RefEmpty:
		return "empty"
	case RefConcrete:
		return "concrete"
	case RefAlwaysAllow:
		return "always-allow"
	case RefAlwaysDeny:
		return "always-deny"
	default:
		return fmt.Sprintf("refkind(%d)", uint8(k))
	}
}

// FuncRef is a resolved, tagged reference to a function on a component, or
// one of the magic sentinels. The sentinel variants were bit patterns packed
// into the handle in the original design; here they are explicit variants so
// every resolution site can match exhaustively.
//
// FuncRef is comparable and safe to use as a map key.
type FuncRef struct {
	addr Address
	kind RefKind
	fn   uint8
}

// EmptyRef returns the "none" sentinel.
func EmptyRef() FuncRef {
	return FuncRef{kind: RefEmpty}
}

// NewFuncRef returns a concrete reference to local function fn on component addr.
func NewFuncRef(addr Address, fn uint8) FuncRef {
	return FuncRef{kind: RefConcrete, addr: addr, fn: fn}
}

// AlwaysAllowRef returns the runtime-validation magic value.
func AlwaysAllowRef() FuncRef {
	return FuncRef{kind: RefAlwaysAllow}
}

// AlwaysDenyRef returns the hook magic value.
func AlwaysDenyRef() FuncRef {
	return FuncRef{kind: RefAlwaysDeny}
}

// Kind returns the variant tag.
func (r FuncRef) Kind() RefKind {
	return r.kind
}

// Address returns the owning component of a concrete reference, or the zero
// address for sentinels.
func (r FuncRef) Address() Address {
	return r.addr
}

// Fn returns the local function tag of a concrete reference.
func (r FuncRef) Fn() uint8 {
	return r.fn
}

// IsEmpty reports whether the reference is the "none" sentinel.
func (r FuncRef) IsEmpty() bool {
	return r.kind == RefEmpty
}

// String renders the reference for logs and error messages.
func (r FuncRef) String() string {
	if r.kind == RefConcrete {
		return fmt.Sprintf("%s#%d", r.addr, r.fn)
	}
	return r.kind.String()
}
