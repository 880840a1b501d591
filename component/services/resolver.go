package services

import (
	"fmt"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

// Slot names the kind of slot a manifest function declaration resolves into.
// Each slot kind admits a different set of reference variants.
type Slot int

const (
	// SlotUserOpValidation admits self and dependency references.
	SlotUserOpValidation Slot = iota

	// SlotRuntimeValidation additionally admits the always-allow magic value.
	SlotRuntimeValidation

	// SlotHook covers pre-validation and execution hooks and additionally
	// admits the always-deny magic value.
	SlotHook
)

// String returns a stable name for error messages.
func (s Slot) String() string {
	switch s {
	case SlotRuntimeValidation:
		return "runtime validation"
	case SlotHook:
		return "hook"
	default:
		return "user-op validation"
	}
}

// ResolveFunction turns a manifest declaration into a function handle,
// rejecting structurally invalid assignments: magic values in slots that
// forbid them and dependency indexes out of range. An absent declaration
// resolves to the empty handle; whether empty is legal is the caller's
// decision per slot.
func ResolveFunction(decl entities.FuncDecl, slot Slot, self values.Address, deps []values.FuncRef) (values.FuncRef, error) {
	switch decl.Kind {
	case entities.DeclNone:
		return values.EmptyRef(), nil

	case entities.DeclSelf:
		return values.NewFuncRef(self, decl.Fn), nil

	case entities.DeclDependency:
		if decl.DependencyIndex >= uint(len(deps)) {
			return values.EmptyRef(), &entities.FunctionResolutionError{
				Slot:   slot.String(),
				Reason: fmt.Sprintf("dependency index %d out of range (%d dependencies)", decl.DependencyIndex, len(deps)),
			}
		}
		return deps[decl.DependencyIndex], nil

	case entities.DeclAlwaysAllow:
		if slot != SlotRuntimeValidation {
			return values.EmptyRef(), &entities.FunctionResolutionError{
				Slot:   slot.String(),
				Reason: "always-allow is legal only for runtime validation",
			}
		}
		return values.AlwaysAllowRef(), nil

	case entities.DeclAlwaysDeny:
		if slot != SlotHook {
			return values.EmptyRef(), &entities.FunctionResolutionError{
				Slot:   slot.String(),
				Reason: "always-deny is legal only for hooks",
			}
		}
		return values.AlwaysDenyRef(), nil

	default:
		return values.EmptyRef(), &entities.FunctionResolutionError{
			Slot:   slot.String(),
			Reason: fmt.Sprintf("unknown declaration kind %q", decl.Kind),
		}
	}
}
