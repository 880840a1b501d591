// Package values contains immutable value objects shared across the account SDK.
package values

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLen is the byte length of a component or external-target handle.
const AddressLen = 20

// Address is an opaque, address-like handle identifying a component or an
// external call target. The zero value means "no address".
type Address [AddressLen]byte

// ParseAddress parses a hex-encoded address, with or without a "0x" prefix.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(raw) != AddressLen*2 {
		return Address{}, fmt.Errorf("invalid address length: %q", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address: %w", err)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// MustParseAddress is ParseAddress that panics on error. Intended for tests
// and package-level fixtures.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the canonical 0x-prefixed hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the empty handle.
func (a Address) IsZero() bool {
	return a == Address{}
}
