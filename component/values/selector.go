package values

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SelectorLen is the byte length of an operation identifier.
const SelectorLen = 4

// Selector is an opaque 4-byte tag naming a callable operation on the account.
type Selector [SelectorLen]byte

// ParseSelector parses a hex-encoded selector, with or without a "0x" prefix.
func ParseSelector(s string) (Selector, error) {
	raw := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(raw) != SelectorLen*2 {
		return Selector{}, fmt.Errorf("invalid selector length: %q", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid selector: %w", err)
	}
	var sel Selector
	copy(sel[:], b)
	return sel, nil
}

// SelectorFromSignature derives a selector from a human-readable operation
// signature such as "setNumber(uint256)". The tag is the first four bytes of
// the SHA-256 of the signature.
func SelectorFromSignature(signature string) Selector {
	sum := sha256.Sum256([]byte(signature))
	var sel Selector
	copy(sel[:], sum[:SelectorLen])
	return sel
}

// String returns the canonical 0x-prefixed hex form.
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// IsZero reports whether the selector is unset.
func (s Selector) IsZero() bool {
	return s == Selector{}
}
