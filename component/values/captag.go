package values

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// CapabilityTagLen is the byte length of a capability tag.
const CapabilityTagLen = 4

// CapabilityTag identifies a capability a component may declare support for.
// Tags are reference-counted by the store so that several installed
// components can declare the same capability.
type CapabilityTag [CapabilityTagLen]byte

// TagProvider is the capability tag every installable component must
// advertise. Install rejects components that do not support it.
var TagProvider = TagFromName("acctlib.component-provider.v1")

// TagFromName derives a capability tag from a stable name. The tag is the
// first four bytes of the SHA-256 of the name.
func TagFromName(name string) CapabilityTag {
	sum := sha256.Sum256([]byte(name))
	var t CapabilityTag
	copy(t[:], sum[:CapabilityTagLen])
	return t
}

// ParseCapabilityTag parses a hex-encoded tag, with or without a "0x" prefix.
func ParseCapabilityTag(s string) (CapabilityTag, error) {
	raw := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(raw) != CapabilityTagLen*2 {
		return CapabilityTag{}, fmt.Errorf("invalid capability tag length: %q", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return CapabilityTag{}, fmt.Errorf("invalid capability tag: %w", err)
	}
	var t CapabilityTag
	copy(t[:], b)
	return t, nil
}

// String returns the canonical 0x-prefixed hex form.
func (t CapabilityTag) String() string {
	return "0x" + hex.EncodeToString(t[:])
}

// IsZero reports whether the tag is unset.
func (t CapabilityTag) IsZero() bool {
	return t == CapabilityTag{}
}
