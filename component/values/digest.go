package values

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
)

// Digest is the committed hash of a component's capability manifest. Only the
// digest is ever stored; the full manifest is re-supplied and re-verified at
// both install and uninstall time.
type Digest struct {
	algorithm string // sha256, sha512
	value     string // hex-encoded hash
}

// NewDigest creates a digest from algorithm and hex value.
func NewDigest(algorithm, hexValue string) (Digest, error) {
	switch algorithm {
	case "sha256", "sha512":
		// Valid
	default:
		return Digest{}, fmt.Errorf("unsupported digest algorithm: %s", algorithm)
	}
	return Digest{algorithm: algorithm, value: hexValue}, nil
}

// ParseDigest parses a digest string (e.g., "sha256:abc123...").
func ParseDigest(s string) (Digest, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Digest{}, fmt.Errorf("invalid digest format: %s", s)
	}
	return NewDigest(parts[0], parts[1])
}

// ComputeDigest computes the SHA-256 digest of data. This is the canonical
// algorithm for manifest commitments.
func ComputeDigest(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest{algorithm: "sha256", value: hex.EncodeToString(sum[:])}
}

// String returns the canonical digest string.
func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", d.algorithm, d.value)
}

// Algorithm returns the hash algorithm.
func (d Digest) Algorithm() string {
	return d.algorithm
}

// Value returns the hex-encoded hash value.
func (d Digest) Value() string {
	return d.value
}

// IsZero reports whether no digest has been committed. A zero digest marks a
// component slot as not installed.
func (d Digest) IsZero() bool {
	return d.algorithm == "" && d.value == ""
}

// Equals checks equality with another digest.
func (d Digest) Equals(other Digest) bool {
	return d.algorithm == other.algorithm && d.value == other.value
}

// Verify validates data matches this digest.
func (d Digest) Verify(data []byte) error {
	computed, err := d.computeHash(data)
	if err != nil {
		return err
	}
	if !d.Equals(computed) {
		return fmt.Errorf("digest mismatch: expected %s, got %s", d.String(), computed.String())
	}
	return nil
}

func (d Digest) computeHash(data []byte) (Digest, error) {
	switch d.algorithm {
	case "sha256":
		sum := sha256.Sum256(data)
		return Digest{algorithm: "sha256", value: hex.EncodeToString(sum[:])}, nil
	case "sha512":
		sum := sha512.Sum512(data)
		return Digest{algorithm: "sha512", value: hex.EncodeToString(sum[:])}, nil
	default:
		return Digest{}, fmt.Errorf("unsupported algorithm: %s", d.algorithm)
	}
}
