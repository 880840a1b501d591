// Package services contains the domain services the lifecycle manager
// composes: manifest integrity, function-reference resolution, and dependency
// validation.
package services

import (
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

// IntegrityService verifies manifests against committed digests. The full
// manifest is supplied fresh by the caller at install and uninstall time and
// only ever validated, never retained.
type IntegrityService struct{}

// NewIntegrityService creates an integrity service.
func NewIntegrityService() *IntegrityService {
	return &IntegrityService{}
}

// VerifyManifest recomputes the manifest digest and checks it against the
// expected commitment.
func (s *IntegrityService) VerifyManifest(m *entities.Manifest, expected values.Digest) error {
	actual := m.Digest()
	if !actual.Equals(expected) {
		return &entities.ManifestDigestError{Expected: expected, Actual: actual}
	}
	return nil
}
