package capability

import (
	"context"
	"time"

	"github.com/modacct/account-sdk/component/entities"
)

// Request represents a single permission request extracted from a manifest,
// phrased for a human reviewer.
type Request struct {
	Kind        string
	Description string
	IsBroad     bool
}

// ApprovalRecord remembers one approved manifest.
type ApprovalRecord struct {
	Name       string    `yaml:"name"`
	Version    string    `yaml:"version,omitempty"`
	ApprovedAt time.Time `yaml:"approvedAt"`
}

// ApprovalSet is the persisted set of approved manifests, keyed by manifest
// digest. A digest key means the exact manifest was reviewed and approved;
// any change to the manifest changes the digest and voids the approval.
type ApprovalSet struct {
	Approved map[string]ApprovalRecord `yaml:"approved"`
}

// NewApprovalSet returns an empty set.
func NewApprovalSet() *ApprovalSet {
	return &ApprovalSet{Approved: make(map[string]ApprovalRecord)}
}

// Contains reports whether a manifest digest was approved.
func (s *ApprovalSet) Contains(digest string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Approved[digest]
	return ok
}

// Add records an approval.
func (s *ApprovalSet) Add(digest string, rec ApprovalRecord) {
	if s.Approved == nil {
		s.Approved = make(map[string]ApprovalRecord)
	}
	s.Approved[digest] = rec
}

// GatekeeperPort approves manifests based on security policy.
type GatekeeperPort interface {
	ApproveInstall(ctx context.Context, m *entities.Manifest) error
}

// GrantStore persists and retrieves manifest approvals.
type GrantStore interface {
	Load() (*ApprovalSet, error)
	Save(approvals *ApprovalSet) error
	ConfigPath() string
}

// Prompter handles interactive manifest authorization.
type Prompter interface {
	IsInteractive() bool
	PromptForRequest(req Request) (granted bool, always bool, err error)
	FormatNonInteractiveError(name string, requests []Request) error
}
