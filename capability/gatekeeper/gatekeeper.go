// Package gatekeeper approves manifests before installation: loads stored
// approvals, prompts for anything unapproved, persists decisions.
package gatekeeper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/modacct/account-sdk/capability"
	"github.com/modacct/account-sdk/capability/grantstore"
	"github.com/modacct/account-sdk/component/entities"
)

// SecurityLevel controls the gatekeeper's prompting behavior.
type SecurityLevel string

const (
	SecurityStrict     SecurityLevel = "strict"
	SecurityStandard   SecurityLevel = "standard"
	SecurityPermissive SecurityLevel = "permissive"
)

// Gatekeeper approves manifests: loads stored approvals, checks the manifest
// digest against them, prompts for the rest, persists decisions.
type Gatekeeper struct {
	store         capability.GrantStore
	prompter      capability.Prompter
	securityLevel SecurityLevel
	trustAll      bool
}

// Option configures a Gatekeeper.
type Option func(*Gatekeeper)

// WithStore sets the approval store.
func WithStore(s capability.GrantStore) Option {
	return func(g *Gatekeeper) { g.store = s }
}

// WithPrompter sets the prompter.
func WithPrompter(p capability.Prompter) Option {
	return func(g *Gatekeeper) { g.prompter = p }
}

// WithSecurityLevel sets the security policy level.
func WithSecurityLevel(level SecurityLevel) Option {
	return func(g *Gatekeeper) { g.securityLevel = level }
}

// WithTrustAll makes the gatekeeper approve every manifest without prompting.
func WithTrustAll(trust bool) Option {
	return func(g *Gatekeeper) { g.trustAll = trust }
}

// NewGatekeeper creates a manifest gatekeeper with pluggable store and prompter.
func NewGatekeeper(opts ...Option) *Gatekeeper {
	g := &Gatekeeper{
		securityLevel: SecurityStandard,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.store == nil {
		g.store = grantstore.NewFileStore()
	}
	if g.prompter == nil {
		g.prompter = NewTerminalPrompter()
	}
	return g
}

// ApproveInstall decides whether a manifest may be installed, based on
// security policy, stored approvals, and user input. It implements the
// lifecycle manager's Gatekeeper interface.
func (g *Gatekeeper) ApproveInstall(_ context.Context, m *entities.Manifest) error {
	digest := m.Digest().String()

	if g.trustAll {
		slog.Warn("auto-approving manifest (trust-all enabled)",
			"name", m.Name, "digest", digest)
		return nil
	}

	approvals, err := g.store.Load()
	if err != nil {
		approvals = capability.NewApprovalSet()
	}
	if approvals.Contains(digest) {
		return nil
	}

	requests := capability.ExtractRequests(m)
	if len(requests) == 0 {
		return nil
	}

	if !g.prompter.IsInteractive() {
		return g.prompter.FormatNonInteractiveError(m.Name, requests)
	}

	shouldSave := false
	for _, req := range requests {
		granted, always, err := g.evaluateWithSecurityLevel(req)
		if err != nil {
			return err
		}
		if !granted {
			return fmt.Errorf("permission denied by user: %s", req.Description)
		}
		if always {
			shouldSave = true
		}
	}

	if shouldSave {
		approvals.Add(digest, capability.ApprovalRecord{
			Name:       m.Name,
			Version:    m.Version,
			ApprovedAt: time.Now().UTC(),
		})
		if err := g.store.Save(approvals); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save approvals: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Approval saved to %s\n", g.store.ConfigPath())
		}
	}
	return nil
}

// evaluateWithSecurityLevel applies security level policy and prompts if needed.
func (g *Gatekeeper) evaluateWithSecurityLevel(req capability.Request) (bool, bool, error) {
	if req.IsBroad {
		switch g.securityLevel {
		case SecurityStrict:
			slog.Error("broad permission denied by security policy",
				"level", "strict",
				"permission", req.Description)
			return false, false, fmt.Errorf("broad permission denied by strict security policy: %s", req.Description)

		case SecurityPermissive:
			slog.Warn("auto-granting broad permission (permissive mode)",
				"permission", req.Description)
			return true, false, nil
		}
	}

	if g.securityLevel == SecurityPermissive {
		return true, false, nil
	}

	return g.prompter.PromptForRequest(req)
}
