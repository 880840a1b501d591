// Package capability turns component manifests into reviewable permission
// requests: extraction, risk analysis, approval persistence, and interactive
// prompting.
package capability

import (
	"fmt"

	"github.com/modacct/account-sdk/component/entities"
)

// ExtractRequests walks a manifest and returns one Request per permission it
// claims, in manifest order. An empty slice means the manifest asks for
// nothing beyond its own validation wiring.
func ExtractRequests(m *entities.Manifest) []Request {
	var reqs []Request

	for _, sel := range m.ExecutionFunctions {
		reqs = append(reqs, Request{
			Kind:        "operation",
			Description: fmt.Sprintf("own account operation %s", sel),
		})
	}

	for _, op := range m.PermittedOperations {
		reqs = append(reqs, Request{
			Kind:        "internal-call",
			Description: fmt.Sprintf("invoke account operation %s", op),
		})
	}

	if m.PermitAnyExternalTarget {
		reqs = append(reqs, Request{
			Kind:        "external-call",
			Description: "call any external target with any selector",
			IsBroad:     true,
		})
	}
	for _, perm := range m.ExternalCalls {
		if perm.PermitAnySelector {
			reqs = append(reqs, Request{
				Kind:        "external-call",
				Description: fmt.Sprintf("call any selector on external target %s", perm.Target),
				IsBroad:     true,
			})
			continue
		}
		for _, sel := range perm.Selectors {
			reqs = append(reqs, Request{
				Kind:        "external-call",
				Description: fmt.Sprintf("call %s on external target %s", sel, perm.Target),
			})
		}
	}

	if m.CanSpendValue {
		reqs = append(reqs, Request{
			Kind:        "spend",
			Description: "attach account value to external calls",
			IsBroad:     true,
		})
	}

	for _, h := range m.ExecutionHooks {
		reqs = append(reqs, Request{
			Kind:        "execution-hook",
			Description: fmt.Sprintf("intercept execution of operation %s", h.Operation),
		})
	}

	return reqs
}
