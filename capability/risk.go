package capability

import (
	"fmt"

	"github.com/modacct/account-sdk/component/entities"
)

// RiskLevel represents the security risk level of a manifest's permission set.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

// String returns a stable name for the level.
func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "none"
	}
}

// RiskReport contains the overall risk assessment for a manifest.
type RiskReport struct {
	RiskFactors []RiskFactor
	Level       RiskLevel
}

// RiskFactor describes a single risk element in a manifest.
type RiskFactor struct {
	Description string
	Level       RiskLevel
}

// AnalyzeRisk evaluates what a manifest could do to the account if the
// component misbehaved.
func AnalyzeRisk(m *entities.Manifest) RiskReport {
	report := RiskReport{Level: RiskNone}
	if m == nil {
		return report
	}

	addFactor := func(level RiskLevel, desc string) {
		if level > RiskNone {
			report.RiskFactors = append(report.RiskFactors, RiskFactor{
				Level:       level,
				Description: desc,
			})
			if level > report.Level {
				report.Level = level
			}
		}
	}

	if m.PermitAnyExternalTarget {
		addFactor(RiskCritical, "unrestricted external calls")
	}
	for _, perm := range m.ExternalCalls {
		if perm.PermitAnySelector {
			addFactor(RiskHigh, fmt.Sprintf("any selector on external target %s", perm.Target))
		} else if len(perm.Selectors) > 0 {
			addFactor(RiskMedium, fmt.Sprintf("external calls to %s", perm.Target))
		}
	}

	if m.CanSpendValue {
		addFactor(RiskHigh, "can spend account value")
	}

	if len(m.PermittedOperations) > 0 {
		addFactor(RiskMedium, fmt.Sprintf("invokes %d account operation(s)", len(m.PermittedOperations)))
	}
	if len(m.ExecutionHooks) > 0 {
		addFactor(RiskMedium, fmt.Sprintf("intercepts %d operation(s)", len(m.ExecutionHooks)))
	}
	if len(m.ExecutionFunctions) > 0 {
		addFactor(RiskLow, fmt.Sprintf("owns %d account operation(s)", len(m.ExecutionFunctions)))
	}

	return report
}
