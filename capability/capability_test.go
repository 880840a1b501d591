package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modacct/account-sdk/capability"
	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/values"
)

func permissiveManifest() *entities.Manifest {
	return &entities.Manifest{
		Name:                    "treasury",
		PermitAnyExternalTarget: true,
		CanSpendValue:           true,
		PermittedOperations: []values.Selector{
			values.SelectorFromSignature("transfer(address,uint256)"),
		},
	}
}

func TestExtractRequests(t *testing.T) {
	t.Parallel()

	t.Run("empty manifest asks for nothing", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, capability.ExtractRequests(&entities.Manifest{Name: "inert"}))
	})

	t.Run("broad flags produce broad requests", func(t *testing.T) {
		t.Parallel()
		reqs := capability.ExtractRequests(permissiveManifest())
		require.Len(t, reqs, 3)

		broad := 0
		for _, r := range reqs {
			if r.IsBroad {
				broad++
			}
		}
		assert.Equal(t, 2, broad, "any-target and spend are broad")
	})

	t.Run("selector grants are itemized", func(t *testing.T) {
		t.Parallel()
		target := values.MustParseAddress("0x0000000000000000000000000000000000000e01")
		sel := values.SelectorFromSignature("approve(address,uint256)")
		m := &entities.Manifest{
			Name: "approver",
			ExternalCalls: []entities.ExternalCallPermission{
				{Target: target, Selectors: []values.Selector{sel}},
			},
		}
		reqs := capability.ExtractRequests(m)
		require.Len(t, reqs, 1)
		assert.Equal(t, "external-call", reqs[0].Kind)
		assert.False(t, reqs[0].IsBroad)
		assert.Contains(t, reqs[0].Description, target.String())
	})
}

func TestAnalyzeRisk(t *testing.T) {
	t.Parallel()

	t.Run("nil and inert manifests are risk free", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, capability.RiskNone, capability.AnalyzeRisk(nil).Level)
		assert.Equal(t, capability.RiskNone, capability.AnalyzeRisk(&entities.Manifest{Name: "inert"}).Level)
	})

	t.Run("unrestricted external calls are critical", func(t *testing.T) {
		t.Parallel()
		report := capability.AnalyzeRisk(permissiveManifest())
		assert.Equal(t, capability.RiskCritical, report.Level)
		assert.NotEmpty(t, report.RiskFactors)
	})

	t.Run("scoped external calls are medium", func(t *testing.T) {
		t.Parallel()
		m := &entities.Manifest{
			Name: "approver",
			ExternalCalls: []entities.ExternalCallPermission{
				{
					Target:    values.MustParseAddress("0x0000000000000000000000000000000000000e01"),
					Selectors: []values.Selector{values.SelectorFromSignature("approve(address,uint256)")},
				},
			},
		}
		assert.Equal(t, capability.RiskMedium, capability.AnalyzeRisk(m).Level)
	})

	t.Run("value spending is high", func(t *testing.T) {
		t.Parallel()
		m := &entities.Manifest{Name: "spender", CanSpendValue: true}
		assert.Equal(t, capability.RiskHigh, capability.AnalyzeRisk(m).Level)
	})
}
