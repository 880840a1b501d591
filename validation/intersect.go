package validation

import (
	"github.com/modacct/account-sdk/component/entities"
)

// Intersect reduces an ordered sequence of validation results (pre-validation
// hooks first, main validation last) into one composite decision:
//
//   - any signature failure makes the composite a signature failure; nothing
//     later can downgrade it back to success
//   - the composite window is the intersection of all windows: max of
//     validAfter, min of validUntil, where a zero validUntil is widened to
//     Unbounded before taking the minimum
//   - at most one distinct non-empty authorizer may appear across the whole
//     chain; a second one is an aggregator conflict naming the offending
//     function
func Intersect(results []Sourced) (Result, error) {
	composite := Result{ValidUntil: Unbounded}

	for _, sr := range results {
		r := sr.Result
		if r.SigFailed {
			composite.SigFailed = true
		}

		if r.ValidAfter > composite.ValidAfter {
			composite.ValidAfter = r.ValidAfter
		}
		until := r.ValidUntil
		if until == 0 {
			until = Unbounded
		}
		if until < composite.ValidUntil {
			composite.ValidUntil = until
		}

		if r.Authorizer.IsZero() {
			continue
		}
		if composite.Authorizer.IsZero() {
			composite.Authorizer = r.Authorizer
			continue
		}
		if composite.Authorizer != r.Authorizer {
			return Result{}, &entities.AggregatorConflictError{
				Hook:       sr.Source,
				Unexpected: r.Authorizer,
			}
		}
	}

	return composite, nil
}
