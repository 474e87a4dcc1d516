package decision

import (
	"context"

	"stratgen/internal/strategy"
)

// TierOutcome is what a tier reports back to the generator.
// Attempted=false means the tier was skipped and must not be counted.
type TierOutcome struct {
	Attempted  bool
	Strategy   *strategy.InvestmentStrategy
	Repaired   bool
	Validation *strategy.ValidationResult
	TokensUsed int
	Err        *TierError
}

// Succeeded reports a usable strategy.
func (o TierOutcome) Succeeded() bool {
	return o.Attempted && o.Err == nil && o.Strategy != nil
}

// Tier is one candidate method for producing a strategy. Implementations must not panic
// under valid input; the generator recovers anyway.
type Tier interface {
	Source() Source
	Generate(ctx context.Context, c Context) TierOutcome
}

func skipped(src Source, reason string) TierOutcome {
	return TierOutcome{Err: newTierError(src, KindConfigurationAbsent, "%s", reason)}
}

func failed(err *TierError, tokens int, vr *strategy.ValidationResult) TierOutcome {
	return TierOutcome{Attempted: true, Err: err, TokensUsed: tokens, Validation: vr}
}
