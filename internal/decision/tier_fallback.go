package decision

import (
	"context"
	"fmt"

	"stratgen/internal/market"
	"stratgen/internal/scoring"
	"stratgen/internal/strategy"
)

// Fixed ratios used by the fallback tier.
const (
	fallbackEntryRatio       = 30
	fallbackBullishRatio     = 20
	fallbackBearishExitRatio = 100
	fallbackTarget1ExitRatio = 50
	fallbackTarget2ExitRatio = 100
)

type horizonPhrases struct {
	timing   string
	sideways string
	target2  string
}

var fallbackPhrases = map[market.Horizon]horizonPhrases{
	market.HorizonSwing: {
		timing:   "split the entry over the next 1-3 sessions",
		sideways: "hold and reassess within a week",
		target2:  "close the swing trade",
	},
	market.HorizonMedium: {
		timing:   "build the position over the next 1-2 weeks",
		sideways: "hold and reassess at the monthly close",
		target2:  "complete the medium-term exit",
	},
	market.HorizonLong: {
		timing:   "accumulate gradually over several weeks",
		sideways: "keep holding while the long-term thesis is intact",
		target2:  "realize the long-term objective",
	},
}

// FallbackTier never fails; it only uses the prices already in the Context.
type FallbackTier struct{}

func NewFallbackTier() *FallbackTier { return &FallbackTier{} }

func (FallbackTier) Source() Source { return SourceFallback }

func (FallbackTier) Generate(_ context.Context, c Context) TierOutcome {
	s := BuildFallbackStrategy(c)
	return TierOutcome{Attempted: true, Strategy: &s}
}

// BuildFallbackStrategy uses fixed ratios and horizon phrasing.
func BuildFallbackStrategy(c Context) strategy.InvestmentStrategy {
	ph, ok := fallbackPhrases[c.Horizon]
	if !ok {
		ph = fallbackPhrases[market.HorizonSwing]
	}
	stop := c.StopLossPrice
	if !(stop > 0) {
		stop = c.EntryPrice * 0.95
	}
	stopPct := clampPercent(scoring.PercentChange(c.EntryPrice, stop))
	return strategy.InvestmentStrategy{
		Phase1: strategy.Phase1{
			EntryRatio:  fallbackEntryRatio,
			EntryTiming: ph.timing,
			Reasoning:   fmt.Sprintf("conservative default plan for %s while detailed analysis is unavailable", horizonLabel(c.Horizon)),
			StopLoss: strategy.StopLoss{
				Price:   stop,
				Percent: stopPct,
				Timing:  "on a daily close below the stop price",
				Reason:  "limits the loss on a failed setup",
			},
		},
		Phase2: strategy.Phase2{
			Bullish: strategy.Scenario{
				Condition:   fmt.Sprintf("price rises toward %s", price(c.TargetPrice1)),
				Action:      "add a small tranche",
				ActionRatio: strategy.Ratio(fallbackBullishRatio),
				Reason:      "participate cautiously in confirmed strength",
			},
			Sideways: strategy.Scenario{
				Condition: "price moves without clear direction",
				Action:    ph.sideways,
				Reason:    "wait for the market to pick a direction",
			},
			Bearish: strategy.Scenario{
				Condition: fmt.Sprintf("price falls to %s", price(stop)),
				Action:    "exit the whole position",
				ExitRatio: strategy.Ratio(fallbackBearishExitRatio),
				Reason:    "capital protection comes first",
			},
		},
		Phase3: strategy.Phase3{
			Target1: strategy.Target{
				Price:     price(c.TargetPrice1),
				Action:    "take half of the profit",
				ExitRatio: fallbackTarget1ExitRatio,
				Reason:    "lock in gains at the first target",
			},
			Target2: strategy.Target{
				Price:     price(c.TargetPrice2),
				Action:    ph.target2,
				ExitRatio: fallbackTarget2ExitRatio,
				Reason:    "the planned objective is reached",
			},
		},
	}
}
