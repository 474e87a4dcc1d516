package decision

import (
	"context"
	"fmt"
	"math"

	"stratgen/internal/scoring"
	"stratgen/internal/strategy"
)

// 中文说明：
// 规则层：只依赖指标快照与已算好的价位，无 I/O，正常输入下必然成功。
// 输出仍经过校验器；校验失败视为内部异常，交给兜底层。

// Fixed ratios used by the rule tier.
const (
	ruleBullishActionRatio = 20
	ruleBearishExitRatio   = 70
	ruleTarget1ExitRatio   = 50
	ruleTarget2ExitRatio   = 100
)

// RuleEntryRatio maps RSI and MACD histogram onto the first-entry share.
func RuleEntryRatio(rsi, macdHistogram float64) float64 {
	switch {
	case rsi > 55 && macdHistogram > 0:
		return 40
	case rsi > 50 && macdHistogram > 0:
		return 35
	case rsi < 45 || macdHistogram < 0:
		return 25
	default:
		return 30
	}
}

// BullishTriggerPrice is floor((entry+target1)/2), or the exact midpoint when flooring
// would not land strictly between entry and target1.
func BullishTriggerPrice(entry, target1 float64) float64 {
	mid := (entry + target1) / 2
	if fl := math.Floor(mid); fl > entry && fl < target1 {
		return fl
	}
	return mid
}

type RuleTier struct {
	validator *strategy.Validator
}

func NewRuleTier(v *strategy.Validator) *RuleTier {
	if v == nil {
		v = strategy.NewValidator()
	}
	return &RuleTier{validator: v}
}

func (t *RuleTier) Source() Source { return SourceRuleBased }

func (t *RuleTier) Generate(_ context.Context, c Context) TierOutcome {
	s := BuildRuleStrategy(c)
	vr := t.validator.Validate(s.Draft())
	if !vr.Success {
		return failed(newTierError(SourceRuleBased, KindInternalException, "rule output rejected: %s", joinIssues(vr.Errors)), 0, &vr)
	}
	return TierOutcome{Attempted: true, Strategy: vr.Data, Repaired: vr.Fixed, Validation: &vr}
}

// BuildRuleStrategy is deterministic for a given Context.
func BuildRuleStrategy(c Context) strategy.InvestmentStrategy {
	ind := c.Indicators
	hist := ind.MACDHistogram()
	entryRatio := RuleEntryRatio(ind.RSI, hist)
	trigger := priceBetween(BullishTriggerPrice(c.EntryPrice, c.TargetPrice1), c.EntryPrice, c.TargetPrice1)
	stopPct := clampPercent(scoring.PercentChange(c.EntryPrice, c.StopLossPrice))
	bearLevel := (c.EntryPrice + c.StopLossPrice) / 2
	t1Pct := scoring.PercentChange(c.EntryPrice, c.TargetPrice1)
	t2Pct := scoring.PercentChange(c.EntryPrice, c.TargetPrice2)

	technical := fmt.Sprintf("RSI %.1f (%s), MACD histogram %+.4f (%s)", ind.RSI, rsiLabel(ind.RSI), hist, macdLabel(ind))
	trend := fmt.Sprintf("MA5 %s / MA20 %s / MA60 %s (%s)", price(ind.MA5), price(ind.MA20), price(ind.MA60), maLabel(ind))
	levels := fmt.Sprintf("support near %s, resistance near %s (%s)", price(ind.BBLower), price(ind.BBUpper), bollingerLabel(c.EntryPrice, ind))
	volume := fmt.Sprintf("volume ratio %.2fx (%s)", ind.VolumeRatio, volumeLabel(ind.VolumeRatio))

	return strategy.InvestmentStrategy{
		Phase1: strategy.Phase1{
			EntryRatio:  entryRatio,
			EntryTiming: fmt.Sprintf("enter %.0f%% near %s, keep the rest for confirmation above %s", entryRatio, price(c.EntryPrice), trigger),
			Reasoning:   fmt.Sprintf("Technical: %s. Trend: %s. Support/resistance: %s. Volume: %s.", technical, trend, levels, volume),
			StopLoss: strategy.StopLoss{
				Price:   c.StopLossPrice,
				Percent: stopPct,
				Timing:  "on a daily close below the stop price",
				Reason:  fmt.Sprintf("a close below %s (%.2f%%) invalidates the %s setup", price(c.StopLossPrice), stopPct, horizonLabel(c.Horizon)),
			},
		},
		Phase2: strategy.Phase2{
			Bullish: strategy.Scenario{
				Condition:   fmt.Sprintf("price holds above %s", trigger),
				Action:      "add to the position",
				ActionRatio: strategy.Ratio(ruleBullishActionRatio),
				Reason:      fmt.Sprintf("momentum confirmed halfway to target1 %s; %s", price(c.TargetPrice1), trend),
			},
			Sideways: strategy.Scenario{
				Condition: fmt.Sprintf("price ranges between %s and %s", price(bearLevel), trigger),
				Action:    "hold and wait for a breakout",
				Reason:    fmt.Sprintf("no directional edge while %s", volume),
			},
			Bearish: strategy.Scenario{
				Condition: fmt.Sprintf("price closes below %s", price(bearLevel)),
				Action:    "reduce the position",
				ExitRatio: strategy.Ratio(ruleBearishExitRatio),
				Reason:    fmt.Sprintf("weakness toward stop %s; %s", price(c.StopLossPrice), technical),
			},
		},
		Phase3: strategy.Phase3{
			Target1: strategy.Target{
				Price:     price(c.TargetPrice1),
				Action:    "take partial profit",
				ExitRatio: ruleTarget1ExitRatio,
				Reason:    fmt.Sprintf("%+.2f%% from entry, first resistance", t1Pct),
			},
			Target2: strategy.Target{
				Price:     price(c.TargetPrice2),
				Action:    "exit the remaining position",
				ExitRatio: ruleTarget2ExitRatio,
				Reason:    fmt.Sprintf("%+.2f%% from entry, full %s objective", t2Pct, horizonLabel(c.Horizon)),
			},
		},
	}
}

func clampPercent(p float64) float64 {
	if p > 0 {
		return 0
	}
	if p < -50 {
		return -50
	}
	return p
}
