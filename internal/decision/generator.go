package decision

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"stratgen/internal/config"
	"stratgen/internal/logger"
	"stratgen/internal/monitor"
	"stratgen/internal/pkg/sliceutil"
	"stratgen/internal/scoring"
	"stratgen/internal/strategy"
)

// 中文说明：
// 编排器：按 ai -> rule-based -> fallback 顺序尝试，首个成功即返回。
// 每个实际尝试的 tier 结果都上报监控一次；跳过的 tier 不计入。
// Generate 永不返回错误，tier 内的 panic 也会被捕获并转为 InternalException。

// Tracker receives one event per attempted tier.
type Tracker interface {
	Track(monitor.Event)
}

type Generator struct {
	tiers    []Tier
	tracker  Tracker
	scorer   *scoring.ConfidenceScorer
	validity time.Duration
	now      func() time.Time
	newID    func() string
}

// NewGenerator keeps the given tier order and appends a FallbackTier when none is present.
func NewGenerator(tiers []Tier, tracker Tracker, scorer *scoring.ConfidenceScorer, cfg config.ReportConfig) *Generator {
	ordered := make([]Tier, 0, len(tiers)+1)
	hasFallback := false
	for _, t := range tiers {
		if t == nil {
			continue
		}
		if t.Source() == SourceFallback {
			hasFallback = true
		}
		ordered = append(ordered, t)
	}
	if !hasFallback {
		ordered = append(ordered, NewFallbackTier())
	}
	hours := cfg.ValidityHours
	if hours <= 0 {
		hours = 24
	}
	return &Generator{
		tiers:    ordered,
		tracker:  tracker,
		scorer:   scorer,
		validity: time.Duration(hours) * time.Hour,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Generate always returns a result with a strategy.
func (g *Generator) Generate(ctx context.Context, c Context) Result {
	start := g.now()
	res := Result{Metadata: Metadata{RequestID: g.newID(), GeneratedAt: start}}
	tokens := 0
	tokensReported := false

	for _, tier := range g.tiers {
		src := tier.Source()
		t0 := time.Now()
		out := g.run(ctx, tier, c)
		elapsed := time.Since(t0)
		if !out.Attempted {
			logger.Debugf("tier %s 跳过: %v", src, out.Err)
			continue
		}
		res.Metadata.AttemptedSources = append(res.Metadata.AttemptedSources, src)
		if out.TokensUsed > 0 {
			tokens += out.TokensUsed
			tokensReported = true
		}
		if out.Validation != nil {
			res.Metadata.ValidationErrors = append(res.Metadata.ValidationErrors, out.Validation.Messages()...)
		}
		g.track(src, out, elapsed)

		if out.Succeeded() {
			res.Success = true
			res.Strategy = out.Strategy
			res.Source = src
			res.Confidence = ProvenanceConfidence(src, out.Repaired)
			res.Metadata.Repaired = out.Repaired
			res.Metadata.ValidationPassed = out.Validation == nil || out.Validation.Success
			if out.Validation != nil {
				res.Metadata.FixedFields = sliceutil.Strings(out.Validation.FixedFields)
			}
			break
		}
		logger.Warnf("tier %s 失败，尝试下一层: %v", src, out.Err)
		res.Errors = append(res.Errors, out.Err.Error())
	}

	if !res.Success {
		// every configured tier failed, including a custom fallback; use the built-in one
		s := BuildFallbackStrategy(c)
		res.Success = true
		res.Strategy = &s
		res.Source = SourceFallback
		res.Confidence = ConfidenceFallback
		res.Metadata.ValidationPassed = true
	}
	if tokensReported {
		res.Metadata.TokensUsed = &tokens
	}
	if g.scorer != nil {
		b := g.scorer.Score(confidenceInput(c))
		res.Metadata.AnalysisConfidence = b.Score
		res.Metadata.ConfidenceBreakdown = &b
	}
	res.Metadata.GenerationTimeMs = g.now().Sub(start).Milliseconds()
	res.Metadata.ValidUntil = start.Add(g.validity)
	logger.Infow("✓ 策略生成完成",
		"symbol", c.Symbol.Code,
		"request_id", res.Metadata.RequestID,
		"source", res.Source,
		"confidence", res.Confidence,
		"attempted", res.Metadata.AttemptedSources,
		"elapsed_ms", res.Metadata.GenerationTimeMs,
	)
	return res
}

// run isolates a tier: a panic becomes an InternalException outcome.
func (g *Generator) run(ctx context.Context, tier Tier, c Context) (out TierOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("tier %s panic: %v\n%s", tier.Source(), r, debug.Stack())
			out = failed(&TierError{Kind: KindInternalException, Source: tier.Source(), Err: fmt.Errorf("panic: %v", r)}, 0, nil)
		}
	}()
	out = tier.Generate(ctx, c)
	if out.Attempted && !out.Succeeded() && out.Err == nil {
		out.Err = newTierError(tier.Source(), KindInternalException, "tier returned no strategy")
	}
	return out
}

func (g *Generator) track(src Source, out TierOutcome, elapsed time.Duration) {
	if g.tracker == nil {
		return
	}
	g.tracker.Track(monitor.Event{
		Source:     string(src),
		Success:    out.Succeeded(),
		Duration:   elapsed,
		TokensUsed: out.TokensUsed,
		Validation: validationOutcome(out.Validation),
	})
}

func validationOutcome(vr *strategy.ValidationResult) monitor.ValidationOutcome {
	switch {
	case vr == nil:
		return monitor.ValidationNone
	case !vr.Success:
		return monitor.ValidationFailed
	case vr.Fixed:
		return monitor.ValidationFixed
	default:
		return monitor.ValidationPassed
	}
}

func confidenceInput(c Context) scoring.ConfidenceInput {
	in := scoring.ConfidenceInput{
		Indicators:      c.Indicators,
		EntryPrice:      c.EntryPrice,
		CandlesAnalyzed: len(c.RecentCandles),
		RecentCandles:   c.RecentCandles,
	}
	if c.History != nil {
		in.HistoryCases = c.History.TotalCases
		in.HistorySuccessRate = c.History.SuccessRate
	}
	return in
}
