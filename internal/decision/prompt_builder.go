package decision

import (
	"fmt"
	"strings"

	"stratgen/internal/pkg/format"
	"stratgen/internal/pkg/text"
	"stratgen/internal/scoring"
)

// MaxPromptLength bounds the user prompt.
const MaxPromptLength = 6000

// PromptBuilder renders a Context into the AI-tier user prompt. All derived numbers
// (labels, percentage deltas, history summary) are computed here once.
type PromptBuilder struct {
	// SnapshotBars limits the recent-window summary; 0 uses 20.
	SnapshotBars int
}

func NewPromptBuilder() *PromptBuilder { return &PromptBuilder{SnapshotBars: 20} }

// Build is pure: the same Context always yields the same prompt.
func (b *PromptBuilder) Build(c Context) string {
	ind := c.Indicators
	var sb strings.Builder

	sb.WriteString("## Instrument\n")
	sb.WriteString(fmt.Sprintf("- symbol: %s\n", c.Symbol))
	sb.WriteString(fmt.Sprintf("- price: %s\n", price(c.EntryPrice)))
	sb.WriteString(fmt.Sprintf("- horizon: %s\n", horizonLabel(c.Horizon)))
	sb.WriteString(fmt.Sprintf("- volatility: %s (band width %s)\n", c.Volatility, format.Percent(ind.BandWidth())))

	sb.WriteString("\n## Indicators\n")
	sb.WriteString(fmt.Sprintf("- RSI %.1f: %s\n", ind.RSI, rsiLabel(ind.RSI)))
	sb.WriteString(fmt.Sprintf("- MACD %s / signal %s, histogram %+.4f: %s\n",
		format.Float(ind.MACD, 4), format.Float(ind.MACDSignal, 4), ind.MACDHistogram(), macdLabel(ind)))
	sb.WriteString(fmt.Sprintf("- MA5 %s / MA20 %s / MA60 %s: %s\n", price(ind.MA5), price(ind.MA20), price(ind.MA60), maLabel(ind)))
	sb.WriteString(fmt.Sprintf("- Bollinger %s-%s: %s\n", price(ind.BBLower), price(ind.BBUpper), bollingerLabel(c.EntryPrice, ind)))
	sb.WriteString(fmt.Sprintf("- volume ratio %.2fx: %s\n", ind.VolumeRatio, volumeLabel(ind.VolumeRatio)))

	sb.WriteString("\n## Levels\n")
	sb.WriteString(fmt.Sprintf("- entry: %s\n", price(c.EntryPrice)))
	sb.WriteString(fmt.Sprintf("- target1: %s (%+.2f%%)\n", price(c.TargetPrice1), scoring.PercentChange(c.EntryPrice, c.TargetPrice1)))
	sb.WriteString(fmt.Sprintf("- target2: %s (%+.2f%%)\n", price(c.TargetPrice2), scoring.PercentChange(c.EntryPrice, c.TargetPrice2)))
	sb.WriteString(fmt.Sprintf("- stop-loss: %s (%+.2f%%)\n", price(c.StopLossPrice), scoring.PercentChange(c.EntryPrice, c.StopLossPrice)))

	bars := b.SnapshotBars
	if bars <= 0 {
		bars = 20
	}
	if window := c.RecentCandles.Tail(bars); len(window) > 0 {
		sb.WriteString("\n## Recent window\n")
		sb.WriteString("- " + window.Snapshot() + "\n")
		sb.WriteString(fmt.Sprintf("- volumes (last 5): %s\n", format.VolumeSlice(window.Tail(5).Volumes())))
	}

	if c.History != nil {
		sb.WriteString("\n## Similar past setups\n")
		sb.WriteString("- " + text.Truncate(c.History.Summary(), 600) + "\n")
	}

	sb.WriteString("\nReply with the JSON plan only.")
	out := sb.String()
	if len(out) > MaxPromptLength {
		out = text.Cut(out, MaxPromptLength)
	}
	return out
}
