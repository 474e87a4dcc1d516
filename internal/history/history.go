package history

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"stratgen/internal/config"
	"stratgen/internal/logger"
	"stratgen/internal/market"
)

// 中文说明：
// 历史形态分析：按标的 + RSI 区间 + MACD 方向查找过往生成结果，汇总胜率与收益分布。
// 历史库由外部维护，这里只读，每次请求一次查询。

// Outcome is one past generation and how it played out.
type Outcome struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	Source        string    `json:"source"`
	Horizon       string    `json:"horizon"`
	RSI           float64   `json:"rsi"`
	MACDHistogram float64   `json:"macd_histogram"`
	EntryPrice    float64   `json:"entry_price"`
	ReturnPct     float64   `json:"return_pct"`
	Success       bool      `json:"success"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// MACDPositive 零值按多头处理。
func (o Outcome) MACDPositive() bool { return o.MACDHistogram >= 0 }

// Query selects analogues of the current indicator regime.
type Query struct {
	Symbol       string
	RSIMin       float64
	RSIMax       float64
	MACDPositive bool
	Since        time.Time
}

// Matches applies the query to a single outcome; used by in-memory repositories.
func (q Query) Matches(o Outcome) bool {
	if !strings.EqualFold(o.Symbol, q.Symbol) {
		return false
	}
	if o.RSI < q.RSIMin || o.RSI > q.RSIMax {
		return false
	}
	if o.MACDPositive() != q.MACDPositive {
		return false
	}
	return !o.GeneratedAt.Before(q.Since)
}

// Repository is the read side of the report history collection.
type Repository interface {
	FindSimilar(ctx context.Context, q Query) ([]Outcome, error)
}

// Context summarizes analogous outcomes for scoring and prompting.
type Context struct {
	TotalCases   int     `json:"total_cases"`
	SuccessCases int     `json:"success_cases"`
	SuccessRate  float64 `json:"success_rate"`
	AvgReturn    float64 `json:"avg_return"`
	MaxReturn    float64 `json:"max_return"`
	MinReturn    float64 `json:"min_return"`
	P25Return    float64 `json:"p25_return"`
	P75Return    float64 `json:"p75_return"`
	Insight      string  `json:"insight"`
}

// Summary renders the context as one prompt line.
func (c *Context) Summary() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%d similar setups, success %d (%.0f%%), avg return %+.2f%% (min %+.2f%%, max %+.2f%%, p25 %+.2f%%, p75 %+.2f%%); %s",
		c.TotalCases, c.SuccessCases, c.SuccessRate, c.AvgReturn, c.MinReturn, c.MaxReturn, c.P25Return, c.P75Return, c.Insight)
}

type Analyzer struct {
	repo Repository
	cfg  config.HistoryConfig
	now  func() time.Time
}

func NewAnalyzer(repo Repository, cfg config.HistoryConfig) *Analyzer {
	return &Analyzer{repo: repo, cfg: cfg, now: time.Now}
}

// Analyze returns (nil, nil) when nothing similar is on record.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, ind market.IndicatorSnapshot) (*Context, error) {
	if a == nil || a.repo == nil {
		return nil, nil
	}
	q := Query{
		Symbol:       strings.ToUpper(strings.TrimSpace(symbol)),
		RSIMin:       ind.RSI - a.cfg.RSIWindow,
		RSIMax:       ind.RSI + a.cfg.RSIWindow,
		MACDPositive: ind.MACDHistogram() >= 0,
		Since:        a.now().AddDate(0, 0, -a.cfg.LookbackDays),
	}
	outcomes, err := a.repo.FindSimilar(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("查询历史报告失败: %w", err)
	}
	if len(outcomes) == 0 {
		logger.Debugf("历史形态: %s 无相似样本 (rsi %.1f±%.0f)", q.Symbol, ind.RSI, a.cfg.RSIWindow)
		return nil, nil
	}
	return Summarize(outcomes), nil
}

// Summarize computes the statistics over a non-empty outcome set.
func Summarize(outcomes []Outcome) *Context {
	n := len(outcomes)
	if n == 0 {
		return nil
	}
	returns := make([]float64, n)
	success := 0
	sum := 0.0
	for i, o := range outcomes {
		returns[i] = o.ReturnPct
		sum += o.ReturnPct
		if o.Success {
			success++
		}
	}
	sort.Float64s(returns)
	c := &Context{
		TotalCases:   n,
		SuccessCases: success,
		SuccessRate:  math.Round(float64(success) / float64(n) * 100),
		AvgReturn:    round2(sum / float64(n)),
		MaxReturn:    round2(returns[n-1]),
		MinReturn:    round2(returns[0]),
		P25Return:    round2(percentile(returns, 0.25)),
		P75Return:    round2(percentile(returns, 0.75)),
	}
	c.Insight = insight(c)
	return c
}

// percentile expects sorted input.
func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Floor(float64(len(sorted)-1) * p))
	return sorted[idx]
}

func insight(c *Context) string {
	var sb strings.Builder
	switch {
	case c.SuccessRate >= 70:
		sb.WriteString("high confidence pattern")
	case c.SuccessRate >= 50:
		sb.WriteString("moderate")
	default:
		sb.WriteString("caution")
	}
	sb.WriteString(fmt.Sprintf(": %d of %d similar setups succeeded", c.SuccessCases, c.TotalCases))
	switch {
	case c.AvgReturn < -2:
		sb.WriteString(fmt.Sprintf("; average return %.2f%% is negative, keep position size small", c.AvgReturn))
	case c.AvgReturn > 3:
		sb.WriteString(fmt.Sprintf("; average return %+.2f%% supports holding for target2", c.AvgReturn))
	}
	return sb.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
