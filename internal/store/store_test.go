package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratgen/internal/history"
	"stratgen/internal/logger"
)

func init() { logger.Discard() }

func fixtures(now time.Time) []history.Outcome {
	return []history.Outcome{
		{Symbol: "btcusdt", RSI: 55, MACDHistogram: 2, ReturnPct: 4, Success: true, GeneratedAt: now.Add(-24 * time.Hour)},
		{Symbol: "BTCUSDT", RSI: 62, MACDHistogram: 0, ReturnPct: -1, GeneratedAt: now.Add(-48 * time.Hour)},
		{Symbol: "BTCUSDT", RSI: 58, MACDHistogram: -3, ReturnPct: 2, Success: true, GeneratedAt: now.Add(-24 * time.Hour)},
		{Symbol: "BTCUSDT", RSI: 80, MACDHistogram: 1, ReturnPct: 6, Success: true, GeneratedAt: now.Add(-24 * time.Hour)},
		{Symbol: "BTCUSDT", RSI: 50, MACDHistogram: 1, ReturnPct: 9, Success: true, GeneratedAt: now.AddDate(0, 0, -200)},
		{Symbol: "ETHUSDT", RSI: 55, MACDHistogram: 1, ReturnPct: 3, Success: true, GeneratedAt: now.Add(-time.Hour)},
	}
}

func exerciseStore(t *testing.T, s ReportStore) {
	ctx := context.Background()
	now := time.Now()
	for _, o := range fixtures(now) {
		id, err := s.RecordOutcome(ctx, o)
		require.NoError(t, err)
		assert.Positive(t, id)
	}
	_, err := s.RecordOutcome(ctx, history.Outcome{})
	assert.Error(t, err)

	n, err := s.Count(ctx, "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	all, err := s.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 6, all)

	got, err := s.FindSimilar(ctx, history.Query{
		Symbol: "BTCUSDT", RSIMin: 50, RSIMax: 70, MACDPositive: true, Since: now.AddDate(0, 0, -90),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4.0, got[0].ReturnPct, "newest first")
	assert.Equal(t, -1.0, got[1].ReturnPct)
	assert.Equal(t, "BTCUSDT", got[0].Symbol)

	neg, err := s.FindSimilar(ctx, history.Query{
		Symbol: "BTCUSDT", RSIMin: 50, RSIMax: 70, MACDPositive: false, Since: now.AddDate(0, 0, -90),
	})
	require.NoError(t, err)
	require.Len(t, neg, 1)
	assert.True(t, neg[0].Success)
}

func TestMemoryReportStore(t *testing.T) {
	exerciseStore(t, NewMemoryReportStore())
}

func TestSQLiteReportStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteClosed(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.FindSimilar(context.Background(), history.Query{Symbol: "X"})
	assert.Error(t, err)
}

func TestMockOutcomesDeterministic(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := MockOutcomes([]string{"btcusdt", " ", "ETHUSDT"}, 15, 42, now)
	b := MockOutcomes([]string{"btcusdt", " ", "ETHUSDT"}, 15, 42, now)
	require.Len(t, a, 30)
	assert.Equal(t, a, b)
	for _, o := range a {
		assert.Contains(t, []string{"BTCUSDT", "ETHUSDT"}, o.Symbol)
		assert.GreaterOrEqual(t, o.RSI, 20.0)
		assert.LessOrEqual(t, o.RSI, 80.0)
		assert.Equal(t, o.ReturnPct > 0, o.Success)
		assert.False(t, o.GeneratedAt.After(now))
	}
}

func TestSeed(t *testing.T) {
	s := NewMemoryReportStore()
	n, err := Seed(context.Background(), s, MockOutcomes([]string{"SOLUSDT"}, 12, 7, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	count, err := s.Count(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, 12, count)

	n, err = Seed(context.Background(), s, []history.Outcome{{Symbol: "A"}, {}})
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}
