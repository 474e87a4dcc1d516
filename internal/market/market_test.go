package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	h, err := ParseHorizon(" Swing ")
	require.NoError(t, err)
	assert.Equal(t, HorizonSwing, h)
	_, err = ParseHorizon("weekly")
	assert.Error(t, err)

	v, err := ParseVolatility("HIGH")
	require.NoError(t, err)
	assert.Equal(t, VolatilityHigh, v)
	_, err = ParseVolatility("extreme")
	assert.Error(t, err)
	assert.False(t, VolatilityLevel("").Valid())
}

func TestIndicatorDerived(t *testing.T) {
	s := IndicatorSnapshot{MACD: 5, MACDSignal: 2, BBUpper: 110, BBLower: 90, MA20: 100}
	assert.Equal(t, 3.0, s.MACDHistogram())
	assert.InDelta(t, 0.2, s.BandWidth(), 1e-9)
	assert.Equal(t, 0.0, IndicatorSnapshot{}.BandWidth())
}

func TestCandlesHelpers(t *testing.T) {
	cs := Candles{
		{Open: 100, High: 105, Low: 95, Close: 100, Volume: 10},
		{Open: 100, High: 110, Low: 99, Close: 108, Volume: 20},
	}
	last, ok := cs.Last()
	require.True(t, ok)
	assert.Equal(t, 108.0, last.Close)
	assert.Len(t, cs.Tail(1), 1)
	assert.Equal(t, []float64{100, 108}, cs.Closes())
	assert.InDelta(t, 15.0/104.0, cs.RangeWidth(), 1e-9)

	assert.Equal(t, "2 bars, close 108, change +8.00%, low 95 / high 110, avg volume 15", cs.Snapshot())
	assert.Equal(t, "", Candles{}.Snapshot())

	cs[0].OpenTime = 1_700_000_000_000
	cs[1].OpenTime = 1_700_086_400_000
	assert.Contains(t, cs.Snapshot(), ", 11-14 22:13Z to 11-15 22:13Z")
}
