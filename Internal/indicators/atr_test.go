package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazecat/flowlens/Internal/types"
)

func bar(o, h, l, c float64) types.Bar {
	return types.Bar{Open: o, High: h, Low: l, Close: c, Volume: 1}
}

func TestATR_SingleTrueRange(t *testing.T) {
	bars := []types.Bar{
		bar(100, 101, 99, 100.5),
		bar(100.5, 103, 100, 102),
	}

	res := ATR(bars, 1)

	require.True(t, res.Valid)
	// true range = max(103-100, |103-100.5|, |100-100.5|) = 3
	assert.InDelta(t, 3.0, res.Value, 1e-12)
}

func TestATR_GapUsesPrevClose(t *testing.T) {
	bars := []types.Bar{
		bar(100, 101, 99, 100),
		bar(110, 111, 109, 110), // gap up: TR = |111-100| = 11
		bar(110, 112, 110, 111), // TR = max(2, 2, 0) = 2
	}

	res := ATR(bars, 2)

	require.True(t, res.Valid)
	assert.InDelta(t, (11.0+2.0)/2.0, res.Value, 1e-12)
}

func TestATR_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		bars   []types.Bar
		period int
	}{
		{name: "period below one", bars: []types.Bar{bar(1, 2, 0, 1), bar(1, 2, 0, 1)}, period: 0},
		{name: "insufficient bars", bars: []types.Bar{bar(1, 2, 0, 1)}, period: 1},
		{name: "empty window", bars: nil, period: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ATR(tt.bars, tt.period)
			assert.False(t, res.Valid)
			assert.Equal(t, 0.0, res.Value)
		})
	}
}
