package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBar_DerivedProperties(t *testing.T) {
	b := Bar{Open: 100, High: 110, Low: 100, Close: 108, Delta: 250, POC: 106}

	assert.Equal(t, 10.0, b.Range())
	assert.InDelta(t, (110.0+100.0+108.0)/3.0, b.TypicalPrice(), 1e-12)
	assert.True(t, b.IsBullish())
	assert.False(t, b.IsBearish())
	assert.InDelta(t, 0.8, b.ClosePosition(), 1e-12)
	assert.InDelta(t, 0.0, b.OpenPosition(), 1e-12)
	assert.InDelta(t, 0.6, b.POCPosition(), 1e-12)
	assert.Equal(t, 1, b.DeltaBias())
	assert.InDelta(t, 0.7, b.StructuralAlignment(), 1e-12)
	assert.InDelta(t, 0.8, b.BodyPercent(), 1e-12)
	assert.False(t, b.IsDivergent())
}

func TestBar_Score(t *testing.T) {
	tests := []struct {
		name string
		bar  Bar
		want float64
	}{
		{
			name: "bullish bias maps alignment into [0,1]",
			bar:  Bar{Open: 100, High: 110, Low: 100, Close: 108, Delta: 100, POC: 106},
			want: 0.7,
		},
		{
			name: "bearish bias maps alignment into [-1,0]",
			bar:  Bar{Open: 108, High: 110, Low: 100, Close: 102, Delta: -100, POC: 104},
			want: (0.2+0.4)/2 - 1.0,
		},
		{
			name: "zero delta scores zero",
			bar:  Bar{Open: 100, High: 110, Low: 100, Close: 108, Delta: 0, POC: 106},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.bar.Score(), 1e-12)
		})
	}
}

func TestBar_ZeroRangePositionsAreNeutral(t *testing.T) {
	b := Bar{Open: 100, High: 100, Low: 100, Close: 100, POC: 100}

	assert.Equal(t, 0.5, b.ClosePosition())
	assert.Equal(t, 0.5, b.POCPosition())
	assert.Equal(t, 0.0, b.BodyPercent())
}

func TestBar_IsDivergent(t *testing.T) {
	assert.True(t, Bar{Open: 105, Close: 101, Delta: 300}.IsDivergent())
	assert.True(t, Bar{Open: 100, Close: 105, Delta: -300}.IsDivergent())
	assert.False(t, Bar{Open: 100, Close: 105, Delta: 300}.IsDivergent())
	assert.False(t, Bar{Open: 100, Close: 100, Delta: 300}.IsDivergent())
}
