package orderflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fazecat/flowlens/Internal/types"
)

func TestHasVolumeSkew(t *testing.T) {
	tests := []struct {
		name string
		bar  types.Bar
		want bool
	}{
		{
			name: "top-heavy POC dominated by bearish volume",
			bar: types.Bar{
				High: 110, Low: 100, POC: 109,
				Imbalances: types.ImbalanceSummary{BullVolume: 100, BearVolume: 400},
			},
			want: true,
		},
		{
			name: "top-heavy POC without bearish dominance",
			bar: types.Bar{
				High: 110, Low: 100, POC: 109,
				Imbalances: types.ImbalanceSummary{BullVolume: 400, BearVolume: 100},
			},
			want: false,
		},
		{
			name: "bottom-heavy POC dominated by bullish volume",
			bar: types.Bar{
				High: 110, Low: 100, POC: 101,
				Imbalances: types.ImbalanceSummary{BullVolume: 400, BearVolume: 100},
			},
			want: true,
		},
		{
			name: "POC in the middle of the range",
			bar: types.Bar{
				High: 110, Low: 100, POC: 105,
				Imbalances: types.ImbalanceSummary{BullVolume: 400, BearVolume: 100},
			},
			want: false,
		},
		{
			name: "zero range",
			bar: types.Bar{
				High: 100, Low: 100, POC: 100,
				Imbalances: types.ImbalanceSummary{BullVolume: 400, BearVolume: 100},
			},
			want: false,
		},
		{
			name: "no imbalance volume",
			bar:  types.Bar{High: 110, Low: 100, POC: 109},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasVolumeSkew(tt.bar))
		})
	}
}

func TestIsDivergenceConfirmed(t *testing.T) {
	tests := []struct {
		name string
		bar  types.Bar
		want bool
	}{
		{
			name: "red bar, positive delta, buyers clustered at the lows",
			bar: types.Bar{
				Open: 105, Close: 101, High: 106, Low: 100, Delta: 300,
				Imbalances: types.ImbalanceSummary{BullCount: 4, BullAvgPosition: -0.7},
			},
			want: true,
		},
		{
			name: "red bar, positive delta, buyers near the middle",
			bar: types.Bar{
				Open: 105, Close: 101, High: 106, Low: 100, Delta: 300,
				Imbalances: types.ImbalanceSummary{BullCount: 4, BullAvgPosition: -0.2},
			},
			want: false,
		},
		{
			name: "green bar, negative delta, sellers pressed into the highs",
			bar: types.Bar{
				Open: 100, Close: 105, High: 106, Low: 99, Delta: -250,
				Imbalances: types.ImbalanceSummary{BearCount: 3, BearAvgPosition: 0.6},
			},
			want: true,
		},
		{
			name: "green bar, negative delta, no bearish imbalances",
			bar: types.Bar{
				Open: 100, Close: 105, High: 106, Low: 99, Delta: -250,
			},
			want: false,
		},
		{
			name: "not divergent at all",
			bar: types.Bar{
				Open: 100, Close: 105, High: 106, Low: 99, Delta: 250,
				Imbalances: types.ImbalanceSummary{BullCount: 4, BullAvgPosition: -0.9},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDivergenceConfirmed(tt.bar))
		})
	}
}
