package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazecat/flowlens/Internal/types"
)

func TestVWAP_EqualVolumesIsMeanTypicalPrice(t *testing.T) {
	bars := []types.Bar{
		{High: 102, Low: 98, Close: 100, Volume: 500},
		{High: 106, Low: 100, Close: 103, Volume: 500},
		{High: 104, Low: 101, Close: 102, Volume: 500},
	}

	res := VWAP(bars, 101.0)

	require.True(t, res.Valid)
	mean := (bars[0].TypicalPrice() + bars[1].TypicalPrice() + bars[2].TypicalPrice()) / 3.0
	assert.InDelta(t, mean, res.Value, 1e-12)
	assert.InDelta(t, 101.0-mean, res.Distance, 1e-12)
}

func TestVWAP_WeightsByVolume(t *testing.T) {
	bars := []types.Bar{
		{High: 100, Low: 100, Close: 100, Volume: 900},
		{High: 200, Low: 200, Close: 200, Volume: 100},
	}

	res := VWAP(bars, 0)

	require.True(t, res.Valid)
	assert.InDelta(t, 110.0, res.Value, 1e-12)
}

func TestVWAP_Invalid(t *testing.T) {
	assert.False(t, VWAP(nil, 100).Valid)

	zeroVol := []types.Bar{{High: 101, Low: 99, Close: 100, Volume: 0}}
	assert.False(t, VWAP(zeroVol, 100).Valid)
}
