package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazecat/flowlens/Internal/types"
)

func tapeBar(i int, close, volume, delta float64) types.Bar {
	return types.Bar{
		Timestamp: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		Index:     i,
		Open:      close - 0.5,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    volume,
		Delta:     delta,
		POC:       close,
	}
}

func TestAggregate_MergesOrderFlow(t *testing.T) {
	bars := []types.Bar{
		tapeBar(0, 100, 500, 50),
		tapeBar(1, 101, 900, -120),
		tapeBar(2, 102, 700, 40),
	}

	out := Aggregate(bars, 3)

	require.Len(t, out, 1)
	merged := out[0]
	assert.Equal(t, bars[0].Timestamp, merged.Timestamp)
	assert.Equal(t, 99.5, merged.Open)
	assert.Equal(t, 103.0, merged.High)
	assert.Equal(t, 99.0, merged.Low)
	assert.Equal(t, 102.0, merged.Close)
	assert.Equal(t, 2100.0, merged.Volume)
	assert.InDelta(t, -30.0, merged.Delta, 1e-12)
	// running delta peaks at +50 and troughs at -70
	assert.InDelta(t, 50.0, merged.MaxDelta, 1e-12)
	assert.InDelta(t, -70.0, merged.MinDelta, 1e-12)
	// POC comes from the heaviest constituent bar
	assert.Equal(t, 101.0, merged.POC)
}

func TestAggregate_PassthroughForSmallFactor(t *testing.T) {
	bars := []types.Bar{tapeBar(0, 100, 500, 50)}
	assert.Equal(t, bars, Aggregate(bars, 1))
	assert.Empty(t, Aggregate(nil, 5))
}

func TestBuildSeries_Ratios(t *testing.T) {
	var trigger []types.Bar
	for i := 0; i < 10; i++ {
		trigger = append(trigger, tapeBar(i, 100+float64(i), 500, 10))
	}

	s, err := BuildSeries(trigger, "1Min", "5Min", "5Min")

	require.NoError(t, err)
	assert.Len(t, s.Trigger, 10)
	assert.Len(t, s.Bias, 2)
	assert.Len(t, s.Base, 2)
}

func TestBuildSeries_RejectsShorterBias(t *testing.T) {
	trigger := []types.Bar{tapeBar(0, 100, 500, 10)}

	_, err := BuildSeries(trigger, "5Min", "1Min", "5Min")

	assert.Error(t, err)
}

func TestLoadReplay(t *testing.T) {
	csv := "timestamp,open,high,low,close,volume,buy_volume,sell_volume,delta,max_delta,min_delta,poc,bull_count,bear_count,bull_volume,bear_volume,bull_avg_pos,bear_avg_pos,max_bull_price,max_bull_volume,max_bear_price,max_bear_volume\n" +
		"2025-06-02T13:30:00Z,4500.25,4502.50,4499.75,4501.00,1250,700,550,150,180,-40,4500.75,2,1,320,110,-0.55,0.30,4500.00,200,4502.25,110\n" +
		"2025-06-02T13:31:00Z,4501.00,4503.00,4500.50,4502.75,980,600,380,220,240,0,4502.00,3,0,410,0,-0.40,0,4501.50,260,0,0\n"

	path := filepath.Join(t.TempDir(), "tape.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	bars, err := LoadReplay(path)

	require.NoError(t, err)
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 4500.25, first.Open)
	assert.Equal(t, 4501.00, first.Close)
	assert.Equal(t, 1250.0, first.Volume)
	assert.Equal(t, 150.0, first.Delta)
	assert.Equal(t, 4500.75, first.POC)
	assert.Equal(t, 2, first.Imbalances.BullCount)
	assert.Equal(t, 1, first.Imbalances.BearCount)
	assert.InDelta(t, -0.55, first.Imbalances.BullAvgPosition, 1e-12)
	assert.Equal(t, 200.0, first.Imbalances.MaxBullVolume)
	assert.Equal(t, time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC), first.Timestamp)
}

func TestLoadReplay_Failures(t *testing.T) {
	_, err := LoadReplay(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("not,a,tape\n"), 0o644))
	_, err = LoadReplay(path)
	assert.Error(t, err)
}
