// Package feed extracts Bar records from external data sources. It is
// the only place vendor formats are touched; the engine never sees
// anything but types.Bar.
package feed

import (
	"fmt"
	"sort"
	"time"

	"github.com/fazecat/flowlens/Internal/types"
)

// Series carries the three synchronized bar streams the engine consumes,
// each oldest-first.
type Series struct {
	Base    []types.Bar
	Bias    []types.Bar
	Trigger []types.Bar
}

// TimeframeDuration maps an Alpaca-style timeframe label to a duration.
func TimeframeDuration(tf string) (time.Duration, error) {
	switch tf {
	case "1Min":
		return time.Minute, nil
	case "3Min":
		return 3 * time.Minute, nil
	case "5Min":
		return 5 * time.Minute, nil
	case "10Min":
		return 10 * time.Minute, nil
	case "15Min":
		return 15 * time.Minute, nil
	case "30Min":
		return 30 * time.Minute, nil
	case "1Hour":
		return time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
}

// Aggregate rolls n consecutive bars into one, oldest-first. Order-flow
// fields combine the way the exporter would have combined the raw tape:
// volumes and deltas sum, the POC comes from the heaviest constituent,
// max/min delta track the running cumulative delta inside the group.
func Aggregate(bars []types.Bar, n int) []types.Bar {
	if n <= 1 || len(bars) == 0 {
		return bars
	}

	out := make([]types.Bar, 0, (len(bars)+n-1)/n)
	for start := 0; start < len(bars); start += n {
		end := start + n
		if end > len(bars) {
			end = len(bars)
		}
		out = append(out, merge(bars[start:end], len(out)))
	}
	return out
}

func merge(group []types.Bar, index int) types.Bar {
	first := group[0]
	merged := types.Bar{
		Timestamp: first.Timestamp,
		Index:     index,
		Open:      first.Open,
		High:      first.High,
		Low:       first.Low,
		Close:     group[len(group)-1].Close,
	}

	var running, maxRunning, minRunning float64
	heaviest := first
	var imb types.ImbalanceSummary
	var bullPosWeight, bearPosWeight float64

	for i, b := range group {
		merged.High = maxf(merged.High, b.High)
		merged.Low = minf(merged.Low, b.Low)
		merged.Volume += b.Volume
		merged.BuyVolume += b.BuyVolume
		merged.SellVolume += b.SellVolume

		running += b.Delta
		if i == 0 || running > maxRunning {
			maxRunning = running
		}
		if i == 0 || running < minRunning {
			minRunning = running
		}

		if b.Volume > heaviest.Volume {
			heaviest = b
		}

		imb.BullCount += b.Imbalances.BullCount
		imb.BearCount += b.Imbalances.BearCount
		imb.BullVolume += b.Imbalances.BullVolume
		imb.BearVolume += b.Imbalances.BearVolume
		bullPosWeight += b.Imbalances.BullAvgPosition * b.Imbalances.BullVolume
		bearPosWeight += b.Imbalances.BearAvgPosition * b.Imbalances.BearVolume
		if b.Imbalances.MaxBullVolume > imb.MaxBullVolume {
			imb.MaxBullVolume = b.Imbalances.MaxBullVolume
			imb.MaxBullPrice = b.Imbalances.MaxBullPrice
		}
		if b.Imbalances.MaxBearVolume > imb.MaxBearVolume {
			imb.MaxBearVolume = b.Imbalances.MaxBearVolume
			imb.MaxBearPrice = b.Imbalances.MaxBearPrice
		}
	}

	merged.Delta = running
	merged.MaxDelta = maxRunning
	merged.MinDelta = minRunning
	merged.POC = heaviest.POC
	if imb.BullVolume > 0 {
		imb.BullAvgPosition = bullPosWeight / imb.BullVolume
	}
	if imb.BearVolume > 0 {
		imb.BearAvgPosition = bearPosWeight / imb.BearVolume
	}
	merged.Imbalances = imb
	return merged
}

// BuildSeries derives the base/bias streams from a trigger-cadence tape
// using the configured timeframe ratios.
func BuildSeries(trigger []types.Bar, trigTF, biasTF, baseTF string) (*Series, error) {
	trigDur, err := TimeframeDuration(trigTF)
	if err != nil {
		return nil, err
	}
	biasDur, err := TimeframeDuration(biasTF)
	if err != nil {
		return nil, err
	}
	baseDur, err := TimeframeDuration(baseTF)
	if err != nil {
		return nil, err
	}
	if biasDur < trigDur || baseDur < trigDur {
		return nil, fmt.Errorf("bias/base timeframes must not be shorter than trigger")
	}

	sort.SliceStable(trigger, func(i, j int) bool {
		return trigger[i].Timestamp.Before(trigger[j].Timestamp)
	})
	for i := range trigger {
		trigger[i].Index = i
	}

	return &Series{
		Base:    Aggregate(trigger, int(baseDur/trigDur)),
		Bias:    Aggregate(trigger, int(biasDur/trigDur)),
		Trigger: trigger,
	}, nil
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
