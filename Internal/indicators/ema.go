// Package indicators holds the incremental trend/range/liquidity
// estimators driven once per completed bar.
package indicators

import (
	"math"

	"github.com/fazecat/flowlens/Internal/buffer"
)

const (
	fastSlopeHistory  = 15
	slowSlopeHistory  = 20
	slowSlopeOffset   = 3
	slopeZeroTol      = 1e-6
	slowSlopeDeadBand = 0.01
)

// EMATracker maintains a fast/slow EMA pair plus the spread and
// cross-state derived from them. Update must be called once per
// completed bar, in order.
type EMATracker struct {
	FastPeriod int
	SlowPeriod int

	Fast           float64
	Slow           float64
	Spread         float64
	SpreadChange   float64
	BarsSinceCross int
	CrossDirection int

	barCount   int
	prevSpread float64
	fastHist   *buffer.RingBuffer[float64]
	slowHist   *buffer.RingBuffer[float64]
}

// NewEMATracker builds a tracker for the given fast/slow periods.
func NewEMATracker(fastPeriod, slowPeriod int) *EMATracker {
	fastHist, _ := buffer.NewRingBuffer[float64](fastSlopeHistory)
	slowHist, _ := buffer.NewRingBuffer[float64](slowSlopeHistory)
	return &EMATracker{
		FastPeriod: fastPeriod,
		SlowPeriod: slowPeriod,
		fastHist:   fastHist,
		slowHist:   slowHist,
	}
}

// Update folds one completed bar's close into the tracker.
func (t *EMATracker) Update(close float64) {
	fastMult := 2.0 / float64(t.FastPeriod+1)
	slowMult := 2.0 / float64(t.SlowPeriod+1)

	if t.barCount == 0 {
		t.Fast = close
		t.Slow = close
	} else {
		t.Fast = (close-t.Fast)*fastMult + t.Fast
		t.Slow = (close-t.Slow)*slowMult + t.Slow
	}
	t.barCount++

	t.fastHist.Add(t.Fast)
	t.slowHist.Add(t.Slow)

	spread := t.Fast - t.Slow
	if t.barCount == 1 {
		t.SpreadChange = 0
	} else {
		t.SpreadChange = spread - t.prevSpread
	}
	t.Spread = spread
	t.prevSpread = spread

	dir := 1
	if spread < 0 {
		dir = -1
	}
	if t.barCount == 1 {
		t.CrossDirection = dir
		t.BarsSinceCross = 0
		return
	}
	if dir != t.CrossDirection {
		t.CrossDirection = dir
		t.BarsSinceCross = 0
	} else {
		t.BarsSinceCross++
	}
}

// BarCount returns how many bars the tracker has absorbed.
func (t *EMATracker) BarCount() int {
	return t.barCount
}

// FastSlope is the percentage change of the fast EMA across its history
// window. Returns 0 with fewer than 2 samples or a near-zero base.
func (t *EMATracker) FastSlope() float64 {
	n := t.fastHist.Len()
	if n < 2 {
		return 0
	}
	oldest, _ := t.fastHist.Get(0)
	newest, _ := t.fastHist.Get(n - 1)
	if math.Abs(oldest) < slopeZeroTol {
		return 0
	}
	return (newest - oldest) / oldest * 100.0
}

// SlowSlopeSign discretizes the slow EMA's direction by comparing the
// newest history value against the value slowSlopeOffset bars older.
// Returns 0 while history is short or the move is inside the dead band.
func (t *EMATracker) SlowSlopeSign() int {
	n := t.slowHist.Len()
	if n < slowSlopeOffset+1 {
		return 0
	}
	newest, _ := t.slowHist.Get(n - 1)
	older, _ := t.slowHist.Get(n - 1 - slowSlopeOffset)
	diff := newest - older
	if math.Abs(diff) < slowSlopeDeadBand {
		return 0
	}
	if diff > 0 {
		return 1
	}
	return -1
}

// Reset clears all EMA state and history.
func (t *EMATracker) Reset() {
	t.Fast = 0
	t.Slow = 0
	t.Spread = 0
	t.SpreadChange = 0
	t.BarsSinceCross = 0
	t.CrossDirection = 0
	t.barCount = 0
	t.prevSpread = 0
	t.fastHist.Clear()
	t.slowHist.Clear()
}
