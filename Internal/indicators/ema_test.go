package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEMATracker_FirstBarSeedsBothEMAs(t *testing.T) {
	tr := NewEMATracker(9, 21)
	tr.Update(4321.25)

	assert.Equal(t, 4321.25, tr.Fast)
	assert.Equal(t, 4321.25, tr.Slow)
	assert.Equal(t, 0.0, tr.Spread)
	assert.Equal(t, 0.0, tr.SpreadChange)
	assert.Equal(t, 0, tr.BarsSinceCross)
	assert.Equal(t, 1, tr.CrossDirection)
}

func TestEMATracker_ConstantPriceConverges(t *testing.T) {
	tr := NewEMATracker(9, 21)
	for i := 0; i < 200; i++ {
		tr.Update(100.0)
	}

	assert.InDelta(t, 100.0, tr.Fast, 1e-9)
	assert.InDelta(t, 100.0, tr.Slow, 1e-9)
	assert.InDelta(t, 0.0, tr.Spread, 1e-9)
	assert.Equal(t, 0.0, tr.FastSlope())
}

func TestEMATracker_SecondBarFollowsFormula(t *testing.T) {
	tr := NewEMATracker(9, 21)
	tr.Update(100.0)
	tr.Update(110.0)

	fastMult := 2.0 / 10.0
	slowMult := 2.0 / 22.0
	assert.InDelta(t, 100.0+(110.0-100.0)*fastMult, tr.Fast, 1e-12)
	assert.InDelta(t, 100.0+(110.0-100.0)*slowMult, tr.Slow, 1e-12)
	assert.InDelta(t, tr.Fast-tr.Slow, tr.Spread, 1e-12)
}

func TestEMATracker_CrossResetsCounter(t *testing.T) {
	tr := NewEMATracker(3, 10)

	// Ride the fast EMA above the slow one.
	for i := 0; i < 10; i++ {
		tr.Update(100.0 + float64(i))
	}
	assert.Equal(t, 1, tr.CrossDirection)
	assert.Greater(t, tr.BarsSinceCross, 0)

	// Now slam price down until the fast EMA crosses below.
	crossed := false
	for i := 0; i < 20; i++ {
		tr.Update(80.0)
		if tr.CrossDirection == -1 {
			crossed = true
			assert.Equal(t, 0, tr.BarsSinceCross)
			break
		}
	}
	assert.True(t, crossed, "expected a bearish cross")
}

func TestEMATracker_FastSlopeRising(t *testing.T) {
	tr := NewEMATracker(3, 10)
	for i := 0; i < 20; i++ {
		tr.Update(100.0 + float64(i)*2.0)
	}
	assert.Greater(t, tr.FastSlope(), 0.0)
	assert.Equal(t, 1, tr.SlowSlopeSign())
}

func TestEMATracker_SlowSlopeDeadBand(t *testing.T) {
	tr := NewEMATracker(3, 10)
	for i := 0; i < 10; i++ {
		tr.Update(100.0)
	}
	assert.Equal(t, 0, tr.SlowSlopeSign())
}

func TestEMATracker_Reset(t *testing.T) {
	tr := NewEMATracker(9, 21)
	for i := 0; i < 5; i++ {
		tr.Update(100.0 + float64(i))
	}

	tr.Reset()

	assert.Equal(t, 0.0, tr.Fast)
	assert.Equal(t, 0.0, tr.Slow)
	assert.Equal(t, 0, tr.BarCount())
	assert.Equal(t, 0.0, tr.FastSlope())
	assert.Equal(t, 0, tr.SlowSlopeSign())

	// Behaves like a fresh tracker afterwards.
	tr.Update(50.0)
	assert.Equal(t, 50.0, tr.Fast)
	assert.Equal(t, 50.0, tr.Slow)
}
