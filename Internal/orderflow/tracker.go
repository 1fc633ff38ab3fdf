// Package orderflow computes rolling multi-bar order-flow metrics for a
// single timeframe: POC migration, value-area behavior, imbalance
// polarity, VWAP regime, rolling delta and the composite conviction
// score.
package orderflow

import (
	"math"

	"github.com/fazecat/flowlens/Internal/buffer"
)

// Snapshot is the per-bar state the tracker keeps in its window.
type Snapshot struct {
	POC            float64
	VAH            float64
	VAL            float64
	Close          float64
	VWAP           float64
	Volume         float64
	BullImbalances int
	BearImbalances int
	Delta          float64
}

// Config names every threshold that is part of the tracker's behavioral
// contract.
type Config struct {
	WindowSize           int     `yaml:"window_size"`
	POCDeadZone          float64 `yaml:"poc_dead_zone"`
	VAMigrationDeadZone  float64 `yaml:"va_migration_dead_zone"`
	VWAPDeadZone         float64 `yaml:"vwap_dead_zone"`
	DeltaDeadZone        float64 `yaml:"delta_dead_zone"`
	PolarityThreshold    float64 `yaml:"polarity_threshold"`
	PolarityDeadZone     float64 `yaml:"polarity_dead_zone"`
	CompressionThreshold float64 `yaml:"compression_threshold"`
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{
		WindowSize:           20,
		POCDeadZone:          0.01,
		VAMigrationDeadZone:  0.01,
		VWAPDeadZone:         0.05,
		DeltaDeadZone:        0.01,
		PolarityThreshold:    0.4,
		PolarityDeadZone:     0.1,
		CompressionThreshold: -0.001,
	}
}

// Result is the immutable metrics snapshot produced per processed bar.
// When Valid is false no other field carries meaning.
type Result struct {
	Valid bool `json:"valid"`

	POCMigration     float64 `json:"pocMigration"`
	POCDirection     int     `json:"pocDirection"`
	POCTrendStrength float64 `json:"pocTrendStrength"`

	VAOverlap            float64 `json:"vaOverlap"`
	VAMigrationDirection int     `json:"vaMigrationDirection"`
	VAWidth              float64 `json:"vaWidth"`
	IsCompressing        bool    `json:"isCompressing"`
	CompressionRate      float64 `json:"compressionRate"`

	ImbalancePolarity float64 `json:"imbalancePolarity"`
	IsPolarized       bool    `json:"isPolarized"`
	SetupDensity      float64 `json:"setupDensity"`

	VWAPSlope  float64 `json:"vwapSlope"`
	VWAPRegime int     `json:"vwapRegime"`

	RollingDelta   float64 `json:"rollingDelta"`
	DeltaDirection int     `json:"deltaDirection"`
	DeltaMomentum  float64 `json:"deltaMomentum"`

	VolumeTrend float64 `json:"volumeTrend"`

	POCVWAPAgree        bool `json:"pocVwapAgree"`
	ConvictionScore     int  `json:"convictionScore"`
	ConvictionDirection int  `json:"convictionDirection"`
}

// Tracker is the per-timeframe rolling metrics engine. Not safe for
// concurrent use; the bar dispatcher delivers bars sequentially.
type Tracker struct {
	cfg    Config
	window *buffer.RingBuffer[Snapshot]

	prevRollingDelta    float64
	hasPrevRollingDelta bool
}

// NewTracker builds a tracker with the given config. Zero window sizes
// fall back to the default.
func NewTracker(cfg Config) *Tracker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultConfig().WindowSize
	}
	window, _ := buffer.NewRingBuffer[Snapshot](cfg.WindowSize)
	return &Tracker{cfg: cfg, window: window}
}

// ProcessBar appends one snapshot and recomputes the rolling metrics.
// Returns an invalid result until two snapshots exist and ATR is
// positive.
func (t *Tracker) ProcessBar(snap Snapshot, atr float64) Result {
	t.window.Add(snap)

	if t.window.Len() < 2 || atr <= 0 {
		return Result{}
	}

	atrNorm := math.Max(atr, 1e-9)
	snaps := t.window.Items()
	n := len(snaps)
	last := snaps[n-1]
	prev := snaps[n-2]

	res := Result{Valid: true}

	// POC migration
	res.POCMigration = (last.POC - prev.POC) / atrNorm
	res.POCDirection = signWithDeadZone(res.POCMigration, t.cfg.POCDeadZone)
	res.POCTrendStrength = pocTrendStrength(snaps)

	// Value area
	res.VAOverlap = intervalOverlap(prev.VAL, prev.VAH, last.VAL, last.VAH)
	prevMid := (prev.VAL + prev.VAH) / 2
	lastMid := (last.VAL + last.VAH) / 2
	res.VAMigrationDirection = signWithDeadZone(lastMid-prevMid, t.cfg.VAMigrationDeadZone)
	res.VAWidth = (last.VAH - last.VAL) / atrNorm
	res.CompressionRate = regressionSlope(snaps, func(s Snapshot) float64 { return s.VAH - s.VAL })
	res.IsCompressing = res.CompressionRate < t.cfg.CompressionThreshold

	// Imbalance polarity
	var bull, bear int
	for _, s := range snaps {
		bull += s.BullImbalances
		bear += s.BearImbalances
	}
	if bull+bear > 0 {
		res.ImbalancePolarity = float64(bull-bear) / float64(bull+bear)
	}
	res.IsPolarized = math.Abs(res.ImbalancePolarity) >= t.cfg.PolarityThreshold
	res.SetupDensity = float64(bull+bear) / float64(n)

	// VWAP regime
	res.VWAPSlope = (last.VWAP - snaps[0].VWAP) / atrNorm
	res.VWAPRegime = signWithDeadZone(res.VWAPSlope, t.cfg.VWAPDeadZone)

	// Rolling delta
	var deltaSum float64
	for _, s := range snaps {
		deltaSum += s.Delta
	}
	res.RollingDelta = deltaSum / atrNorm
	res.DeltaDirection = signWithDeadZone(res.RollingDelta, t.cfg.DeltaDeadZone)
	if t.hasPrevRollingDelta {
		res.DeltaMomentum = res.RollingDelta - t.prevRollingDelta
	}
	t.prevRollingDelta = res.RollingDelta
	t.hasPrevRollingDelta = true

	// Volume trend
	res.VolumeTrend = volumeTrend(snaps)

	res.POCVWAPAgree = res.POCDirection != 0 && res.POCDirection == res.VWAPRegime
	res.ConvictionScore, res.ConvictionDirection = t.conviction(snaps, res)

	return res
}

// Reset clears the window and the persistent rolling-delta state.
func (t *Tracker) Reset() {
	t.window.Clear()
	t.prevRollingDelta = 0
	t.hasPrevRollingDelta = false
}

// conviction runs the six independent one-point checks and tallies them
// into bull and bear counts.
func (t *Tracker) conviction(snaps []Snapshot, res Result) (score, direction int) {
	last := snaps[len(snaps)-1]
	var bullPoints, bearPoints int
	vote := func(dir int) {
		if dir > 0 {
			bullPoints++
		} else if dir < 0 {
			bearPoints++
		}
	}

	// (a) close relative to VWAP
	switch {
	case last.Close > last.VWAP:
		bullPoints++
	case last.Close < last.VWAP:
		bearPoints++
	}

	// (b) POC direction
	vote(res.POCDirection)

	// (c) imbalance polarity
	vote(signWithDeadZone(res.ImbalancePolarity, t.cfg.PolarityDeadZone))

	// (d) value-area migration
	vote(res.VAMigrationDirection)

	// (e) above-average volume confirmed by delta sign
	var volSum float64
	for _, s := range snaps {
		volSum += s.Volume
	}
	meanVol := volSum / float64(len(snaps))
	if last.Volume > meanVol {
		if last.Delta > 0 {
			bullPoints++
		} else if last.Delta < 0 {
			bearPoints++
		}
	}

	// (f) rolling delta direction
	vote(res.DeltaDirection)

	score = bullPoints + bearPoints
	switch {
	case bullPoints > bearPoints:
		direction = 1
	case bearPoints > bullPoints:
		direction = -1
	}
	return score, direction
}

// pocTrendStrength is the fraction of consecutive POC moves that agree
// with the latest move's direction. Needs at least 3 snapshots.
func pocTrendStrength(snaps []Snapshot) float64 {
	n := len(snaps)
	if n < 3 {
		return 0
	}
	lastMove := snaps[n-1].POC - snaps[n-2].POC
	if lastMove == 0 {
		return 0
	}
	matches := 0
	pairs := 0
	for i := 1; i < n; i++ {
		move := snaps[i].POC - snaps[i-1].POC
		pairs++
		if move*lastMove > 0 {
			matches++
		}
	}
	return float64(matches) / float64(pairs)
}

// intervalOverlap is intersection/union of [aLo,aHi] and [bLo,bHi],
// 0 when the union has no width.
func intervalOverlap(aLo, aHi, bLo, bHi float64) float64 {
	union := math.Max(aHi, bHi) - math.Min(aLo, bLo)
	if union <= 0 {
		return 0
	}
	inter := math.Min(aHi, bHi) - math.Max(aLo, bLo)
	if inter < 0 {
		inter = 0
	}
	return inter / union
}

// regressionSlope is the closed-form least-squares slope of value(s)
// over the window index.
func regressionSlope(snaps []Snapshot, value func(Snapshot) float64) float64 {
	n := len(snaps)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, s := range snaps {
		x := float64(i)
		y := value(s)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	count := float64(n)
	den := count*sumXX - sumX*sumX
	if den <= 0 {
		return 0
	}
	return (count*sumXY - sumX*sumY) / den
}

// volumeTrend is the volume-over-index regression slope normalized by
// the window's mean volume.
func volumeTrend(snaps []Snapshot) float64 {
	var volSum float64
	for _, s := range snaps {
		volSum += s.Volume
	}
	mean := volSum / float64(len(snaps))
	if mean <= 0 {
		return 0
	}
	slope := regressionSlope(snaps, func(s Snapshot) float64 { return s.Volume })
	return slope / mean
}

func signWithDeadZone(v, deadZone float64) int {
	if v > deadZone {
		return 1
	}
	if v < -deadZone {
		return -1
	}
	return 0
}
