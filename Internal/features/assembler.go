// Package features assembles the fixed 30-slot feature vector consumed
// by the dashboard and broadcast layers.
package features

import (
	"math"
	"time"

	"github.com/fazecat/flowlens/Internal/buffer"
	"github.com/fazecat/flowlens/Internal/cluster"
	"github.com/fazecat/flowlens/Internal/types"
)

// VectorSize is the fixed length of the feature vector.
const VectorSize = 30

// Slot indices. The ordering is a wire contract shared with external
// consumers and must never be reordered.
const (
	TDeltaSum = iota
	TDeltaShift
	TDeltaMomentum
	TBuyPct
	TImbNet
	TImbIntensity
	TChannelPos
	TChannelHighDist
	TChannelLowDist
	TRangePctl
	TVolumeRatio
	TCumDeltaZScore
	BDelta
	BImbNet
	BClosePos
	BSlowEmaDist
	BZScore
	BStdDev
	BChannelPos
	BChannelHighDist
	BChannelLowDist
	BRange
	BClusterSupport
	BClusterResistance
	BClusterNet
	BNearestSupportDist
	BNearestResistanceDist
	SessionProgress
	MaxBullImbDist
	MaxBearImbDist
)

// Names lists the wire-contract slot names in vector order.
var Names = [VectorSize]string{
	"T_DeltaSum", "T_DeltaShift", "T_DeltaMomentum", "T_BuyPct",
	"T_ImbNet", "T_ImbIntensity", "T_ChannelPos", "T_ChannelHighDist",
	"T_ChannelLowDist", "T_RangePctl", "T_VolumeRatio", "T_CumDeltaZScore",
	"B_Delta", "B_ImbNet", "B_ClosePos", "B_SlowEmaDist",
	"B_ZScore", "B_StdDev", "B_ChannelPos", "B_ChannelHighDist",
	"B_ChannelLowDist", "B_Range", "B_ClusterSupport", "B_ClusterResistance",
	"B_ClusterNet", "B_NearestSupportDist", "B_NearestResistanceDist",
	"SessionProgress", "MaxBullImbDist", "MaxBearImbDist",
}

// Vector is one assembled feature vector.
type Vector [VectorSize]float64

// Config names the assembler's behavioral constants.
type Config struct {
	BiasHistorySize      int     `yaml:"bias_history_size"`
	EdgeBars             int     `yaml:"edge_bars"`
	ClusterNormalization float64 `yaml:"cluster_normalization"`
	ClusterThreshold     float64 `yaml:"cluster_threshold"`
	ClusterMaxOffset     int     `yaml:"cluster_max_offset"`
	SessionStartMinute   int     `yaml:"session_start_minute"`
	SessionEndMinute     int     `yaml:"session_end_minute"`
	SessionTimeZone      string  `yaml:"session_time_zone"`
}

// DefaultConfig returns the assembler defaults. Session anchors default
// to the 09:30–16:00 regular session in US equity exchange time.
func DefaultConfig() Config {
	return Config{
		BiasHistorySize:      5,
		EdgeBars:             3,
		ClusterNormalization: 20.0,
		ClusterThreshold:     10.0,
		ClusterMaxOffset:     40,
		SessionStartMinute:   9*60 + 30,
		SessionEndMinute:     16 * 60,
		SessionTimeZone:      "America/New_York",
	}
}

// Assembler combines trigger-window rolling stats, cached bias-bar
// stats, cluster strength and session context into one Vector. Driven
// single-threaded like every other tracker.
type Assembler struct {
	cfg Config
	loc *time.Location

	biasBars     *buffer.RingBuffer[types.Bar]
	biasFeatures [10]float64
	hasBias      bool
}

// NewAssembler builds an assembler with the given config. Non-positive
// sizes fall back to defaults; an unknown session time zone falls back
// to UTC.
func NewAssembler(cfg Config) *Assembler {
	def := DefaultConfig()
	if cfg.BiasHistorySize <= 0 {
		cfg.BiasHistorySize = def.BiasHistorySize
	}
	if cfg.EdgeBars <= 0 {
		cfg.EdgeBars = def.EdgeBars
	}
	if cfg.ClusterNormalization <= 0 {
		cfg.ClusterNormalization = def.ClusterNormalization
	}
	if cfg.SessionTimeZone == "" {
		cfg.SessionTimeZone = def.SessionTimeZone
	}
	loc, err := time.LoadLocation(cfg.SessionTimeZone)
	if err != nil {
		loc = time.UTC
	}
	biasBars, _ := buffer.NewRingBuffer[types.Bar](cfg.BiasHistorySize)
	return &Assembler{cfg: cfg, loc: loc, biasBars: biasBars}
}

// UpdateBias folds one completed bias bar into the cached bias feature
// group (slots 12–21). slowEMA is the orchestrator's secondary slow EMA.
func (a *Assembler) UpdateBias(bar types.Bar, atr, slowEMA float64) {
	a.biasBars.Add(bar)
	atrNorm := math.Max(atr, 1e-9)
	bars := a.biasBars.Items()

	closes := make([]float64, len(bars))
	hi, lo := bars[0].High, bars[0].Low
	for i, b := range bars {
		closes[i] = b.Close
		hi = math.Max(hi, b.High)
		lo = math.Min(lo, b.Low)
	}

	mean, std := meanStd(closes)
	zScore := 0.0
	if std > 0 {
		zScore = (bar.Close - mean) / std
	}

	channelPos := 0.5
	if hi > lo {
		channelPos = (bar.Close - lo) / (hi - lo)
	}

	a.biasFeatures = [10]float64{
		bar.Delta / atrNorm,
		float64(bar.Imbalances.BullCount - bar.Imbalances.BearCount),
		bar.ClosePosition(),
		(bar.Close - slowEMA) / atrNorm,
		zScore,
		std / atrNorm,
		channelPos,
		(hi - bar.Close) / atrNorm,
		(bar.Close - lo) / atrNorm,
		bar.Range() / atrNorm,
	}
	a.hasBias = true
}

// Compute assembles the full vector for the current trigger bar.
// triggerBars is the trigger-timeframe window oldest-first, including
// the current bar; ewmDelta is the exponentially smoothed trigger delta
// maintained by the orchestrator. clusterTracker and a zero session
// time are both optional.
func (a *Assembler) Compute(
	triggerBars []types.Bar,
	current types.Bar,
	atr float64,
	ewmDelta float64,
	clusterTracker *cluster.Tracker,
	sessionTime time.Time,
) Vector {
	var v Vector
	atrNorm := math.Max(atr, 1e-9)

	a.fillTrigger(&v, triggerBars, current, atrNorm, ewmDelta)

	if a.hasBias {
		copy(v[BDelta:BRange+1], a.biasFeatures[:])
	}

	a.fillCluster(&v, current, atrNorm, clusterTracker)
	a.fillSession(&v, current, atrNorm, sessionTime)

	return v
}

func (a *Assembler) fillTrigger(v *Vector, bars []types.Bar, current types.Bar, atrNorm, ewmDelta float64) {
	if len(bars) < 2 {
		// neutral midpoints / unity for channel and ratio slots,
		// zero everywhere else
		v[TBuyPct] = 0.5
		v[TChannelPos] = 0.5
		v[TRangePctl] = 0.5
		v[TVolumeRatio] = 1.0
		return
	}

	v[TDeltaMomentum] = ewmDelta / atrNorm

	var deltaSum, buyVol, sellVol, volSum float64
	var bullImb, bearImb int
	hi, lo := bars[0].High, bars[0].Low
	for _, b := range bars {
		deltaSum += b.Delta
		buyVol += b.BuyVolume
		sellVol += b.SellVolume
		volSum += b.Volume
		bullImb += b.Imbalances.BullCount
		bearImb += b.Imbalances.BearCount
		hi = math.Max(hi, b.High)
		lo = math.Min(lo, b.Low)
	}

	v[TDeltaSum] = deltaSum / atrNorm

	edge := a.cfg.EdgeBars
	if edge > len(bars)/2 {
		edge = len(bars) / 2
	}
	if edge > 0 {
		var firstSum, lastSum float64
		for i := 0; i < edge; i++ {
			firstSum += bars[i].Delta
			lastSum += bars[len(bars)-1-i].Delta
		}
		v[TDeltaShift] = (lastSum/float64(edge) - firstSum/float64(edge)) / atrNorm
	}

	if buyVol+sellVol > 0 {
		v[TBuyPct] = buyVol / (buyVol + sellVol)
	} else {
		v[TBuyPct] = 0.5
	}

	if bullImb+bearImb > 0 {
		v[TImbNet] = float64(bullImb-bearImb) / float64(bullImb+bearImb)
	}
	v[TImbIntensity] = float64(bullImb+bearImb) / float64(len(bars))

	if hi > lo {
		v[TChannelPos] = (current.Close - lo) / (hi - lo)
	} else {
		v[TChannelPos] = 0.5
	}
	v[TChannelHighDist] = (hi - current.Close) / atrNorm
	v[TChannelLowDist] = (current.Close - lo) / atrNorm

	atOrBelow := 0
	for _, b := range bars {
		if b.Range() <= current.Range() {
			atOrBelow++
		}
	}
	v[TRangePctl] = float64(atOrBelow) / float64(len(bars))

	avgVol := volSum / float64(len(bars))
	if avgVol > 0 {
		v[TVolumeRatio] = current.Volume / avgVol
	} else {
		v[TVolumeRatio] = 1.0
	}

	deltas := make([]float64, len(bars))
	for i, b := range bars {
		deltas[i] = b.Delta
	}
	mean, std := meanStd(deltas)
	if std > 0 {
		v[TCumDeltaZScore] = (current.Delta - mean) / std
	}
}

func (a *Assembler) fillCluster(v *Vector, current types.Bar, atrNorm float64, tracker *cluster.Tracker) {
	if tracker == nil {
		return
	}
	bull := float64(tracker.BullStrength(current.Close))
	bear := float64(tracker.BearStrength(current.Close))
	v[BClusterSupport] = bull / a.cfg.ClusterNormalization
	v[BClusterResistance] = bear / a.cfg.ClusterNormalization
	v[BClusterNet] = (bull - bear) / a.cfg.ClusterNormalization
	v[BNearestSupportDist] = tracker.NearestSupportDistance(current.Close, a.cfg.ClusterThreshold, a.cfg.ClusterMaxOffset) / atrNorm
	v[BNearestResistanceDist] = tracker.NearestResistanceDistance(current.Close, a.cfg.ClusterThreshold, a.cfg.ClusterMaxOffset) / atrNorm
}

func (a *Assembler) fillSession(v *Vector, current types.Bar, atrNorm float64, sessionTime time.Time) {
	if !sessionTime.IsZero() && a.cfg.SessionEndMinute > a.cfg.SessionStartMinute {
		// feeds stamp bars in UTC; session anchors are exchange time
		local := sessionTime.In(a.loc)
		minute := local.Hour()*60 + local.Minute()
		progress := float64(minute-a.cfg.SessionStartMinute) /
			float64(a.cfg.SessionEndMinute-a.cfg.SessionStartMinute)
		v[SessionProgress] = clamp(progress, 0, 1)
	}

	imb := current.Imbalances
	if imb.MaxBullVolume > 0 {
		v[MaxBullImbDist] = (current.Close - imb.MaxBullPrice) / atrNorm
	}
	if imb.MaxBearVolume > 0 {
		v[MaxBearImbDist] = (current.Close - imb.MaxBearPrice) / atrNorm
	}
}

// meanStd returns the arithmetic mean and population standard deviation.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	std = math.Sqrt(ss / float64(len(values)))
	return mean, std
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
