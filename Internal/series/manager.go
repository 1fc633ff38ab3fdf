// Package series orchestrates the per-timeframe trackers across the
// base, bias and trigger bar streams.
package series

import (
	"math"

	"github.com/fazecat/flowlens/Internal/buffer"
	"github.com/fazecat/flowlens/Internal/cluster"
	"github.com/fazecat/flowlens/Internal/features"
	"github.com/fazecat/flowlens/Internal/indicators"
	"github.com/fazecat/flowlens/Internal/orderflow"
	"github.com/fazecat/flowlens/Internal/profile"
	"github.com/fazecat/flowlens/Internal/types"
)

// Config holds every orchestrator tunable. The zero value is unusable;
// start from DefaultConfig.
type Config struct {
	BasePeriod    int `yaml:"base_period"`
	BiasPeriod    int `yaml:"bias_period"`
	TriggerPeriod int `yaml:"trigger_period"`

	EMAFast     int `yaml:"ema_fast"`
	EMASlow     int `yaml:"ema_slow"`
	BiasEMAFast int `yaml:"bias_ema_fast"`
	BiasEMASlow int `yaml:"bias_ema_slow"`

	VWAPSmoothingPeriod int     `yaml:"vwap_smoothing_period"`
	TriggerEWMAlpha     float64 `yaml:"trigger_ewm_alpha"`
	DeltaDecayRatio     float64 `yaml:"delta_decay_ratio"`

	ClusterLookback   int     `yaml:"cluster_lookback"`
	ClusterBucketSize float64 `yaml:"cluster_bucket_size"`

	ProfileBucketSize float64 `yaml:"profile_bucket_size"`
	ValueAreaFraction float64 `yaml:"value_area_fraction"`

	OrderFlow orderflow.Config `yaml:"order_flow"`
	Features  features.Config  `yaml:"features"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		BasePeriod:          14,
		BiasPeriod:          20,
		TriggerPeriod:       20,
		EMAFast:             9,
		EMASlow:             21,
		BiasEMAFast:         8,
		BiasEMASlow:         13,
		VWAPSmoothingPeriod: 5,
		TriggerEWMAlpha:     0.3,
		DeltaDecayRatio:     0.05,
		ClusterLookback:     20,
		ClusterBucketSize:   0.25,
		ProfileBucketSize:   0.25,
		ValueAreaFraction:   profile.DefaultValueAreaFraction,
		OrderFlow:           orderflow.DefaultConfig(),
		Features:            features.DefaultConfig(),
	}
}

// Snapshot is the immutable state handed to the broadcast layer after a
// trigger bar completes.
type Snapshot struct {
	Features        features.Vector   `json:"features"`
	FeatureNames    []string          `json:"featureNames"`
	BiasFlow        orderflow.Result  `json:"biasFlow"`
	TriggerFlow     orderflow.Result  `json:"triggerFlow"`
	BiasProfile     profile.Result    `json:"biasProfile"`
	ATR             float64           `json:"atr"`
	SmoothedVWAP    float64           `json:"smoothedVwap"`
	DeltaEfficiency float64           `json:"deltaEfficiency"`
	TrendSpread     float64           `json:"trendSpread"`
	TrendSlope      float64           `json:"trendSlope"`
	BarTimestamp    int64             `json:"barTimestamp"`
}

// Manager owns the three ring buffers and all derived trackers. Bars
// must arrive in chronological order from a single goroutine.
type Manager struct {
	cfg Config

	baseBars    *buffer.RingBuffer[types.Bar]
	biasBars    *buffer.RingBuffer[types.Bar]
	triggerBars *buffer.RingBuffer[types.Bar]

	trend     *indicators.EMATracker
	biasTrend *indicators.EMATracker

	clusterTracker *cluster.Tracker
	biasFlow       *orderflow.Tracker
	triggerFlow    *orderflow.Tracker
	assembler      *features.Assembler

	atr             float64
	smoothedVWAP    float64
	hasSmoothedVWAP bool
	ewmDelta        float64
	hasEWMDelta     bool

	lastBiasResult    orderflow.Result
	lastTriggerResult orderflow.Result
	lastBiasProfile   profile.Result
	lastVector        features.Vector
	deltaEfficiency   float64
}

// NewManager wires the full tracker graph from config.
func NewManager(cfg Config) (*Manager, error) {
	baseBars, err := buffer.NewRingBuffer[types.Bar](cfg.BasePeriod + 1)
	if err != nil {
		return nil, err
	}
	biasBars, err := buffer.NewRingBuffer[types.Bar](cfg.BiasPeriod + 1)
	if err != nil {
		return nil, err
	}
	triggerBars, err := buffer.NewRingBuffer[types.Bar](cfg.TriggerPeriod + 1)
	if err != nil {
		return nil, err
	}
	clusterTracker, err := cluster.NewTracker(cfg.ClusterLookback, cfg.ClusterBucketSize)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:            cfg,
		baseBars:       baseBars,
		biasBars:       biasBars,
		triggerBars:    triggerBars,
		trend:          indicators.NewEMATracker(cfg.EMAFast, cfg.EMASlow),
		biasTrend:      indicators.NewEMATracker(cfg.BiasEMAFast, cfg.BiasEMASlow),
		clusterTracker: clusterTracker,
		biasFlow:       orderflow.NewTracker(cfg.OrderFlow),
		triggerFlow:    orderflow.NewTracker(cfg.OrderFlow),
		assembler:      features.NewAssembler(cfg.Features),
	}, nil
}

// OnBaseBar absorbs a completed base bar and refreshes ATR.
func (m *Manager) OnBaseBar(bar types.Bar) {
	m.baseBars.Add(bar)
	if res := indicators.ATR(m.baseBars.Items(), m.cfg.BasePeriod); res.Valid {
		m.atr = res.Value
	}
}

// OnBiasBar absorbs a completed bias bar: VWAP + smoothing, both EMA
// pairs, the imbalance cluster, the bias order-flow tracker, the cached
// bias feature group and the bias volume profile.
func (m *Manager) OnBiasBar(bar types.Bar) orderflow.Result {
	m.biasBars.Add(bar)
	bars := m.biasBars.Items()

	vwapValue := 0.0
	if res := indicators.VWAP(bars, bar.Close); res.Valid {
		vwapValue = res.Value
		m.smoothVWAP(res.Value)
	}

	m.trend.Update(bar.Close)
	m.biasTrend.Update(bar.Close)
	m.clusterTracker.AddBar(bar.High, bar.Low, bar.Imbalances.BullCount, bar.Imbalances.BearCount)

	m.lastBiasResult = m.biasFlow.ProcessBar(orderflow.Snapshot{
		POC:            bar.POC,
		VAH:            bar.High,
		VAL:            bar.Low,
		Close:          bar.Close,
		VWAP:           vwapValue,
		Volume:         bar.Volume,
		BullImbalances: bar.Imbalances.BullCount,
		BearImbalances: bar.Imbalances.BearCount,
		Delta:          bar.Delta,
	}, m.atr)

	m.assembler.UpdateBias(bar, m.atr, m.biasTrend.Slow)
	m.lastBiasProfile = m.buildBiasProfile(bars)

	return m.lastBiasResult
}

// OnTriggerBar absorbs a completed trigger bar and assembles the
// feature vector. The returned snapshot is an independent copy safe to
// hand to other goroutines.
func (m *Manager) OnTriggerBar(bar types.Bar) Snapshot {
	m.triggerBars.Add(bar)
	bars := m.triggerBars.Items()

	vwapValue := 0.0
	if res := indicators.VWAP(bars, bar.Close); res.Valid {
		vwapValue = res.Value
	}

	if m.hasEWMDelta {
		m.ewmDelta = m.cfg.TriggerEWMAlpha*bar.Delta + (1-m.cfg.TriggerEWMAlpha)*m.ewmDelta
	} else {
		m.ewmDelta = bar.Delta
		m.hasEWMDelta = true
	}

	m.lastTriggerResult = m.triggerFlow.ProcessBar(orderflow.Snapshot{
		POC:            bar.POC,
		VAH:            bar.High,
		VAL:            bar.Low,
		Close:          bar.Close,
		VWAP:           vwapValue,
		Volume:         bar.Volume,
		BullImbalances: bar.Imbalances.BullCount,
		BearImbalances: bar.Imbalances.BearCount,
		Delta:          bar.Delta,
	}, m.atr)

	deltas := make([]float64, len(bars))
	for i, b := range bars {
		deltas[i] = b.Delta
	}
	m.deltaEfficiency = DeltaEfficiency(deltas, m.cfg.DeltaDecayRatio)

	m.lastVector = m.assembler.Compute(bars, bar, m.atr, m.ewmDelta, m.clusterTracker, bar.Timestamp)

	return m.snapshot(bar)
}

// ATRValue returns the latest base-series ATR.
func (m *Manager) ATRValue() float64 {
	return m.atr
}

// SmoothedVWAP returns the EMA-smoothed bias VWAP.
func (m *Manager) SmoothedVWAP() float64 {
	return m.smoothedVWAP
}

// DeltaEfficiencyValue returns the latest trigger delta efficiency.
func (m *Manager) DeltaEfficiencyValue() float64 {
	return m.deltaEfficiency
}

// smoothVWAP blends a fresh VWAP reading into the smoothed series.
// Smoothing is a passthrough until the first value seeds it.
func (m *Manager) smoothVWAP(value float64) {
	if !m.hasSmoothedVWAP {
		m.smoothedVWAP = value
		m.hasSmoothedVWAP = true
		return
	}
	mult := 2.0 / float64(m.cfg.VWAPSmoothingPeriod+1)
	m.smoothedVWAP = (value-m.smoothedVWAP)*mult + m.smoothedVWAP
}

// buildBiasProfile accumulates bias-window volume at bucketized typical
// prices and runs the profile engine over it.
func (m *Manager) buildBiasProfile(bars []types.Bar) profile.Result {
	if m.cfg.ProfileBucketSize <= 0 {
		return profile.Result{}
	}
	levels := make(map[float64]float64, len(bars))
	for _, b := range bars {
		bucket := math.Round(b.TypicalPrice()/m.cfg.ProfileBucketSize) * m.cfg.ProfileBucketSize
		levels[bucket] += b.Volume
	}
	return profile.Compute(levels, m.cfg.ValueAreaFraction)
}

func (m *Manager) snapshot(bar types.Bar) Snapshot {
	return Snapshot{
		Features:        m.lastVector,
		FeatureNames:    features.Names[:],
		BiasFlow:        m.lastBiasResult,
		TriggerFlow:     m.lastTriggerResult,
		BiasProfile:     m.lastBiasProfile,
		ATR:             m.atr,
		SmoothedVWAP:    m.smoothedVWAP,
		DeltaEfficiency: m.deltaEfficiency,
		TrendSpread:     m.trend.Spread,
		TrendSlope:      m.trend.FastSlope(),
		BarTimestamp:    bar.Timestamp.UnixMilli(),
	}
}

// DeltaEfficiency measures how directional the order flow was over a
// window: |Σ(weight·delta)| / Σ(weight·|delta|) × 100. Weights decay
// exponentially so the oldest bar always carries oldestWeightRatio of
// the newest bar's weight, regardless of window length.
func DeltaEfficiency(deltas []float64, oldestWeightRatio float64) float64 {
	n := len(deltas)
	if n == 0 {
		return 0
	}

	decay := 1.0
	if n > 1 {
		decay = math.Pow(oldestWeightRatio, 1.0/float64(n-1))
	}

	var net, total float64
	for i, d := range deltas {
		w := math.Pow(decay, float64(n-1-i))
		net += w * d
		total += w * math.Abs(d)
	}
	if total == 0 {
		return 0
	}
	return math.Abs(net) / total * 100.0
}
