package types

import "time"

// ImbalanceSummary aggregates the diagonal imbalances detected inside a
// single bar. Positions are normalized to [-1, +1] within the bar's range
// (-1 = low, +1 = high).
type ImbalanceSummary struct {
	BullCount       int     `json:"bullCount"`
	BearCount       int     `json:"bearCount"`
	BullVolume      float64 `json:"bullVolume"`
	BearVolume      float64 `json:"bearVolume"`
	BullAvgPosition float64 `json:"bullAvgPosition"`
	BearAvgPosition float64 `json:"bearAvgPosition"`
	MaxBullPrice    float64 `json:"maxBullPrice"`
	MaxBullVolume   float64 `json:"maxBullVolume"`
	MaxBearPrice    float64 `json:"maxBearPrice"`
	MaxBearVolume   float64 `json:"maxBearVolume"`
}

// Bar is one fully closed price/volume bar plus its order-flow snapshot.
// Bars are built once by the feed adapter and never mutated afterward.
type Bar struct {
	Timestamp  time.Time        `json:"t"`
	Index      int              `json:"i"`
	Open       float64          `json:"o"`
	High       float64          `json:"h"`
	Low        float64          `json:"l"`
	Close      float64          `json:"c"`
	Volume     float64          `json:"v"`
	BuyVolume  float64          `json:"bv"`
	SellVolume float64          `json:"sv"`
	Delta      float64          `json:"d"`
	MaxDelta   float64          `json:"dMax"`
	MinDelta   float64          `json:"dMin"`
	POC        float64          `json:"poc"`
	Imbalances ImbalanceSummary `json:"imb"`
}

// Range returns high minus low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// TypicalPrice is the (high+low+close)/3 price used by VWAP.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}

func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

func (b Bar) IsBearish() bool {
	return b.Close < b.Open
}

// positionInRange maps a price to [0,1] within the bar's range, 0.5 when
// the bar has no range.
func (b Bar) positionInRange(price float64) float64 {
	r := b.Range()
	if r <= 0 {
		return 0.5
	}
	return (price - b.Low) / r
}

// ClosePosition is the close's position within the bar's range, in [0,1].
func (b Bar) ClosePosition() float64 {
	return b.positionInRange(b.Close)
}

// OpenPosition is the open's position within the bar's range, in [0,1].
func (b Bar) OpenPosition() float64 {
	return b.positionInRange(b.Open)
}

// POCPosition is the point of control's position within the bar's range.
func (b Bar) POCPosition() float64 {
	return b.positionInRange(b.POC)
}

// DeltaBias is the sign of the bar's delta: +1, -1 or 0.
func (b Bar) DeltaBias() int {
	switch {
	case b.Delta > 0:
		return 1
	case b.Delta < 0:
		return -1
	default:
		return 0
	}
}

// StructuralAlignment averages close position and POC position. Values
// near 1 mean both the close and the traded-volume peak sit at the top of
// the bar.
func (b Bar) StructuralAlignment() float64 {
	return (b.ClosePosition() + b.POCPosition()) / 2.0
}

// Score collapses the bar into a single [-1, 1] reading: direction comes
// from the delta bias, magnitude from structural alignment. A bullish bar
// maps to [0, 1], a bearish bar to [-1, 0], zero delta to 0.
func (b Bar) Score() float64 {
	switch b.DeltaBias() {
	case 1:
		return b.StructuralAlignment()
	case -1:
		return b.StructuralAlignment() - 1.0
	default:
		return 0
	}
}

// BodyPercent is |close-open| relative to the bar's range, 0 when the bar
// has no range.
func (b Bar) BodyPercent() float64 {
	r := b.Range()
	if r <= 0 {
		return 0
	}
	return abs(b.Close-b.Open) / r
}

// IsDivergent reports whether the delta sign disagrees with the bar's
// color: net buying into a red bar or net selling into a green one.
func (b Bar) IsDivergent() bool {
	return (b.Delta > 0 && b.IsBearish()) || (b.Delta < 0 && b.IsBullish())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
