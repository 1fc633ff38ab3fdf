// Package cluster accumulates multi-bar imbalance votes into price
// buckets and answers support/resistance strength queries against them.
package cluster

import (
	"math"

	"github.com/fazecat/flowlens/Internal/buffer"
)

// zone holds one bar's contribution: bucket → vote count per side.
type zone struct {
	bull map[int]int
	bear map[int]int
}

// Tracker keeps a rolling window of per-bar vote zones plus running
// aggregate maps. The aggregates always equal the sum of the zones still
// inside the window: votes are subtracted when the oldest zone is
// evicted and entries dropping to zero or below are removed outright.
type Tracker struct {
	lookback   int
	bucketSize float64

	zones *buffer.RingBuffer[zone]
	bull  map[int]int
	bear  map[int]int
}

// NewTracker builds a tracker covering `lookback` bars with the given
// price bucket granularity.
func NewTracker(lookback int, bucketSize float64) (*Tracker, error) {
	zones, err := buffer.NewRingBuffer[zone](lookback)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		lookback:   lookback,
		bucketSize: bucketSize,
		zones:      zones,
		bull:       make(map[int]int),
		bear:       make(map[int]int),
	}, nil
}

func (t *Tracker) bucket(price float64) int {
	return int(math.Round(price / t.bucketSize))
}

// BucketPrice maps a bucket index back to its representative price.
func (t *Tracker) BucketPrice(bucket int) float64 {
	return float64(bucket) * t.bucketSize
}

// AddBar registers one completed bar. Bullish votes land in every bucket
// spanning the lower half of the bar's range, bearish votes in the upper
// half.
func (t *Tracker) AddBar(high, low float64, bullishCount, bearishCount int) {
	if t.zones.Full() {
		oldest, err := t.zones.Get(0)
		if err == nil {
			subtractVotes(t.bull, oldest.bull)
			subtractVotes(t.bear, oldest.bear)
		}
	}

	z := zone{bull: make(map[int]int), bear: make(map[int]int)}
	barRange := high - low
	if barRange > 0 {
		mid := low + barRange/2
		if bullishCount > 0 {
			for b := t.bucket(low); b <= t.bucket(mid); b++ {
				z.bull[b] += bullishCount
			}
		}
		if bearishCount > 0 {
			for b := t.bucket(mid); b <= t.bucket(high); b++ {
				z.bear[b] += bearishCount
			}
		}
	}

	t.zones.Add(z)
	addVotes(t.bull, z.bull)
	addVotes(t.bear, z.bear)
}

// BullStrength sums bullish votes in the 3 buckets centered on price.
func (t *Tracker) BullStrength(price float64) int {
	return t.strengthAt(t.bull, t.bucket(price))
}

// BearStrength sums bearish votes in the 3 buckets centered on price.
func (t *Tracker) BearStrength(price float64) int {
	return t.strengthAt(t.bear, t.bucket(price))
}

func (t *Tracker) strengthAt(votes map[int]int, center int) int {
	return votes[center-1] + votes[center] + votes[center+1]
}

// NearestSupportDistance scans downward from price, one bucket at a
// time, until 3-bucket bullish strength reaches the threshold. Returns
// bucketPrice−price (expected ≤ 0) or 0 when nothing qualifies within
// maxBucketOffset buckets.
func (t *Tracker) NearestSupportDistance(price, threshold float64, maxBucketOffset int) float64 {
	center := t.bucket(price)
	for off := 0; off <= maxBucketOffset; off++ {
		b := center - off
		if float64(t.strengthAt(t.bull, b)) >= threshold {
			return t.BucketPrice(b) - price
		}
	}
	return 0
}

// NearestResistanceDistance is the mirror scan upward over bearish
// votes, returning bucketPrice−price (expected ≥ 0) or 0.
func (t *Tracker) NearestResistanceDistance(price, threshold float64, maxBucketOffset int) float64 {
	center := t.bucket(price)
	for off := 0; off <= maxBucketOffset; off++ {
		b := center + off
		if float64(t.strengthAt(t.bear, b)) >= threshold {
			return t.BucketPrice(b) - price
		}
	}
	return 0
}

// Reset drops all zones and aggregate votes.
func (t *Tracker) Reset() {
	t.zones.Clear()
	t.bull = make(map[int]int)
	t.bear = make(map[int]int)
}

func addVotes(agg map[int]int, delta map[int]int) {
	for b, n := range delta {
		agg[b] += n
	}
}

func subtractVotes(agg map[int]int, delta map[int]int) {
	for b, n := range delta {
		agg[b] -= n
		if agg[b] <= 0 {
			delete(agg, b)
		}
	}
}
