package indicators

import "github.com/fazecat/flowlens/Internal/types"

// VWAPResult carries the volume-weighted average price over a window and
// the distance of a reference price from it. Valid=false when the window
// is empty or carries no volume.
type VWAPResult struct {
	Valid    bool
	Value    float64
	Distance float64
}

// VWAP computes Σ(typicalPrice·volume)/Σvolume over the window.
func VWAP(bars []types.Bar, referencePrice float64) VWAPResult {
	if len(bars) == 0 {
		return VWAPResult{}
	}

	var weighted, volume float64
	for _, b := range bars {
		weighted += b.TypicalPrice() * b.Volume
		volume += b.Volume
	}
	if volume == 0 {
		return VWAPResult{}
	}

	v := weighted / volume
	return VWAPResult{Valid: true, Value: v, Distance: referencePrice - v}
}
