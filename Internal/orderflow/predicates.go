package orderflow

import "github.com/fazecat/flowlens/Internal/types"

// Predicate thresholds are part of the behavioral contract and kept
// test-visible here rather than buried as literals.
const (
	// SkewExtremeFraction is how close to a bar's extreme the POC must
	// sit (top/bottom 20% of the range) before volume skew can fire.
	SkewExtremeFraction = 0.2

	// DivergencePositionThreshold is how far toward the explaining
	// extreme the opposing imbalances must average, in the [-1, 1]
	// in-bar position scale.
	DivergencePositionThreshold = 0.4
)

// HasVolumeSkew reports whether a bar's traded volume piles up at one
// extreme: the POC sits in the top or bottom fifth of the range and the
// imbalance volume on that same side strictly dominates the other side.
// Bearish imbalances live in the upper half of a bar, bullish in the
// lower half, so a top-heavy POC must be confirmed by bearish volume and
// a bottom-heavy POC by bullish volume.
func HasVolumeSkew(bar types.Bar) bool {
	if bar.Range() <= 0 {
		return false
	}
	imb := bar.Imbalances
	if imb.BullVolume+imb.BearVolume <= 0 {
		return false
	}

	pos := bar.POCPosition()
	switch {
	case pos >= 1.0-SkewExtremeFraction:
		return imb.BearVolume > imb.BullVolume
	case pos <= SkewExtremeFraction:
		return imb.BullVolume > imb.BearVolume
	default:
		return false
	}
}

// IsDivergenceConfirmed reports whether a divergent bar (delta sign
// against bar color) is backed by imbalances at the extreme that
// explains it: buying absorbed near the lows of a red bar, or selling
// pressed into the highs of a green bar.
func IsDivergenceConfirmed(bar types.Bar) bool {
	if !bar.IsDivergent() {
		return false
	}
	imb := bar.Imbalances

	if bar.Delta > 0 {
		// red bar, net buying: bullish imbalances must cluster low
		return imb.BullCount > 0 && imb.BullAvgPosition <= -DivergencePositionThreshold
	}
	// green bar, net selling: bearish imbalances must cluster high
	return imb.BearCount > 0 && imb.BearAvgPosition >= DivergencePositionThreshold
}
