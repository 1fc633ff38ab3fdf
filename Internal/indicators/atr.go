package indicators

import (
	"math"

	"github.com/fazecat/flowlens/Internal/types"
)

// ATRResult carries the average true range, or Valid=false when the
// window is too short for the requested period.
type ATRResult struct {
	Valid bool
	Value float64
}

// ATR averages the true range over the most recent `period` adjacent
// bar pairs. Needs at least period+1 bars.
func ATR(bars []types.Bar, period int) ATRResult {
	if period < 1 || len(bars) < period+1 {
		return ATRResult{}
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		cur := bars[i]
		prevClose := bars[i-1].Close
		tr := math.Max(cur.High-cur.Low,
			math.Max(math.Abs(cur.High-prevClose), math.Abs(cur.Low-prevClose)))
		sum += tr
	}
	return ATRResult{Valid: true, Value: sum / float64(period)}
}
