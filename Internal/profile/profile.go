// Package profile builds price→volume histograms and derives the point
// of control and value area from them.
package profile

import "sort"

// DefaultValueAreaFraction is the share of total volume the value area
// must cover.
const DefaultValueAreaFraction = 0.70

// maxHighVolumeNodes caps the HVN list carried on a result.
const maxHighVolumeNodes = 5

// Node is a single price level and its traded volume.
type Node struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// Result is a computed volume profile. When Valid is false every other
// field is zero and must not be read.
type Result struct {
	Valid           bool                `json:"valid"`
	POC             float64             `json:"poc"`
	VAH             float64             `json:"vah"`
	VAL             float64             `json:"val"`
	Volumes         map[float64]float64 `json:"-"`
	TotalVolume     float64             `json:"totalVolume"`
	MaxVolume       float64             `json:"maxVolume"`
	HighVolumeNodes []Node              `json:"highVolumeNodes"`
}

// Compute derives POC/VAH/VAL and the top high-volume nodes from a
// price→volume histogram. The search is greedy from the POC outward and
// is deterministic for identical inputs: prices are sorted before any
// expansion, and POC ties resolve to the higher price.
func Compute(levels map[float64]float64, valueAreaFraction float64) Result {
	if len(levels) == 0 {
		return Result{}
	}

	total := 0.0
	for _, v := range levels {
		total += v
	}
	if total <= 0 {
		return Result{}
	}

	prices := make([]float64, 0, len(levels))
	for p := range levels {
		prices = append(prices, p)
	}
	sort.Float64s(prices)

	pocIdx := 0
	maxVol := levels[prices[0]]
	for i, p := range prices {
		v := levels[p]
		// ties resolve to the higher price; >= on an ascending scan does that
		if v >= maxVol {
			maxVol = v
			pocIdx = i
		}
	}

	lo, hi := pocIdx, pocIdx
	accumulated := levels[prices[pocIdx]]
	target := total * valueAreaFraction
	for accumulated < target && (lo > 0 || hi < len(prices)-1) {
		below := -1.0
		if lo > 0 {
			below = levels[prices[lo-1]]
		}
		above := -1.0
		if hi < len(prices)-1 {
			above = levels[prices[hi+1]]
		}
		if below > above {
			lo--
			accumulated += below
		} else {
			hi++
			accumulated += above
		}
	}

	nodes := make([]Node, len(prices))
	for i, p := range prices {
		nodes[i] = Node{Price: p, Volume: levels[p]}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Volume > nodes[j].Volume
	})
	if len(nodes) > maxHighVolumeNodes {
		nodes = nodes[:maxHighVolumeNodes]
	}

	volumes := make(map[float64]float64, len(levels))
	for p, v := range levels {
		volumes[p] = v
	}

	return Result{
		Valid:           true,
		POC:             prices[pocIdx],
		VAH:             prices[hi],
		VAL:             prices[lo],
		Volumes:         volumes,
		TotalVolume:     total,
		MaxVolume:       maxVol,
		HighVolumeNodes: nodes,
	}
}
