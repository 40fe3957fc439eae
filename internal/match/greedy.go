package match

import "pagediff/pkg/geometry"

// Greedy walks the original regions in order and gives each the unconsumed
// converted region with the highest IoU, if that IoU exceeds Threshold.
// It is O(|A|·|B|) and not globally optimal.
type Greedy struct {
	Threshold float64
}

// Match implements Matcher.
func (g Greedy) Match(original, converted []geometry.RectInt) Result {
	assigned := make([]int, len(original))
	scores := make([]float64, len(original))
	consumed := make([]bool, len(converted))

	for i, a := range original {
		best := -1
		bestIoU := 0.0

		// Strict comparison keeps the first candidate on ties.
		for j, b := range converted {
			if consumed[j] {
				continue
			}
			if iou := a.IoU(b); iou > bestIoU {
				best = j
				bestIoU = iou
			}
		}

		if best >= 0 && bestIoU > g.Threshold {
			consumed[best] = true
			assigned[i] = best
			scores[i] = bestIoU
		} else {
			assigned[i] = -1
		}
	}

	return partition(original, converted, assigned, func(i, _ int) float64 { return scores[i] })
}
