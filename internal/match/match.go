// Package match pairs content regions of an original page with regions of
// its converted counterpart by bounding-box overlap.
package match

import (
	"fmt"
	"strings"

	"pagediff/pkg/geometry"
)

// DefaultThreshold is the IoU a pair must exceed to be accepted.
const DefaultThreshold = 0.2

// Match is one accepted pairing.
type Match struct {
	Original       geometry.RectInt `json:"original" yaml:"original"`
	Converted      geometry.RectInt `json:"converted" yaml:"converted"`
	OriginalIndex  int              `json:"original_index" yaml:"original_index"`
	ConvertedIndex int              `json:"converted_index" yaml:"converted_index"`
	IoU            float64          `json:"iou" yaml:"iou"`
}

// Result partitions both inputs. Every input region appears exactly once:
// either on one side of a match or in one of the unmatched lists.
type Result struct {
	Matches            []Match            `json:"matches" yaml:"matches"`
	UnmatchedOriginal  []geometry.RectInt `json:"unmatched_original" yaml:"unmatched_original"`
	UnmatchedConverted []geometry.RectInt `json:"unmatched_converted" yaml:"unmatched_converted"`
}

// MeanIoU is the average overlap of the accepted matches, 0 when there are none.
func (r Result) MeanIoU() float64 {
	if len(r.Matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range r.Matches {
		sum += m.IoU
	}
	return sum / float64(len(r.Matches))
}

// Matcher pairs regions. Implementations never modify their inputs.
type Matcher interface {
	Match(original, converted []geometry.RectInt) Result
}

// Strategy names a Matcher implementation.
type Strategy string

const (
	StrategyGreedy  Strategy = "greedy"
	StrategyOptimal Strategy = "optimal"
)

// New builds the matcher for a strategy name. A non-positive threshold
// falls back to DefaultThreshold.
func New(strategy Strategy, threshold float64) (Matcher, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	switch Strategy(strings.ToLower(string(strategy))) {
	case StrategyGreedy, "":
		return Greedy{Threshold: threshold}, nil
	case StrategyOptimal:
		return Optimal{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q (want greedy or optimal)", strategy)
	}
}

// partition builds a Result from an assignment of original index to
// converted index (-1 for none).
func partition(original, converted []geometry.RectInt, assigned []int, iou func(i, j int) float64) Result {
	res := Result{
		Matches:            []Match{},
		UnmatchedOriginal:  []geometry.RectInt{},
		UnmatchedConverted: []geometry.RectInt{},
	}
	used := make([]bool, len(converted))

	for i, j := range assigned {
		if j < 0 {
			res.UnmatchedOriginal = append(res.UnmatchedOriginal, original[i])
			continue
		}
		used[j] = true
		res.Matches = append(res.Matches, Match{
			Original:       original[i],
			Converted:      converted[j],
			OriginalIndex:  i,
			ConvertedIndex: j,
			IoU:            iou(i, j),
		})
	}
	for j, ok := range used {
		if !ok {
			res.UnmatchedConverted = append(res.UnmatchedConverted, converted[j])
		}
	}
	return res
}
