package segment

import (
	"sort"

	"pagediff/pkg/geometry"
)

// Deduplicate removes every region that lies entirely inside a larger (or
// equal) region. Survivors are returned largest first. The input slice is
// not modified.
func Deduplicate(regions []geometry.RectInt) []geometry.RectInt {
	byArea := make([]geometry.RectInt, len(regions))
	copy(byArea, regions)
	sort.SliceStable(byArea, func(i, j int) bool {
		return byArea[i].Area() > byArea[j].Area()
	})

	kept := make([]geometry.RectInt, 0, len(byArea))
	for _, r := range byArea {
		nested := false
		for _, k := range kept {
			if k.Contains(r) {
				nested = true
				break
			}
		}
		if !nested {
			kept = append(kept, r)
		}
	}
	return kept
}

// Order returns regions in reading order: top to bottom, then left to right.
// The input slice is not modified.
func Order(regions []geometry.RectInt) []geometry.RectInt {
	ordered := make([]geometry.RectInt, len(regions))
	copy(ordered, regions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Y != ordered[j].Y {
			return ordered[i].Y < ordered[j].Y
		}
		return ordered[i].X < ordered[j].X
	})
	return ordered
}

// DedupeAndOrder removes nested regions, keeps at most maxRegions of the
// largest survivors (0 means no cap) and returns them in reading order.
func DedupeAndOrder(regions []geometry.RectInt, maxRegions int) []geometry.RectInt {
	kept, _ := capRegions(Deduplicate(regions), maxRegions)
	return Order(kept)
}

// capRegions keeps the first maxRegions of a largest-first slice and reports
// how many were cut.
func capRegions(byArea []geometry.RectInt, maxRegions int) ([]geometry.RectInt, int) {
	if maxRegions <= 0 || len(byArea) <= maxRegions {
		return byArea, 0
	}
	return byArea[:maxRegions], len(byArea) - maxRegions
}
