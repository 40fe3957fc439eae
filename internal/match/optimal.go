package match

import (
	"math"

	"pagediff/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// Optimal finds the assignment that maximises the summed IoU over all pairs
// above Threshold (Hungarian algorithm). It costs O(n³) in the larger side.
type Optimal struct {
	Threshold float64
}

// Match implements Matcher.
func (o Optimal) Match(original, converted []geometry.RectInt) Result {
	n, m := len(original), len(converted)
	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = -1
	}
	if n == 0 || m == 0 {
		return partition(original, converted, assigned, nil)
	}

	// Pairs at or below the threshold weigh nothing, so the solver never
	// prefers them over leaving both sides unmatched.
	weights := mat.NewDense(n, m, nil)
	for i, a := range original {
		for j, b := range converted {
			if iou := a.IoU(b); iou > o.Threshold {
				weights.Set(i, j, iou)
			}
		}
	}

	var cols []int
	if n <= m {
		cols = maxAssignment(weights)
	} else {
		// The solver wants rows <= cols; solve the transpose and invert it.
		rows := maxAssignment(mat.DenseCopyOf(weights.T()))
		cols = make([]int, n)
		for i := range cols {
			cols[i] = -1
		}
		for j, i := range rows {
			if i >= 0 {
				cols[i] = j
			}
		}
	}

	for i, j := range cols {
		if j >= 0 && weights.At(i, j) > 0 {
			assigned[i] = j
		}
	}
	return partition(original, converted, assigned, weights.At)
}

// maxAssignment solves the rectangular assignment problem for a weight
// matrix with rows <= cols and returns the column assigned to every row.
// It runs the potentials form of the Hungarian algorithm on negated weights.
func maxAssignment(w *mat.Dense) []int {
	n, m := w.Dims()
	inf := math.Inf(1)

	// 1-based with a virtual column 0, as the potentials formulation needs.
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1)
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := -w.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rows := make([]int, n)
	for i := range rows {
		rows[i] = -1
	}
	for j := 1; j <= m; j++ {
		if p[j] > 0 {
			rows[p[j]-1] = j - 1
		}
	}
	return rows
}
