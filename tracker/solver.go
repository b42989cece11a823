package tracker

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
)

// Solver names accepted by NewSolver
const (
	SolverLAPJV     = "lapjv"
	SolverHungarian = "hungarian"
	SolverGreedy    = "greedy"
)

// Solver solves the minimum cost bipartite matching of a rows x cols cost
// matrix. rowsol[i] is the column assigned to row i and colsol[j] the row
// assigned to column j, or -1 when unassigned. No pair with a cost above
// costLimit is assigned. An infinite costLimit means a maximal matching.
type Solver interface {
	Solve(cost [][]float64, costLimit float64) (rowsol []int, colsol []int, err error)
}

// NewSolver returns the Solver registered under name
func NewSolver(name string) (Solver, error) {

	switch name {
	case SolverLAPJV, "":
		return LAPJV{}, nil
	case SolverHungarian:
		return Hungarian{}, nil
	case SolverGreedy:
		return Greedy{}, nil
	}

	return nil, errors.WithHint(
		invalidf("unknown solver %q", name),
		"use one of lapjv, hungarian or greedy",
	)
}

// checkCost validates the cost matrix shape and values. Every row must
// have the same length and hold finite values below the solver sentinel.
func checkCost(cost [][]float64) (rows, cols int, err error) {

	rows = len(cost)

	if rows == 0 {
		return 0, 0, nil
	}

	cols = len(cost[0])

	for i, row := range cost {
		if len(row) != cols {
			return 0, 0, errors.Mark(
				errors.Newf("cost matrix row %d has %d columns, expected %d", i, len(row), cols),
				ErrAssociationFailure)
		}

		for j, c := range row {
			if math.IsNaN(c) || math.IsInf(c, 0) || math.Abs(c) >= large {
				return 0, 0, errors.Mark(
					errors.Newf("cost matrix value at (%d,%d) is not usable: %v", i, j, c),
					ErrAssociationFailure)
			}
		}
	}

	return rows, cols, nil
}

// extendCost builds the square (rows+cols) matrix used to solve a
// rectangular problem with an unmatched option. Leaving a row and a column
// unmatched costs costLimit in total, so any pair above the limit loses
// against staying unmatched.
func extendCost(cost [][]float64, rows, cols int, costLimit float64) [][]float64 {

	n := rows + cols
	fill := costLimit / 2

	if math.IsInf(costLimit, 1) || costLimit >= large {
		costMax := -1.0

		for _, row := range cost {
			for _, c := range row {
				if c > costMax {
					costMax = c
				}
			}
		}

		fill = costMax + 1
	}

	ext := make([][]float64, n)

	for i := range ext {
		ext[i] = make([]float64, n)

		for j := range ext[i] {
			switch {
			case i < rows && j < cols:
				ext[i][j] = cost[i][j]
			case i >= rows && j >= cols:
				ext[i][j] = 0
			default:
				ext[i][j] = fill
			}
		}
	}

	return ext
}

// trimSolution maps an extended square solution back to the original
// rows x cols problem
func trimSolution(x, y []int, rows, cols int) ([]int, []int, error) {

	rowsol := make([]int, rows)
	colsol := make([]int, cols)

	for i := 0; i < rows; i++ {
		rowsol[i] = x[i]
		if rowsol[i] >= cols {
			rowsol[i] = -1
		}
	}

	for j := 0; j < cols; j++ {
		colsol[j] = y[j]
		if colsol[j] >= rows {
			colsol[j] = -1
		}
	}

	return rowsol, colsol, nil
}

// unassigned returns a solution slice of n entries with nothing assigned
func unassigned(n int) []int {

	sol := make([]int, n)

	for i := range sol {
		sol[i] = -1
	}

	return sol
}

// Hungarian solves the assignment problem with the Kuhn-Munkres algorithm
// using row and column potentials, O(n^3) on the extended matrix
type Hungarian struct{}

// Solve implements Solver
func (Hungarian) Solve(cost [][]float64, costLimit float64) ([]int, []int, error) {

	rows, cols, err := checkCost(cost)

	if err != nil || rows == 0 || cols == 0 {
		return unassigned(rows), unassigned(cols), err
	}

	c := extendCost(cost, rows, cols, costLimit)
	dim := len(c)

	const inf = math.MaxFloat64 / 2

	// 1-indexed, column 0 is virtual
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}

				cur := c[i0-1][j-1] - u[i0] - v[j]

				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}

				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				return nil, nil, errors.Mark(
					errors.New("hungarian solver found no augmenting column"),
					ErrAssociationFailure)
			}

			for j := 0; j <= dim; j++ {
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

		// augment along the path
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	x := unassigned(dim)
	y := unassigned(dim)

	for j := 1; j <= dim; j++ {
		if p[j] > 0 {
			x[p[j]-1] = j - 1
			y[j-1] = p[j] - 1
		}
	}

	return trimSolution(x, y, rows, cols)
}

// Greedy assigns pairs in order of increasing cost. It is not optimal and
// is only meant as a cheap fallback for very large scenes.
type Greedy struct{}

// Solve implements Solver
func (Greedy) Solve(cost [][]float64, costLimit float64) ([]int, []int, error) {

	rows, cols, err := checkCost(cost)

	if err != nil || rows == 0 || cols == 0 {
		return unassigned(rows), unassigned(cols), err
	}

	type pair struct {
		row, col int
		cost     float64
	}

	pairs := make([]pair, 0, rows*cols)

	for i, row := range cost {
		for j, c := range row {
			if c < costLimit {
				pairs = append(pairs, pair{i, j, c})
			}
		}
	}

	// ties fall back to index order so results are reproducible
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].cost < pairs[b].cost
	})

	rowsol := unassigned(rows)
	colsol := unassigned(cols)

	for _, p := range pairs {
		if rowsol[p.row] >= 0 || colsol[p.col] >= 0 {
			continue
		}

		rowsol[p.row] = p.col
		colsol[p.col] = p.row
	}

	return rowsol, colsol, nil
}
