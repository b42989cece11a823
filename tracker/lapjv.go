package tracker

import (
	"github.com/cockroachdb/errors"
)

// large is the sentinel used as "no value yet" inside the LAPJV solver, all
// real costs must be below it
const large = 1000000.0

// LAPJV solves the linear assignment problem with the Jonker-Volgenant
// algorithm on a dense cost matrix
type LAPJV struct{}

// Solve implements Solver
func (LAPJV) Solve(cost [][]float64, costLimit float64) ([]int, []int, error) {

	rows, cols, err := checkCost(cost)

	if err != nil || rows == 0 || cols == 0 {
		return unassigned(rows), unassigned(cols), err
	}

	ext := extendCost(cost, rows, cols, costLimit)

	x, y, err := solveLAPJV(ext)

	if err != nil {
		return nil, nil, err
	}

	return trimSolution(x, y, rows, cols)
}

// lapjvState holds the working data of one LAPJV run. x[i] is the column
// assigned to row i and y[j] the row assigned to column j.
type lapjvState struct {
	n    int
	cost [][]float64
	x    []int
	y    []int
	v    []float64
}

// solveLAPJV runs LAPJV on a square n x n cost matrix
func solveLAPJV(cost [][]float64) ([]int, []int, error) {

	n := len(cost)

	s := &lapjvState{
		n:    n,
		cost: cost,
		x:    make([]int, n),
		y:    make([]int, n),
		v:    make([]float64, n),
	}

	if n == 0 {
		return s.x, s.y, nil
	}

	free := make([]int, n)
	nFree := s.columnReduction(free)

	for i := 0; nFree > 0 && i < 2; i++ {
		nFree = s.augmentingRowReduction(free, nFree)
	}

	if nFree > 0 {
		if err := s.augment(free[:nFree]); err != nil {
			return nil, nil, err
		}
	}

	return s.x, s.y, nil
}

// columnReduction performs column reduction and reduction transfer, it
// returns the number of rows left unassigned which are written to free
func (s *lapjvState) columnReduction(free []int) int {

	n := s.n
	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		s.x[i] = -1
		s.v[i] = large
		s.y[i] = 0
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := s.cost[i][j]; c < s.v[j] {
				s.v[j] = c
				s.y[j] = i
			}
		}
	}

	for i := range unique {
		unique[i] = true
	}

	for j := n - 1; j >= 0; j-- {
		i := s.y[j]

		if s.x[i] < 0 {
			s.x[i] = j
		} else {
			unique[i] = false
			s.y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if s.x[i] < 0 {
			free[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := s.x[i]
		minVal := large

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}

			if c := s.cost[i][j2] - s.v[j2]; c < minVal {
				minVal = c
			}
		}

		s.v[j] -= minVal
	}

	return nFree
}

// augmentingRowReduction tries to assign the free rows by lowering column
// prices, returning the number of rows still free
func (s *lapjvState) augmentingRowReduction(free []int, nFree int) int {

	n := s.n
	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := free[current]
		current++

		j1 := 0
		v1 := s.cost[freeI][0] - s.v[0]
		j2 := -1
		v2 := large

		for j := 1; j < n; j++ {
			c := s.cost[freeI][j] - s.v[j]

			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		i0 := s.y[j1]
		v1New := s.v[j1] - (v2 - v1)
		v1Lowers := v1New < s.v[j1]

		if rrCnt < current*n {
			if v1Lowers {
				s.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = s.y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					free[current] = i0
				} else {
					free[newFree] = i0
					newFree++
				}
			}
		} else if i0 >= 0 {
			free[newFree] = i0
			newFree++
		}

		s.x[freeI] = j1
		s.y[j1] = freeI
	}

	return newFree
}

// findMinColumns moves the columns with minimum d[j] to the SCAN list
// starting at lo, returning the new end of the list
func (s *lapjvState) findMinColumns(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < s.n; k++ {

		j := cols[k]

		if d[j] <= mind {
			if d[j] < mind {
				hi = lo
				mind = d[j]
			}

			cols[k] = cols[hi]
			cols[hi] = j
			hi++
		}
	}

	return hi
}

// scanColumns scans the TODO columns from the SCAN list, lowering d where
// possible. It returns a free column reached at minimum distance or -1.
func (s *lapjvState) scanColumns(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := s.y[j]
		mind := d[j]
		h := s.cost[i][j] - s.v[j] - mind

		for k := *hi; k < s.n; k++ {
			j = cols[k]
			credIJ := s.cost[i][j] - s.v[j] - h

			if credIJ < d[j] {
				d[j] = credIJ
				pred[j] = i

				if credIJ == mind {
					if s.y[j] < 0 {
						return j
					}

					cols[k] = cols[*hi]
					cols[*hi] = j
					*hi++
				}
			}
		}
	}

	return -1
}

// findPath runs a single modified Dijkstra shortest path search from the
// free row startI and returns the free column it ends at
func (s *lapjvState) findPath(startI int, pred []int) int {

	n := s.n
	lo := 0
	hi := 0
	finalJ := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for i := 0; i < n; i++ {
		cols[i] = i
		pred[i] = startI
		d[i] = s.cost[startI][i] - s.v[i]
	}

	for finalJ == -1 {
		// no columns left on the SCAN list
		if lo == hi {
			nReady = lo
			hi = s.findMinColumns(lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; s.y[j] < 0 {
					finalJ = j
				}
			}
		}

		if finalJ == -1 {
			finalJ = s.scanColumns(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for k := 0; k < nReady; k++ {
		j := cols[k]
		s.v[j] += d[j] - mind
	}

	return finalJ
}

// augment assigns every remaining free row along its shortest
// augmenting path
func (s *lapjvState) augment(free []int) error {

	pred := make([]int, s.n)

	for _, freeI := range free {

		i := -1
		k := 0

		j := s.findPath(freeI, pred)

		if j < 0 || j >= s.n {
			return errors.Newf("augmenting path ended at invalid column %d", j)
		}

		for i != freeI {

			i = pred[j]
			s.y[j] = i
			j, s.x[i] = s.x[i], j
			k++

			if k > s.n {
				return errors.New("augmenting path longer than matrix size")
			}
		}
	}

	return nil
}
