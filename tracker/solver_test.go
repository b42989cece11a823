package tracker

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// totalCost sums the cost of all assigned pairs
func totalCost(cost [][]float64, rowsol []int) float64 {
	sum := 0.0
	for i, j := range rowsol {
		if j >= 0 {
			sum += cost[i][j]
		}
	}
	return sum
}

// checkConsistent verifies rowsol and colsol describe the same matching
func checkConsistent(t *testing.T, rowsol, colsol []int) {
	t.Helper()

	for i, j := range rowsol {
		if j >= 0 {
			require.Equal(t, i, colsol[j], "row %d -> col %d not mirrored", i, j)
		}
	}

	for j, i := range colsol {
		if i >= 0 {
			require.Equal(t, j, rowsol[i], "col %d -> row %d not mirrored", j, i)
		}
	}
}

func optimalSolvers() map[string]Solver {
	return map[string]Solver{
		SolverLAPJV:     LAPJV{},
		SolverHungarian: Hungarian{},
	}
}

func TestSolversOptimalSquare(t *testing.T) {

	tests := []struct {
		name string
		cost [][]float64
		want float64
	}{
		{
			name: "case 1",
			cost: [][]float64{
				{4, 1, 3, 2},
				{2, 0, 5, 3},
				{3, 2, 2, 3},
				{2, 3, 3, 2},
			},
			want: 6,
		},
		{
			name: "case 2",
			cost: [][]float64{
				{10, 19, 8, 15},
				{10, 18, 7, 17},
				{13, 16, 9, 14},
				{12, 19, 8, 18},
			},
			want: 49,
		},
	}

	for name, solver := range optimalSolvers() {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				rowsol, colsol, err := solver.Solve(tt.cost, math.Inf(1))
				require.NoError(t, err)
				checkConsistent(t, rowsol, colsol)

				for i, j := range rowsol {
					assert.GreaterOrEqual(t, j, 0, "row %d unassigned", i)
				}

				assert.InDelta(t, tt.want, totalCost(tt.cost, rowsol), 1e-9)
			})
		}
	}
}

func TestSolversRectangular(t *testing.T) {

	cost := [][]float64{
		{0.1, 0.9, 0.5},
		{0.2, 0.3, 0.8},
	}

	for name, solver := range optimalSolvers() {
		t.Run(name, func(t *testing.T) {
			rowsol, colsol, err := solver.Solve(cost, 0.7)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1}, rowsol)
			assert.Equal(t, []int{0, 1, -1}, colsol)
		})
	}
}

func TestSolversCostLimit(t *testing.T) {

	cost := [][]float64{
		{0.9, Infeasible},
		{Infeasible, 0.2},
	}

	for name, solver := range map[string]Solver{
		SolverLAPJV:     LAPJV{},
		SolverHungarian: Hungarian{},
		SolverGreedy:    Greedy{},
	} {
		t.Run(name, func(t *testing.T) {
			rowsol, colsol, err := solver.Solve(cost, 0.7)
			require.NoError(t, err)
			assert.Equal(t, []int{-1, 1}, rowsol)
			assert.Equal(t, []int{-1, 1}, colsol)
		})
	}
}

func TestGreedyIsNotOptimal(t *testing.T) {

	cost := [][]float64{
		{1, 2},
		{2, 100},
	}

	rowsol, _, err := LAPJV{}.Solve(cost, math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, rowsol)

	rowsol, _, err = Greedy{}.Solve(cost, math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, rowsol)
}

func TestSolversEmpty(t *testing.T) {

	for name, solver := range map[string]Solver{
		SolverLAPJV:     LAPJV{},
		SolverHungarian: Hungarian{},
		SolverGreedy:    Greedy{},
	} {
		t.Run(name, func(t *testing.T) {
			rowsol, colsol, err := solver.Solve(nil, 0.7)
			require.NoError(t, err)
			assert.Empty(t, rowsol)
			assert.Empty(t, colsol)

			rowsol, colsol, err = solver.Solve([][]float64{{}, {}}, 0.7)
			require.NoError(t, err)
			assert.Equal(t, []int{-1, -1}, rowsol)
			assert.Empty(t, colsol)
		})
	}
}

func TestSolversRejectMalformedCost(t *testing.T) {

	bad := map[string][][]float64{
		"nan":    {{0.1, math.NaN()}},
		"inf":    {{math.Inf(1), 0.1}},
		"ragged": {{0.1, 0.2}, {0.3}},
	}

	for name, solver := range map[string]Solver{
		SolverLAPJV:     LAPJV{},
		SolverHungarian: Hungarian{},
		SolverGreedy:    Greedy{},
	} {
		for caseName, cost := range bad {
			t.Run(name+"/"+caseName, func(t *testing.T) {
				_, _, err := solver.Solve(cost, 0.7)
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrAssociationFailure))
			})
		}
	}
}

func TestNewSolver(t *testing.T) {

	for _, name := range []string{SolverLAPJV, SolverHungarian, SolverGreedy, ""} {
		s, err := NewSolver(name)
		require.NoError(t, err, name)
		assert.NotNil(t, s)
	}

	_, err := NewSolver("auction")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}
