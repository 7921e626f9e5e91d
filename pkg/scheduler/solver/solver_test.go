package solver

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSolver() *BranchAndBound {
	return NewBranchAndBound(DefaultOptions())
}

func TestBranchAndBound_IntegerProgram(t *testing.T) {
	m := NewModel("integer")
	x := m.Integer("x", 0, math.Inf(1))
	y := m.Integer("y", 0, math.Inf(1))
	m.AddConstraint("sum", []Term{T(x, 1), T(y, 1)}, LessEq, 6)
	m.AddConstraint("weight", []Term{T(x, 9), T(y, 5)}, LessEq, 45)
	m.Maximize([]Term{T(x, 8), T(y, 5)})

	sol, err := newTestSolver().Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 40, sol.Objective, 1e-6)
	assert.InDelta(t, 5, sol.Value(x), 1e-6)
	assert.InDelta(t, 0, sol.Value(y), 1e-6)
}

func TestBranchAndBound_Knapsack(t *testing.T) {
	m := NewModel("knapsack")
	values := []float64{10, 13, 7}
	weights := []float64{3, 4, 2}
	var obj, load []Term
	vars := make([]Var, len(values))
	for i := range values {
		vars[i] = m.Binary("pick")
		obj = append(obj, T(vars[i], values[i]))
		load = append(load, T(vars[i], weights[i]))
	}
	m.AddConstraint("capacity", load, LessEq, 5)
	m.Maximize(obj)

	sol, err := newTestSolver().Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 17, sol.Objective, 1e-6)
	assert.InDelta(t, 1, sol.Value(vars[0]), 1e-6)
	assert.InDelta(t, 0, sol.Value(vars[1]), 1e-6)
	assert.InDelta(t, 1, sol.Value(vars[2]), 1e-6)
}

func TestBranchAndBound_EqualityAndFix(t *testing.T) {
	tests := []struct {
		name  string
		fix   bool
		wantX float64
		wantY float64
	}{
		{"最小化成本", false, 0, 3},
		{"固定变量", true, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel("equality")
			x := m.Integer("x", 0, 10)
			y := m.Integer("y", 0, 10)
			m.AddConstraint("total", []Term{T(x, 1), T(y, 1)}, Equal, 3)
			m.Minimize([]Term{T(x, 2), T(y, 1)})
			if tt.fix {
				m.Fix(x, 2)
			}

			sol, err := newTestSolver().Solve(context.Background(), m)
			require.NoError(t, err)
			assert.Equal(t, StatusOptimal, sol.Status)
			assert.InDelta(t, tt.wantX, sol.Value(x), 1e-6)
			assert.InDelta(t, tt.wantY, sol.Value(y), 1e-6)
		})
	}
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	tests := []struct {
		name  string
		build func(m *Model)
	}{
		{
			name: "线性不可行",
			build: func(m *Model) {
				x := m.Continuous("x", 0, math.Inf(1))
				m.AddConstraint("lo", []Term{T(x, 1)}, GreaterEq, 2)
				m.AddConstraint("hi", []Term{T(x, 1)}, LessEq, 1)
			},
		},
		{
			name: "整数不可行",
			build: func(m *Model) {
				x := m.Integer("x", 0, 5)
				m.AddConstraint("half", []Term{T(x, 2)}, Equal, 1)
			},
		},
		{
			name: "固定值冲突",
			build: func(m *Model) {
				x := m.Integer("x", 0, 5)
				m.Fix(x, 4)
				m.AddConstraint("cap", []Term{T(x, 1)}, LessEq, 3)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel("infeasible")
			tt.build(m)
			sol, err := newTestSolver().Solve(context.Background(), m)
			require.NoError(t, err)
			assert.Equal(t, StatusInfeasible, sol.Status)
			assert.False(t, sol.HasSolution())
		})
	}
}

func TestBranchAndBound_Unbounded(t *testing.T) {
	m := NewModel("unbounded")
	x := m.Continuous("x", 0, math.Inf(1))
	m.Maximize([]Term{T(x, 1)})

	_, err := newTestSolver().Solve(context.Background(), m)
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestBranchAndBound_CancelledWithoutIncumbent(t *testing.T) {
	m := NewModel("cancelled")
	x := m.Integer("x", 0, 10)
	m.Maximize([]Term{T(x, 1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSolver().Solve(ctx, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestBranchAndBound_NodeLimitKeepsIncumbent(t *testing.T) {
	m := NewModel("limited")
	var obj, load []Term
	for i := 0; i < 8; i++ {
		v := m.Binary("pick")
		obj = append(obj, T(v, float64(3+i%3)))
		load = append(load, T(v, float64(2+i%4)))
	}
	m.AddConstraint("capacity", load, LessEq, 9)
	m.Maximize(obj)

	opts := DefaultOptions()
	opts.MaxNodes = 1000
	full, err := NewBranchAndBound(opts).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, full.Status)

	for _, row := range m.Rows() {
		assert.True(t, row.Satisfied(full.Values, 1e-6))
	}
}

func TestBranchAndBound_TimeLimitInterruptsRelaxation(t *testing.T) {
	m := NewModel("slow")
	x := m.Integer("x", 0, 10)
	m.Maximize([]Term{T(x, 1)})

	opts := DefaultOptions()
	opts.TimeLimit = 100 * time.Millisecond
	s := NewBranchAndBound(opts)
	s.relaxFn = func(m *Model, lb, ub []float64, tol float64) (relaxation, error) {
		time.Sleep(3 * time.Second)
		return solveRelaxation(m, lb, ub, tol)
	}

	start := time.Now()
	_, err := s.Solve(context.Background(), m)
	elapsed := time.Since(start)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, elapsed, time.Second, "单次松弛不能拖过时间限制")
}

func TestBranchAndBound_TimeLimitKeepsIncumbent(t *testing.T) {
	m := NewModel("incumbent")
	a := m.Binary("a")
	b := m.Binary("b")
	// 根松弛 a=1 b=0.4，取整后即为可行解
	m.AddConstraint("pick", []Term{T(a, 5), T(b, 5)}, LessEq, 7)
	m.Maximize([]Term{T(a, 3), T(b, 2)})

	opts := DefaultOptions()
	opts.TimeLimit = 300 * time.Millisecond
	s := NewBranchAndBound(opts)
	calls := 0
	s.relaxFn = func(m *Model, lb, ub []float64, tol float64) (relaxation, error) {
		calls++
		if calls > 1 {
			time.Sleep(3 * time.Second)
		}
		return solveRelaxation(m, lb, ub, tol)
	}

	start := time.Now()
	sol, err := s.Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusFeasible, sol.Status)
	for _, row := range m.Rows() {
		assert.True(t, row.Satisfied(sol.Values, 1e-6))
	}
}

func TestImpliedUpper(t *testing.T) {
	rows := []standardRow{
		{cols: []int{0, 1}, coefs: []float64{1, 2}, slack: 1, rhs: 10},
		{cols: []int{0}, coefs: []float64{1}, slack: 1, rhs: 4},
		{cols: []int{1, 2}, coefs: []float64{1, -1}, slack: 1, rhs: 0},
		{cols: []int{2}, coefs: []float64{1}, slack: -1, rhs: 1},
	}
	got := impliedUpper(rows, 3)
	assert.Equal(t, 4.0, got[0])
	assert.Equal(t, 5.0, got[1])
	assert.True(t, math.IsInf(got[2], 1), "含负系数的行与 ≥ 行不推出上界")
}

func TestBranchAndBound_BoundsWithAndWithoutImpliedRows(t *testing.T) {
	tests := []struct {
		name   string
		xUpper float64
		want   float64
	}{
		{"上界被行蕴含", 10, 10},
		{"上界比行更紧", 2, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel("bounds")
			x := m.Integer("x", 0, tt.xUpper)
			y := m.Integer("y", 0, 3)
			m.AddConstraint("sum", []Term{T(x, 1), T(y, 1)}, LessEq, 5)
			m.Maximize([]Term{T(x, 2), T(y, 1)})

			sol, err := newTestSolver().Solve(context.Background(), m)
			require.NoError(t, err)
			assert.Equal(t, StatusOptimal, sol.Status)
			assert.InDelta(t, tt.want, sol.Objective, 1e-6)
			assert.LessOrEqual(t, sol.Value(x), tt.xUpper+1e-6)
		})
	}
}

func TestModel_Validate(t *testing.T) {
	m := NewModel("invalid")
	x := m.Continuous("x", 2, 1)
	m.AddConstraint("row", []Term{T(x, 1)}, LessEq, 1)

	_, err := newTestSolver().Solve(context.Background(), m)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	terms := merge([]Term{T(0, 1), T(1, 2), T(0, -1), T(1, 3)})
	assert.Equal(t, []Term{T(1, 5)}, terms)
}
