package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

// relaxation 线性松弛的解，目标为最小化形式（含常数项）
type relaxation struct {
	status    lpStatus
	objective float64
	x         []float64
}

// standardRow 标准型的一行：Σ coef·x' + slack·s = rhs
type standardRow struct {
	cols  []int
	coefs []float64
	slack float64
	rhs   float64
}

// solveRelaxation 在给定边界下求解线性松弛
// 转换为 gonum 标准型 min cᵀx, Ax=b, x>=0：变量平移到下界，不等式与未被蕴含的有限上界均带独立松弛列，
// 等式拆为一对不等式，保证 A 行满秩。
func solveRelaxation(m *Model, lb, ub []float64, tol float64) (relaxation, error) {
	n := len(m.vars)
	sign := 1.0
	if m.maximize {
		sign = -1
	}

	x := make([]float64, n)
	col := make([]int, n)
	free := 0
	for j := 0; j < n; j++ {
		if lb[j] > ub[j]+tol {
			return relaxation{status: lpInfeasible}, nil
		}
		x[j] = lb[j]
		if ub[j]-lb[j] <= tol {
			col[j] = -1
			continue
		}
		col[j] = free
		free++
	}

	constant := 0.0
	cost := make([]float64, free)
	for j := 0; j < n; j++ {
		constant += sign * m.objective[j] * lb[j]
		if col[j] >= 0 {
			cost[col[j]] = sign * m.objective[j]
		}
	}

	var rows []standardRow
	for _, r := range m.rows {
		rhs := r.RHS
		var cols []int
		var coefs []float64
		for _, t := range r.Terms {
			rhs -= t.Coef * lb[t.Var]
			if c := col[t.Var]; c >= 0 {
				cols = append(cols, c)
				coefs = append(coefs, t.Coef)
			}
		}
		scale := tol * math.Max(1, math.Abs(r.RHS))
		if len(cols) == 0 {
			if !constantRowFeasible(r.Sense, rhs, scale) {
				return relaxation{status: lpInfeasible}, nil
			}
			continue
		}
		switch r.Sense {
		case LessEq:
			rows = append(rows, standardRow{cols: cols, coefs: coefs, slack: 1, rhs: rhs})
		case GreaterEq:
			rows = append(rows, standardRow{cols: cols, coefs: coefs, slack: -1, rhs: rhs})
		case Equal:
			rows = append(rows,
				standardRow{cols: cols, coefs: coefs, slack: 1, rhs: rhs},
				standardRow{cols: cols, coefs: coefs, slack: -1, rhs: rhs})
		}
	}
	// 上界已由约束行蕴含的列不再单独成行
	implied := impliedUpper(rows, free)
	for j := 0; j < n; j++ {
		c := col[j]
		if c < 0 || math.IsInf(ub[j], 1) || implied[c] <= ub[j]-lb[j]+tol {
			continue
		}
		rows = append(rows, standardRow{cols: []int{c}, coefs: []float64{1}, slack: 1, rhs: ub[j] - lb[j]})
	}

	// 未出现在任何约束中的列：改进方向无界，否则固定在下界
	used := make([]bool, free)
	for _, r := range rows {
		for _, c := range r.cols {
			used[c] = true
		}
	}
	compact := make([]int, free)
	active := 0
	for c := 0; c < free; c++ {
		if !used[c] {
			if cost[c] < -tol {
				return relaxation{status: lpUnbounded}, nil
			}
			compact[c] = -1
			continue
		}
		compact[c] = active
		active++
	}

	if len(rows) == 0 {
		return relaxation{status: lpOptimal, objective: constant, x: x}, nil
	}

	width := active + len(rows)
	A := mat.NewDense(len(rows), width, nil)
	b := make([]float64, len(rows))
	c := make([]float64, width)
	for i, r := range rows {
		for k, cc := range r.cols {
			if p := compact[cc]; p >= 0 {
				A.Set(i, p, A.At(i, p)+r.coefs[k])
			}
		}
		A.Set(i, active+i, r.slack)
		b[i] = r.rhs
	}
	for cc := 0; cc < free; cc++ {
		if p := compact[cc]; p >= 0 {
			c[p] = cost[cc]
		}
	}

	optF, optX, err := simplex(c, A, b, tol)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return relaxation{status: lpInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return relaxation{status: lpUnbounded}, nil
	case err != nil:
		return relaxation{}, err
	}

	for j := 0; j < n; j++ {
		cc := col[j]
		if cc < 0 || compact[cc] < 0 {
			continue
		}
		v := optX[compact[cc]]
		if v < 0 {
			v = 0
		}
		x[j] = lb[j] + v
		if x[j] > ub[j] {
			x[j] = ub[j]
		}
	}
	return relaxation{status: lpOptimal, objective: constant + optF, x: x}, nil
}

// impliedUpper 由系数全为正的 ≤ 行推出各列（平移后）的上界，推不出时为 +Inf
func impliedUpper(rows []standardRow, free int) []float64 {
	bound := make([]float64, free)
	for c := range bound {
		bound[c] = math.Inf(1)
	}
	for _, r := range rows {
		if r.slack < 0 {
			continue
		}
		positive := true
		for _, a := range r.coefs {
			if a <= 0 {
				positive = false
				break
			}
		}
		if !positive {
			continue
		}
		for k, c := range r.cols {
			bound[c] = math.Min(bound[c], r.rhs/r.coefs[k])
		}
	}
	return bound
}

// simplex 调用 gonum 单纯形法，并将 panic 转为错误
func simplex(c []float64, A *mat.Dense, b []float64, tol float64) (optF float64, optX []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("单纯形法异常: %v", r)
		}
	}()
	return lp.Simplex(c, A, b, tol, nil)
}

func constantRowFeasible(sense Sense, rhs, tol float64) bool {
	switch sense {
	case LessEq:
		return rhs >= -tol
	case GreaterEq:
		return rhs <= tol
	default:
		return math.Abs(rhs) <= tol
	}
}
