// Package solver 提供混合整数规划求解器
package solver

import (
	"fmt"
	"math"
)

// VarKind 变量类型
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// String 实现 fmt.Stringer
func (k VarKind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "continuous"
	}
}

// Sense 约束方向
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

// String 实现 fmt.Stringer
func (s Sense) String() string {
	switch s {
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "<="
	}
}

// Var 变量句柄（模型内下标）
type Var int

// Term 线性项
type Term struct {
	Var  Var
	Coef float64
}

// T 构造线性项
func T(v Var, coef float64) Term {
	return Term{Var: v, Coef: coef}
}

type variable struct {
	name string
	kind VarKind
	lb   float64
	ub   float64
}

// Row 线性约束
type Row struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model 混合整数线性规划模型，每次求解新建
type Model struct {
	name      string
	vars      []variable
	rows      []Row
	objective []float64
	maximize  bool
}

// NewModel 创建模型
func NewModel(name string) *Model {
	return &Model{name: name}
}

// Name 模型名称
func (m *Model) Name() string {
	return m.name
}

// AddVar 添加变量；ub 可为 +Inf
func (m *Model) AddVar(name string, kind VarKind, lb, ub float64) Var {
	if kind == Binary {
		lb, ub = math.Max(lb, 0), math.Min(ub, 1)
	}
	m.vars = append(m.vars, variable{name: name, kind: kind, lb: lb, ub: ub})
	m.objective = append(m.objective, 0)
	return Var(len(m.vars) - 1)
}

// Continuous 添加连续变量
func (m *Model) Continuous(name string, lb, ub float64) Var {
	return m.AddVar(name, Continuous, lb, ub)
}

// Integer 添加整数变量
func (m *Model) Integer(name string, lb, ub float64) Var {
	return m.AddVar(name, Integer, lb, ub)
}

// Binary 添加 0-1 变量
func (m *Model) Binary(name string) Var {
	return m.AddVar(name, Binary, 0, 1)
}

// Fix 固定变量取值
func (m *Model) Fix(v Var, value float64) {
	m.vars[v].lb = value
	m.vars[v].ub = value
}

// Bounds 返回变量上下界
func (m *Model) Bounds(v Var) (float64, float64) {
	return m.vars[v].lb, m.vars[v].ub
}

// VarName 返回变量名
func (m *Model) VarName(v Var) string {
	return m.vars[v].name
}

// Kind 返回变量类型
func (m *Model) Kind(v Var) VarKind {
	return m.vars[v].kind
}

// AddConstraint 添加约束，返回约束下标
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) int {
	m.rows = append(m.rows, Row{Name: name, Terms: merge(terms), Sense: sense, RHS: rhs})
	return len(m.rows) - 1
}

// Maximize 设置最大化目标
func (m *Model) Maximize(terms []Term) {
	m.setObjective(terms, true)
}

// Minimize 设置最小化目标
func (m *Model) Minimize(terms []Term) {
	m.setObjective(terms, false)
}

func (m *Model) setObjective(terms []Term, maximize bool) {
	for i := range m.objective {
		m.objective[i] = 0
	}
	for _, t := range terms {
		m.objective[t.Var] += t.Coef
	}
	m.maximize = maximize
}

// NumVars 变量数
func (m *Model) NumVars() int {
	return len(m.vars)
}

// NumRows 约束数
func (m *Model) NumRows() int {
	return len(m.rows)
}

// Rows 返回约束（只读）
func (m *Model) Rows() []Row {
	return m.rows
}

// Validate 检查模型结构
func (m *Model) Validate() error {
	for i, v := range m.vars {
		if math.IsNaN(v.lb) || math.IsNaN(v.ub) || math.IsInf(v.lb, 0) {
			return fmt.Errorf("变量 %s(#%d) 边界无效 [%v, %v]", v.name, i, v.lb, v.ub)
		}
		if v.lb > v.ub {
			return fmt.Errorf("变量 %s(#%d) 下界 %v 大于上界 %v", v.name, i, v.lb, v.ub)
		}
	}
	for _, r := range m.rows {
		if math.IsNaN(r.RHS) || math.IsInf(r.RHS, 0) {
			return fmt.Errorf("约束 %s 右端项无效 %v", r.Name, r.RHS)
		}
		for _, t := range r.Terms {
			if int(t.Var) < 0 || int(t.Var) >= len(m.vars) {
				return fmt.Errorf("约束 %s 引用了不存在的变量 #%d", r.Name, t.Var)
			}
		}
	}
	return nil
}

// Evaluate 计算约束左端值
func (r Row) Evaluate(x []float64) float64 {
	var sum float64
	for _, t := range r.Terms {
		sum += t.Coef * x[t.Var]
	}
	return sum
}

// Satisfied 检查约束在容差内是否满足
func (r Row) Satisfied(x []float64, tol float64) bool {
	lhs := r.Evaluate(x)
	scale := tol * math.Max(1, math.Abs(r.RHS))
	switch r.Sense {
	case GreaterEq:
		return lhs >= r.RHS-scale
	case Equal:
		return math.Abs(lhs-r.RHS) <= scale
	default:
		return lhs <= r.RHS+scale
	}
}

// merge 合并同一变量的系数并去掉零系数
func merge(terms []Term) []Term {
	if len(terms) == 0 {
		return nil
	}
	idx := make(map[Var]int, len(terms))
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if i, ok := idx[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		idx[t.Var] = len(out)
		out = append(out, t)
	}
	kept := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	return kept
}
