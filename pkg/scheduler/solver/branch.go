package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paiban/lineplan/pkg/logger"
)

// Status 求解状态
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible" // 达到限制，返回当前最优可行解
	StatusInfeasible Status = "infeasible"
)

var (
	// ErrTimeout 在时间或节点限制内没有找到可行解
	ErrTimeout = errors.New("solver: 限制内未找到可行解")
	// ErrUnbounded 目标无界
	ErrUnbounded = errors.New("solver: 目标无界")
	// ErrNumerical 数值问题导致无法判定
	ErrNumerical = errors.New("solver: 数值问题导致求解失败")
)

// Solver 求解器接口
type Solver interface {
	// Solve 求解模型
	Solve(ctx context.Context, m *Model) (*Solution, error)

	// Name 返回求解器名称
	Name() string
}

// Options 求解参数
type Options struct {
	TimeLimit    time.Duration
	MaxNodes     int
	Tolerance    float64 // 线性松弛容差
	IntTolerance float64 // 整数判定容差
	RelativeGap  float64
}

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return Options{
		TimeLimit:    30 * time.Second,
		MaxNodes:     20000,
		Tolerance:    1e-9,
		IntTolerance: 1e-6,
		RelativeGap:  1e-9,
	}
}

// Solution 求解结果
type Solution struct {
	Status    Status        `json:"status"`
	Objective float64       `json:"objective"`
	Values    []float64     `json:"-"`
	Nodes     int           `json:"nodes"`
	Duration  time.Duration `json:"duration"`
}

// Value 返回变量取值
func (s *Solution) Value(v Var) float64 {
	if s == nil || int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// HasSolution 是否有可用解
func (s *Solution) HasSolution() bool {
	return s != nil && s.Status != StatusInfeasible && s.Values != nil
}

// BranchAndBound 基于线性松弛的深度优先分支定界求解器
type BranchAndBound struct {
	opts    Options
	logger  *logger.PlannerLogger
	relaxFn func(m *Model, lb, ub []float64, tol float64) (relaxation, error)
}

// NewBranchAndBound 创建分支定界求解器
func NewBranchAndBound(opts Options) *BranchAndBound {
	def := DefaultOptions()
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = def.MaxNodes
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.IntTolerance <= 0 {
		opts.IntTolerance = def.IntTolerance
	}
	if opts.RelativeGap <= 0 {
		opts.RelativeGap = def.RelativeGap
	}
	return &BranchAndBound{
		opts:    opts,
		logger:  logger.NewPlannerLogger("solver"),
		relaxFn: solveRelaxation,
	}
}

// Name 返回求解器名称
func (s *BranchAndBound) Name() string {
	return "BranchAndBound"
}

// WithLogger 替换日志器
func (s *BranchAndBound) WithLogger(l *logger.PlannerLogger) *BranchAndBound {
	s.logger = l
	return s
}

type node struct {
	lb, ub []float64
}

// Solve 求解混合整数规划
func (s *BranchAndBound) Solve(ctx context.Context, m *Model) (*Solution, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("模型 %s 无效: %w", m.name, err)
	}
	s.logger.StartSolve(m.name, m.NumVars(), m.NumRows())

	if s.opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TimeLimit)
		defer cancel()
	}

	n := len(m.vars)
	root := node{lb: make([]float64, n), ub: make([]float64, n)}
	for j, v := range m.vars {
		root.lb[j], root.ub[j] = v.lb, v.ub
		if v.kind != Continuous {
			root.lb[j] = math.Ceil(v.lb - s.opts.IntTolerance)
			root.ub[j] = math.Floor(v.ub + s.opts.IntTolerance)
		}
	}

	var (
		incumbent    []float64
		incumbentObj = math.Inf(1)
		nodes        int
		limitHit     bool
		degraded     bool
		limitErr     error
	)
	accept := func(x []float64) {
		obj := s.minObjective(m, x)
		if obj < incumbentObj-s.gap(incumbentObj) || incumbent == nil {
			incumbent, incumbentObj = x, obj
		}
	}

	deadline, hasDeadline := ctx.Deadline()
	var lpTime time.Duration // 已完成松弛的累计耗时

	stack := []node{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			limitHit, limitErr = true, err
			break
		}
		if nodes >= s.opts.MaxNodes {
			limitHit = true
			break
		}
		// 已有可行解且剩余时间不足以再解一个松弛时提前结束
		if incumbent != nil && hasDeadline && nodes > 0 && time.Until(deadline) < lpTime/time.Duration(nodes) {
			limitHit = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		lpStart := time.Now()
		rel, err := s.relax(ctx, m, nd.lb, nd.ub)
		lpTime += time.Since(lpStart)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				limitHit, limitErr = true, ctxErr
				break
			}
			if nodes == 1 {
				return nil, fmt.Errorf("模型 %s 根节点松弛失败: %w", m.name, err)
			}
			degraded = true
			continue
		}
		switch rel.status {
		case lpInfeasible:
			continue
		case lpUnbounded:
			if nodes == 1 {
				return nil, ErrUnbounded
			}
			degraded = true
			continue
		}
		if incumbent != nil && rel.objective >= incumbentObj-s.gap(incumbentObj) {
			continue
		}

		branch, frac := s.selectBranch(m, rel.x)
		if branch < 0 {
			x := s.roundIntegers(m, rel.x)
			if s.feasible(m, x) {
				accept(x)
			} else {
				degraded = true
			}
			continue
		}

		if x := s.roundIntegers(m, rel.x); s.feasible(m, x) {
			accept(x)
		}

		down := node{lb: nd.lb, ub: cloneWith(nd.ub, branch, math.Floor(rel.x[branch]))}
		up := node{lb: cloneWith(nd.lb, branch, math.Ceil(rel.x[branch])), ub: nd.ub}
		// 后入栈者先探索：0-1 变量先取 1，整数变量先取就近方向
		if m.vars[branch].kind == Binary || frac >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	sol := &Solution{Nodes: nodes, Duration: time.Since(start)}
	switch {
	case incumbent != nil:
		sol.Values = incumbent
		sol.Objective = objectiveValue(m, incumbent)
		sol.Status = StatusOptimal
		if limitHit || degraded {
			sol.Status = StatusFeasible
		}
	case limitHit:
		s.logger.SolveComplete(m.name, "timeout", sol.Duration, 0, nodes)
		if limitErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, limitErr)
		}
		return nil, ErrTimeout
	case degraded:
		return nil, ErrNumerical
	default:
		sol.Status = StatusInfeasible
	}

	s.logger.SolveComplete(m.name, string(sol.Status), sol.Duration, sol.Objective, nodes)
	return sol, nil
}

// relax 求解一个节点的松弛；单纯形法不可中断，超时后直接返回，后台计算自行结束
func (s *BranchAndBound) relax(ctx context.Context, m *Model, lb, ub []float64) (relaxation, error) {
	type outcome struct {
		rel relaxation
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rel, err := s.relaxFn(m, lb, ub, s.opts.Tolerance)
		done <- outcome{rel: rel, err: err}
	}()
	select {
	case <-ctx.Done():
		return relaxation{}, ctx.Err()
	case out := <-done:
		return out.rel, out.err
	}
}

// selectBranch 选择分支变量：先 0-1 变量，再最不整的整数变量
func (s *BranchAndBound) selectBranch(m *Model, x []float64) (Var, float64) {
	best, bestScore, bestFrac := Var(-1), -1.0, 0.0
	bestBinary := false
	for j, v := range m.vars {
		if v.kind == Continuous {
			continue
		}
		f := x[j] - math.Floor(x[j])
		if f <= s.opts.IntTolerance || f >= 1-s.opts.IntTolerance {
			continue
		}
		score := 0.5 - math.Abs(f-0.5)
		isBinary := v.kind == Binary
		switch {
		case best < 0,
			isBinary && !bestBinary,
			isBinary == bestBinary && score > bestScore:
			best, bestScore, bestFrac, bestBinary = Var(j), score, f, isBinary
		}
	}
	return best, bestFrac
}

func (s *BranchAndBound) roundIntegers(m *Model, x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range m.vars {
		out[j] = x[j]
		if v.kind != Continuous {
			out[j] = math.Round(x[j])
		}
	}
	return out
}

func (s *BranchAndBound) feasible(m *Model, x []float64) bool {
	tol := s.opts.IntTolerance
	for j, v := range m.vars {
		if x[j] < v.lb-tol || x[j] > v.ub+tol {
			return false
		}
	}
	for _, r := range m.rows {
		if !r.Satisfied(x, tol) {
			return false
		}
	}
	return true
}

func (s *BranchAndBound) minObjective(m *Model, x []float64) float64 {
	obj := objectiveValue(m, x)
	if m.maximize {
		return -obj
	}
	return obj
}

func (s *BranchAndBound) gap(obj float64) float64 {
	if math.IsInf(obj, 0) {
		return 0
	}
	return s.opts.RelativeGap * math.Max(1, math.Abs(obj))
}

func objectiveValue(m *Model, x []float64) float64 {
	var obj float64
	for j, c := range m.objective {
		obj += c * x[j]
	}
	return obj
}

func cloneWith(src []float64, v Var, value float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	out[v] = value
	return out
}
