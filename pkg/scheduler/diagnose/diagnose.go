// Package diagnose 提供预分配可行性诊断
package diagnose

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/logger"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/solver"
)

// Options 诊断参数
type Options struct {
	Epsilon     float64 // 松弛量判定阈值
	UnmetWeight float64 // 未满足量权重，高于约束松弛
}

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return Options{Epsilon: 1e-6, UnmetWeight: 10}
}

// Allocation 诊断模型给出的分配
type Allocation struct {
	Request  int     `json:"request"`
	Pattern  string  `json:"pattern"`
	Line     string  `json:"line"`
	Shift    int     `json:"shift"`
	Quantity float64 `json:"quantity"`
}

// Report 诊断报告；存在违反不是错误
type Report struct {
	Violations  []model.Violation `json:"violations"`
	Allocations []Allocation      `json:"allocations"`
	Status      solver.Status     `json:"status"`
	Optimal     bool              `json:"optimal"`
	TotalSlack  decimal.Decimal   `json:"total_slack"`
	Duration    time.Duration     `json:"duration"`
}

// Feasible 是否无违反
func (r *Report) Feasible() bool {
	return len(r.Violations) == 0
}

// Diagnoser 可行性诊断器
type Diagnoser struct {
	solver solver.Solver
	opts   Options
	logger *logger.PlannerLogger
}

// New 创建诊断器
func New(s solver.Solver, opts Options) *Diagnoser {
	def := DefaultOptions()
	if opts.Epsilon <= 0 {
		opts.Epsilon = def.Epsilon
	}
	if opts.UnmetWeight <= 0 {
		opts.UnmetWeight = def.UnmetWeight
	}
	return &Diagnoser{
		solver: s,
		opts:   opts,
		logger: logger.NewPlannerLogger("diagnose"),
	}
}

// slackRef 松弛变量与其对应的约束实例
type slackRef struct {
	v      solver.Var
	reason model.Reason
	target string
	shift  int
	bound  float64
}

type allocRef struct {
	v       solver.Var
	request int
	line    string
	shift   int
}

// builder 单次诊断的模型与变量索引
type builder struct {
	plan     *model.Plan
	requests []model.Request
	opts     Options

	m       *solver.Model
	allocs  []allocRef
	slacks  []slackRef
	unmet   []slackRef
	slotUse map[model.Slot][]solver.Term          // (产线, 班次) 上的分配
	qtyUse  map[model.BuildingShift][]solver.Term // 厂房班次上的 指示变量×请求量
}

// Diagnose 对一组已解析请求做松弛诊断
func (d *Diagnoser) Diagnose(ctx context.Context, plan *model.Plan, requests []model.Request) (*Report, error) {
	start := time.Now()
	b := d.build(plan, requests)

	sol, err := d.solver.Solve(ctx, b.m)
	if err != nil {
		if stderrors.Is(err, solver.ErrTimeout) {
			return nil, errors.Wrap(err, errors.CodeTimeout, "诊断在限制内未得到可用解")
		}
		return nil, errors.SolverFailure(err, "诊断")
	}
	if !sol.HasSolution() {
		// 松弛变量吸收一切超量，不应出现不可行
		return nil, errors.SolverFailure(fmt.Errorf("诊断模型返回 %s", sol.Status), "诊断")
	}

	report := b.extract(sol, d.opts.Epsilon)
	report.Duration = time.Since(start)
	for _, v := range report.Violations {
		amt, _ := v.Amount.Float64()
		d.logger.ConstraintViolation(string(v.Reason), v.Target, amt)
	}
	return report, nil
}

func (d *Diagnoser) build(plan *model.Plan, requests []model.Request) *builder {
	b := &builder{
		plan:     plan,
		requests: requests,
		opts:     d.opts,
		m:        solver.NewModel("diagnose"),
		slotUse:  make(map[model.Slot][]solver.Term),
		qtyUse:   make(map[model.BuildingShift][]solver.Term),
	}
	var objective []solver.Term

	for ri, req := range requests {
		if req.Quantity <= 0 {
			continue
		}
		q := req.Quantity

		// 每个请求恰好选择一个 (厂房, 班次)
		combos := make(map[model.BuildingShift]solver.Var)
		var pick []solver.Term
		for _, bs := range requestCombos(plan, req) {
			z := b.m.Binary(fmt.Sprintf("z[%d,%s,%d]", ri, bs.Building, bs.Shift))
			combos[bs] = z
			pick = append(pick, solver.T(z, 1))
			b.qtyUse[bs] = append(b.qtyUse[bs], solver.T(z, q))
		}

		var assigned []solver.Term
		for _, line := range req.Lines {
			building := plan.Building(line)
			for _, shift := range req.Shifts {
				z := combos[model.BuildingShift{Building: building, Shift: shift}]
				y := b.m.Continuous(fmt.Sprintf("y[%d,%s,%d]", ri, line, shift), 0, q)
				b.m.AddConstraint("link", []solver.Term{solver.T(y, 1), solver.T(z, -q)}, solver.LessEq, 0)
				assigned = append(assigned, solver.T(y, 1))
				slot := model.Slot{Line: line, Shift: shift}
				b.slotUse[slot] = append(b.slotUse[slot], solver.T(y, 1))
				b.allocs = append(b.allocs, allocRef{v: y, request: ri, line: line, shift: shift})
			}
		}

		u := b.m.Continuous(fmt.Sprintf("unmet[%d]", ri), 0, q)
		b.unmet = append(b.unmet, slackRef{v: u, reason: model.ReasonUnmet, target: req.Pattern, bound: q})
		objective = append(objective, solver.T(u, d.opts.UnmetWeight))
		if len(pick) > 0 {
			b.m.AddConstraint(fmt.Sprintf("choose[%d]", ri), pick, solver.Equal, 1)
		}
		b.m.AddConstraint(fmt.Sprintf("request[%d]", ri), append(assigned, solver.T(u, 1)), solver.Equal, q)
	}

	// 产能：Σ y - s <= cap
	activeByBuilding := make(map[model.BuildingShift][]solver.Term)
	for _, slot := range sortedSlots(b.slotUse) {
		terms := b.slotUse[slot]
		if capacity, ok := plan.SlotCapacity(slot.Line, slot.Shift); ok {
			s := b.m.Continuous(fmt.Sprintf("cap_slack[%s,%d]", slot.Line, slot.Shift), 0, inf)
			b.slacks = append(b.slacks, slackRef{v: s, reason: model.ReasonCapacity, target: slot.Line, shift: slot.Shift, bound: capacity})
			objective = append(objective, solver.T(s, 1))
			b.m.AddConstraint("capacity", append(cloneTerms(terms), solver.T(s, -1)), solver.LessEq, capacity)
		}

		bs := model.BuildingShift{Building: plan.Building(slot.Line), Shift: slot.Shift}
		if _, ok := plan.MaxLines(bs.Building, bs.Shift); ok {
			active := b.m.Binary(fmt.Sprintf("active[%s,%d]", slot.Line, slot.Shift))
			bigM := 0.0
			for _, t := range terms {
				_, ub := b.m.Bounds(t.Var)
				bigM += ub
			}
			b.m.AddConstraint("active", append(cloneTerms(terms), solver.T(active, -bigM)), solver.LessEq, 0)
			activeByBuilding[bs] = append(activeByBuilding[bs], solver.T(active, 1))
		}
	}

	for _, bs := range sortedBuildingShifts(activeByBuilding) {
		bound, _ := plan.MaxLines(bs.Building, bs.Shift)
		s := b.m.Continuous(fmt.Sprintf("line_slack[%s,%d]", bs.Building, bs.Shift), 0, inf)
		b.slacks = append(b.slacks, slackRef{v: s, reason: model.ReasonConcurrentLines, target: bs.Building, shift: bs.Shift, bound: bound})
		objective = append(objective, solver.T(s, 1))
		b.m.AddConstraint("concurrent", append(activeByBuilding[bs], solver.T(s, -1)), solver.LessEq, bound)
	}

	for _, bs := range sortedBuildingShifts(b.qtyUse) {
		bound, ok := plan.MaxQty(bs.Building, bs.Shift)
		if !ok {
			continue
		}
		s := b.m.Continuous(fmt.Sprintf("qty_slack[%s,%d]", bs.Building, bs.Shift), 0, inf)
		b.slacks = append(b.slacks, slackRef{v: s, reason: model.ReasonMaxQuantity, target: bs.Building, shift: bs.Shift, bound: bound})
		objective = append(objective, solver.T(s, 1))
		b.m.AddConstraint("max_qty", append(cloneTerms(b.qtyUse[bs]), solver.T(s, -1)), solver.LessEq, bound)
	}

	b.m.Minimize(objective)
	return b
}

func (b *builder) extract(sol *solver.Solution, eps float64) *Report {
	report := &Report{
		Status:     sol.Status,
		Optimal:    sol.Status == solver.StatusOptimal,
		TotalSlack: decimal.Zero,
	}

	for _, a := range b.allocs {
		if q := sol.Value(a.v); q > eps {
			report.Allocations = append(report.Allocations, Allocation{
				Request:  a.request,
				Pattern:  b.requests[a.request].Pattern,
				Line:     a.line,
				Shift:    a.shift,
				Quantity: roundFloat(q),
			})
		}
	}

	for _, ref := range append(b.slacks, b.unmet...) {
		v := sol.Value(ref.v)
		if v <= eps {
			continue
		}
		amount := model.Amount(v).Round(6)
		bound := model.Amount(ref.bound)
		var violation model.Violation
		if ref.reason == model.ReasonUnmet {
			violation = model.Below(ref.reason, ref.target, ref.shift, bound.Sub(amount), bound)
		} else {
			violation = model.Exceeds(ref.reason, ref.target, ref.shift, bound.Add(amount), bound)
		}
		report.Violations = append(report.Violations, violation)
		report.TotalSlack = report.TotalSlack.Add(amount)
	}
	return report
}
