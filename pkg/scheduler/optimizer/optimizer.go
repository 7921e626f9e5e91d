// Package optimizer 提供排产优化模型
package optimizer

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/logger"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/solver"
)

// Mode 优化模式
type Mode string

const (
	ModePreAssign Mode = "pre_assign" // 只落实预分配请求
	ModeFull      Mode = "full"       // 完整排产
)

// Options 优化配置
type Options struct {
	Mode              Mode `json:"mode"`
	ExactDemand       bool `json:"exact_demand"`        // 需求必须全部排完
	ShipmentObjective bool `json:"shipment_objective"`  // 完整排产时以出货物料数为主目标
	RestrictToDueDate bool `json:"restrict_to_due_date"` // 不在交期之后安排生产
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		Mode:              ModeFull,
		ShipmentObjective: true,
		RestrictToDueDate: true,
	}
}

// Pin 已落实的 (物料, 产线, 班次) 数量
type Pin struct {
	Item     string  `json:"item"`
	Line     string  `json:"line"`
	Shift    int     `json:"shift"`
	Quantity float64 `json:"quantity"`
}

// Input 优化输入
type Input struct {
	Plan     *model.Plan
	Requests []model.Request // 以等式落实的请求
	Pins     []Pin           // 固定取值
}

// Result 优化结果；不可行时没有排产表
type Result struct {
	Status      solver.Status   `json:"status"`
	Schedule    *model.Schedule `json:"schedule,omitempty"`
	Allocations []Pin           `json:"allocations"`
	Shipped     []string        `json:"shipped,omitempty"`
	Scheduled   float64         `json:"scheduled"`
	Objective   float64         `json:"objective"`
	Nodes       int             `json:"nodes"`
	Duration    time.Duration   `json:"duration"`
}

// Optimizer 排产优化器
type Optimizer struct {
	solver solver.Solver
	logger *logger.PlannerLogger
}

// New 创建优化器
func New(s solver.Solver) *Optimizer {
	return &Optimizer{
		solver: s,
		logger: logger.NewPlannerLogger("optimizer"),
	}
}

// Optimize 构建并求解排产模型
func (o *Optimizer) Optimize(ctx context.Context, in Input, opts Options) (*Result, error) {
	if in.Plan == nil {
		return nil, errors.InvalidInput("plan", "不能为空")
	}
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}
	start := time.Now()

	b, err := build(in, opts)
	if err != nil {
		return nil, err
	}
	stage := string(opts.Mode)
	o.logger.StartSolve(stage, b.m.NumVars(), b.m.NumRows())

	sol, err := o.solver.Solve(ctx, b.m)
	if err != nil {
		if stderrors.Is(err, solver.ErrTimeout) {
			return nil, errors.Wrap(err, errors.CodeTimeout, "排产在限制内未得到可行解")
		}
		return nil, errors.SolverFailure(err, stage)
	}
	if sol.Status == solver.StatusInfeasible {
		o.logger.SolveComplete(stage, string(sol.Status), time.Since(start), 0, sol.Nodes)
		return &Result{Status: sol.Status, Nodes: sol.Nodes, Duration: time.Since(start)},
			errors.NoFeasibleSolution("排产模型无可行解，请运行诊断定位冲突")
	}

	result := b.extract(sol)
	result.Duration = time.Since(start)
	o.logger.SolveComplete(stage, string(sol.Status), result.Duration, sol.Objective, sol.Nodes)
	return result, nil
}

// extract 从解中生成排产表：每个 (物料, 产线, 班次) 一行，固定部分单独成行
func (b *builder) extract(sol *solver.Solution) *Result {
	result := &Result{
		Status:    sol.Status,
		Objective: sol.Objective,
		Nodes:     sol.Nodes,
	}

	entries := make([]model.ScheduleEntry, 0)
	add := func(k cellKey, qty float64, pinned bool) {
		if qty <= 0 {
			return
		}
		e := model.NewEntry(k.line, k.shift, k.item, qty)
		e.Pinned = pinned
		b.plan.Decorate(&e)
		entries = append(entries, e)
	}
	for _, k := range b.keys {
		c := b.cells[k]
		total := math.Round(sum(sol, c.terms))
		pinned := math.Round(sum(sol, c.pins))
		if total <= 0 {
			continue
		}
		add(k, pinned, true)
		add(k, total-pinned, false)
		result.Allocations = append(result.Allocations, Pin{Item: k.item, Line: k.line, Shift: k.shift, Quantity: total})
		result.Scheduled += total
	}
	for _, s := range b.shipped {
		if sol.Value(s.v) > 0.5 {
			result.Shipped = append(result.Shipped, s.item)
		}
	}

	result.Schedule = model.NewSchedule(entries)
	result.Schedule.Sort()
	return result
}

func sum(sol *solver.Solution, terms []solver.Term) float64 {
	total := 0.0
	for _, t := range terms {
		total += sol.Value(t.Var) * t.Coef
	}
	return total
}
