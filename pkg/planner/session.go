// Package planner 提供排产会话：持有计划、现行排产表与原始快照
package planner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/logger"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/resolver"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
	"github.com/paiban/lineplan/pkg/scheduler/constraint/builtin"
	"github.com/paiban/lineplan/pkg/scheduler/diagnose"
	"github.com/paiban/lineplan/pkg/scheduler/optimizer"
	"github.com/paiban/lineplan/pkg/scheduler/solver"
	"github.com/paiban/lineplan/pkg/validator"
)

// Config 会话配置
type Config struct {
	Solver    solver.Options
	Diagnose  diagnose.Options
	Optimize  optimizer.Options
	Validator *validator.Config
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Solver:    solver.DefaultOptions(),
		Diagnose:  diagnose.DefaultOptions(),
		Optimize:  optimizer.DefaultOptions(),
		Validator: validator.DefaultConfig(),
	}
}

// OptimizeResult 两阶段排产结果
type OptimizeResult struct {
	PreAssign *optimizer.Result `json:"pre_assign,omitempty"`
	Full      *optimizer.Result `json:"full"`
	Duration  time.Duration     `json:"duration"`
}

// Session 排产会话。现行表只由编辑提交与排产结果写入，读取一律返回副本
type Session struct {
	mu      sync.RWMutex
	solveMu sync.Mutex // 批量求解互斥

	plan      *model.Plan
	manager   *constraint.Manager
	resolver  *resolver.Resolver
	diagnoser *diagnose.Diagnoser
	optimizer *optimizer.Optimizer
	validator *validator.Validator
	config    Config

	live     *model.Schedule
	original *model.Schedule
	requests []model.Request

	logger *logger.PlannerLogger
}

// NewSession 创建会话，plan 需已 Normalize
func NewSession(plan *model.Plan, cfg Config) *Session {
	manager := builtin.NewDefaultManager()
	solverLog := logger.NewPlannerLoggerFrom(logger.Get().With().Str("plan", plan.Name).Logger(), "solver")
	bb := solver.NewBranchAndBound(cfg.Solver).WithLogger(solverLog)
	return &Session{
		plan:      plan,
		manager:   manager,
		resolver:  resolver.New(plan),
		diagnoser: diagnose.New(bb, cfg.Diagnose),
		optimizer: optimizer.New(bb),
		validator: validator.New(plan, manager, cfg.Validator),
		config:    cfg,
		live:      model.NewSchedule(nil),
		original:  model.NewSchedule(nil),
		logger:    logger.NewPlannerLogger("planner"),
	}
}

// Plan 返回计划
func (s *Session) Plan() *model.Plan {
	return s.plan
}

// Manager 返回约束管理器
func (s *Session) Manager() *constraint.Manager {
	return s.manager
}

// Resolve 解析预分配指令并记住有效请求
func (s *Session) Resolve(directives []model.RawDirective, periodic []model.PeriodicDirective) *resolver.Result {
	result := s.resolver.Resolve(directives, periodic)

	s.mu.Lock()
	s.requests = result.Requests
	s.mu.Unlock()
	return result
}

// Requests 最近一次解析得到的请求
func (s *Session) Requests() []model.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Diagnose 诊断请求的可行性；requests 为 nil 时使用最近一次解析结果
func (s *Session) Diagnose(ctx context.Context, requests []model.Request) (*diagnose.Report, error) {
	if requests == nil {
		requests = s.Requests()
	}
	s.solveMu.Lock()
	defer s.solveMu.Unlock()
	return s.diagnoser.Diagnose(ctx, s.plan, requests)
}

// Optimize 两阶段排产：先以等式落实预分配请求，再固定其结果做完整排产。
// 全部成功后才替换现行表与原始快照
func (s *Session) Optimize(ctx context.Context, requests []model.Request) (*OptimizeResult, error) {
	if requests == nil {
		requests = s.Requests()
	}
	s.solveMu.Lock()
	defer s.solveMu.Unlock()

	start := time.Now()
	out := &OptimizeResult{}
	var pins []optimizer.Pin

	if len(requests) > 0 {
		opts := s.config.Optimize
		opts.Mode = optimizer.ModePreAssign
		pre, err := s.optimizer.Optimize(ctx, optimizer.Input{Plan: s.plan, Requests: requests}, opts)
		out.PreAssign = pre
		if err != nil {
			return out, err
		}
		pins = pre.Allocations
	}

	opts := s.config.Optimize
	opts.Mode = optimizer.ModeFull
	full, err := s.optimizer.Optimize(ctx, optimizer.Input{Plan: s.plan, Pins: pins}, opts)
	out.Full = full
	if err != nil {
		return out, err
	}
	out.Duration = time.Since(start)

	s.mu.Lock()
	s.live = full.Schedule.Clone()
	s.original = full.Schedule.Clone()
	s.mu.Unlock()

	s.logger.Base().Info().
		Int("requests", len(requests)).
		Int("entries", full.Schedule.Len()).
		Float64("scheduled", full.Scheduled).
		Dur("duration", out.Duration).
		Msg("现行排产表已更新")
	return out, nil
}

// Load 载入已持久化的排产表
func (s *Session) Load(live, original *model.Schedule) {
	if original == nil {
		original = live
	}
	live, original = live.Clone(), original.Clone()
	for i := range live.Entries {
		s.plan.Decorate(&live.Entries[i])
	}
	for i := range original.Entries {
		s.plan.Decorate(&original.Entries[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
	s.original = original
}

// ValidateEdit 校验编辑，不修改现行表
func (s *Session) ValidateEdit(req validator.EditRequest) validator.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, _ := s.validator.Validate(s.live, req)
	return d
}

// ApplyEdit 校验并原子提交编辑
func (s *Session) ApplyEdit(req validator.EditRequest) (validator.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.validator.Apply(s.live, req)
	if !d.Accepted {
		return d, errors.EditRejected(string(d.Rule), d.Reason)
	}
	return d, nil
}

// Delete 删除排产行，删除不受约束阻止
func (s *Session) Delete(id uuid.UUID) (validator.Decision, error) {
	d, err := s.ApplyEdit(validator.EditRequest{Kind: constraint.EditDelete, ID: id})
	if err != nil && errors.Is(err, errors.CodeEditRejected) && s.indexOf(id) < 0 {
		return d, errors.NotFound("排产行", id.String())
	}
	return d, err
}

func (s *Session) indexOf(id uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.IndexOf(id)
}

// Entry 按标识查找现行排产行
func (s *Session) Entry(id uuid.UUID) (model.ScheduleEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.live.IndexOf(id); i >= 0 {
		return s.live.Entries[i], true
	}
	return model.ScheduleEntry{}, false
}

// Snapshot 返回排产表副本
func (s *Session) Snapshot(kind model.Snapshot) *model.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind == model.SnapshotOriginal {
		return s.original.Clone()
	}
	return s.live.Clone()
}

// Diff 现行表相对原始快照的差异
func (s *Session) Diff() []model.Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Diff(s.original, s.live)
}

// Audit 全表审计现行表
func (s *Session) Audit() *constraint.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validator.Audit(s.live)
}
