package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/paiban/lineplan/internal/metrics"
	"github.com/paiban/lineplan/internal/planfile"
	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/planner"
	"github.com/paiban/lineplan/pkg/scheduler/optimizer"
)

// maxPlanSize 计划文件大小上限
const maxPlanSize = 8 << 20

// PlanSummary 计划加载结果
type PlanSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Horizon     model.Horizon `json:"horizon"`
	Lines       []string      `json:"lines"`
	Buildings   []string      `json:"buildings"`
	Items       int           `json:"items"`
	TotalDemand float64       `json:"total_demand"`
	Orphans     []string      `json:"orphans,omitempty"` // 没有可用产线的物料
	Directives  int           `json:"directives"`
	Periodic    int           `json:"periodic"`
}

// ResolveRequest 指令解析请求，为空时使用计划文件中的指令
type ResolveRequest struct {
	Directives []model.RawDirective      `json:"directives"`
	Periodic   []model.PeriodicDirective `json:"periodic"`
}

// LoadPlan 加载计划文件（YAML 或 JSON），替换当前会话
func (h *Handler) LoadPlan(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxPlanSize))
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "读取计划失败"))
		return
	}
	sc, err := planfile.Parse(data, h.defaults)
	if err != nil {
		respondError(w, err)
		return
	}
	session := planner.NewSession(sc.Plan, h.config)

	h.mu.Lock()
	h.session = session
	h.scenario = sc
	h.mu.Unlock()

	h.persist(r.Context(), "save_plan", func(s Store) error {
		_, err := s.SavePlan(r.Context(), sc.Plan, sc.Source)
		return err
	})
	h.recordLive(session)

	p := sc.Plan
	respondJSON(w, http.StatusCreated, PlanSummary{
		ID:          p.ID.String(),
		Name:        p.Name,
		Horizon:     p.Horizon,
		Lines:       p.Lines,
		Buildings:   p.Buildings(),
		Items:       len(p.Demand),
		TotalDemand: p.TotalDemand(),
		Orphans:     p.OrphanItems(),
		Directives:  len(sc.Directives),
		Periodic:    len(sc.Periodic),
	})
}

// Resolve 解析预分配指令
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	s, sc, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	var req ResolveRequest
	provided, aerr := decodeJSON(r, &req)
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	if !provided || (req.Directives == nil && req.Periodic == nil) {
		req.Directives, req.Periodic = sc.Directives, sc.Periodic
	}

	result := s.Resolve(req.Directives, req.Periodic)
	metrics.RecordDirectiveErrors(len(result.Missing), len(result.Invalid))
	respondJSON(w, http.StatusOK, result)
}

// Diagnose 诊断最近一次解析出的请求
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	start := time.Now()
	report, err := s.Diagnose(r.Context(), nil)
	if err != nil {
		metrics.RecordSolve("diagnose", string(errors.GetCode(err)), -1, time.Since(start))
		respondError(w, err)
		return
	}
	metrics.RecordSolve("diagnose", string(report.Status), -1, report.Duration)
	respondJSON(w, http.StatusOK, report)
}

// Optimize 两阶段排产并替换现行表
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	result, err := s.Optimize(r.Context(), nil)
	if result != nil {
		recordStage(optimizer.ModePreAssign, result.PreAssign)
		recordStage(optimizer.ModeFull, result.Full)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	plan := s.Plan()
	live := s.Snapshot(model.SnapshotLive)
	h.persist(r.Context(), "replace_entries", func(st Store) error {
		if err := st.ReplaceEntries(r.Context(), plan.ID, model.SnapshotOriginal, live.Entries); err != nil {
			return err
		}
		return st.ReplaceEntries(r.Context(), plan.ID, model.SnapshotLive, live.Entries)
	})
	h.recordLive(s)
	respondJSON(w, http.StatusOK, result)
}

// recordStage 记录单阶段求解指标，阶段未执行时跳过
func recordStage(mode optimizer.Mode, res *optimizer.Result) {
	if res == nil {
		return
	}
	metrics.RecordSolve(string(mode), string(res.Status), res.Nodes, res.Duration)
}
