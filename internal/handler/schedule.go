package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/paiban/lineplan/internal/metrics"
	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/planner"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
	"github.com/paiban/lineplan/pkg/stats"
	"github.com/paiban/lineplan/pkg/validator"
)

// ScheduleResponse 排产表
type ScheduleResponse struct {
	Snapshot model.Snapshot        `json:"snapshot"`
	Entries  []model.ScheduleEntry `json:"entries"`
	Total    float64               `json:"total"`
}

// StatsResponse 现行表统计
type StatsResponse struct {
	Coverage *stats.CoverageMetrics `json:"coverage"`
	Balance  *stats.BalanceMetrics  `json:"balance"`
	Changes  map[string]float64     `json:"changes"` // 相对原始快照
}

// EditResponse 编辑结果
type EditResponse struct {
	validator.Decision
	Entry *model.ScheduleEntry `json:"entry,omitempty"` // 提交后的排产行
}

// GetSchedule 返回现行表或原始快照，?snapshot=original
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	kind := model.SnapshotLive
	switch q := r.URL.Query().Get("snapshot"); q {
	case "", string(model.SnapshotLive):
	case string(model.SnapshotOriginal):
		kind = model.SnapshotOriginal
	default:
		respondError(w, errors.InvalidInput("snapshot", "只支持 live 或 original"))
		return
	}
	schedule := s.Snapshot(kind)
	respondJSON(w, http.StatusOK, ScheduleResponse{
		Snapshot: kind,
		Entries:  schedule.Entries,
		Total:    schedule.Total(),
	})
}

// ValidateEdit 只校验编辑，不修改现行表
func (h *Handler) ValidateEdit(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	var req validator.EditRequest
	if ok, aerr := decodeJSON(r, &req); aerr != nil || !ok {
		respondError(w, orEmptyBody(aerr))
		return
	}
	respondJSON(w, http.StatusOK, s.ValidateEdit(req))
}

// ApplyEdit 校验并提交编辑，被拒绝时返回 409 和结论
func (h *Handler) ApplyEdit(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	var req validator.EditRequest
	if ok, aerr := decodeJSON(r, &req); aerr != nil || !ok {
		respondError(w, orEmptyBody(aerr))
		return
	}

	d, err := s.ApplyEdit(req)
	metrics.RecordEditDecision(string(d.Kind), d.Accepted, string(d.Rule))
	if err != nil {
		respondJSON(w, errors.GetHTTPStatus(err), EditResponse{Decision: d})
		return
	}
	h.commit(r, s, d)
	resp := EditResponse{Decision: d}
	if e, ok := s.Entry(d.EntryID); ok {
		resp.Entry = &e
	}
	respondJSON(w, http.StatusOK, resp)
}

// DeleteEntry 删除排产行
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, errors.InvalidInput("id", "不是有效的标识"))
		return
	}
	d, err := s.Delete(id)
	if err != nil {
		respondError(w, err)
		return
	}
	metrics.RecordEditDecision(string(d.Kind), true, "")
	h.commit(r, s, d)
	respondJSON(w, http.StatusOK, EditResponse{Decision: d})
}

// commit 将已接受的编辑写入存储
func (h *Handler) commit(r *http.Request, s *planner.Session, d validator.Decision) {
	planID := s.Plan().ID
	if d.Kind == constraint.EditDelete {
		h.persist(r.Context(), "delete_entry", func(st Store) error {
			return st.DeleteEntry(r.Context(), planID, model.SnapshotLive, d.EntryID)
		})
	} else if e, ok := s.Entry(d.EntryID); ok {
		h.persist(r.Context(), "upsert_entry", func(st Store) error {
			return st.UpsertEntry(r.Context(), planID, model.SnapshotLive, e)
		})
	}
	h.recordLive(s)
}

// Diff 现行表相对原始快照的差异
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	changes := s.Diff()
	if changes == nil {
		changes = []model.Change{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"changes": changes})
}

// Audit 全表审计现行表
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	respondJSON(w, http.StatusOK, s.Audit())
}

// Stats 现行表覆盖率与负荷均衡
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, _, aerr := h.current()
	if aerr != nil {
		respondError(w, aerr)
		return
	}
	plan := s.Plan()
	live := s.Snapshot(model.SnapshotLive)
	balance := stats.NewBalanceAnalyzer(plan)
	respondJSON(w, http.StatusOK, StatsResponse{
		Coverage: stats.NewCoverageAnalyzer(plan).Analyze(live),
		Balance:  balance.Analyze(live),
		Changes:  balance.CompareSchedules(s.Snapshot(model.SnapshotOriginal), live),
	})
}

func orEmptyBody(aerr *errors.AppError) *errors.AppError {
	if aerr != nil {
		return aerr
	}
	return errors.New(errors.CodeInvalidInput, "请求体为空")
}
