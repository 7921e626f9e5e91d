// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/paiban/lineplan/internal/constraints"
	"github.com/paiban/lineplan/internal/metrics"
	"github.com/paiban/lineplan/internal/planfile"
	"github.com/paiban/lineplan/internal/repository"
	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/logger"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/planner"
)

// Store 排产表持久化，nil 表示只保存在内存
type Store interface {
	SavePlan(ctx context.Context, plan *model.Plan, document string) (*repository.PlanRecord, error)
	ReplaceEntries(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot, entries []model.ScheduleEntry) error
	UpsertEntry(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot, e model.ScheduleEntry) error
	DeleteEntry(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot, id uuid.UUID) error
}

// Handler 持有当前计划会话
type Handler struct {
	mu       sync.RWMutex
	session  *planner.Session
	scenario *planfile.Scenario

	defaults planfile.Defaults
	config   planner.Config
	store    Store
}

// New 创建处理器
func New(defaults planfile.Defaults, cfg planner.Config, store Store) *Handler {
	return &Handler{defaults: defaults, config: cfg, store: store}
}

// Register 注册路由
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/plans", h.LoadPlan)
	mux.HandleFunc("POST /api/v1/plans/resolve", h.Resolve)
	mux.HandleFunc("POST /api/v1/plans/diagnose", h.Diagnose)
	mux.HandleFunc("POST /api/v1/plans/optimize", h.Optimize)

	mux.HandleFunc("GET /api/v1/schedule", h.GetSchedule)
	mux.HandleFunc("POST /api/v1/schedule/validate", h.ValidateEdit)
	mux.HandleFunc("POST /api/v1/schedule/edits", h.ApplyEdit)
	mux.HandleFunc("DELETE /api/v1/schedule/entries/{id}", h.DeleteEntry)
	mux.HandleFunc("GET /api/v1/schedule/diff", h.Diff)
	mux.HandleFunc("GET /api/v1/schedule/audit", h.Audit)
	mux.HandleFunc("GET /api/v1/schedule/stats", h.Stats)

	mux.HandleFunc("GET /api/v1/constraints/library", h.Library)
}

// current 返回当前会话
func (h *Handler) current() (*planner.Session, *planfile.Scenario, *errors.AppError) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.session == nil {
		return nil, nil, errors.New(errors.CodeNotFound, "尚未加载计划")
	}
	return h.session, h.scenario, nil
}

// Library 返回约束库
func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{Library: constraints.GetLibrary()})
}

// persist 持久化失败只记录日志，内存中的现行表已经提交
func (h *Handler) persist(ctx context.Context, what string, fn func(Store) error) {
	if h.store == nil {
		return
	}
	if err := fn(h.store); err != nil {
		logger.WithContext(ctx).Error().Err(err).Str("op", what).Msg("持久化失败")
	}
}

func (h *Handler) recordLive(s *planner.Session) {
	metrics.SetLiveEntries(s.Snapshot(model.SnapshotLive).Len())
}

// decodeJSON 解析请求体，空请求体视为未提供
func decodeJSON(r *http.Request, v interface{}) (bool, *errors.AppError) {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.CodeInvalidInput, "请求体不是有效的JSON")
	}
	return true, nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err error) {
	appErr := errors.From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
		"fields":  appErr.Fields,
	})
}
