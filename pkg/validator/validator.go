// Package validator 提供排产表的增量编辑校验
package validator

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/paiban/lineplan/pkg/logger"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

// EditRequest 一次编辑请求
type EditRequest struct {
	Kind        constraint.EditKind `json:"kind,omitempty"` // 为空时自动推断
	ID          uuid.UUID           `json:"id,omitempty"`
	Line        string              `json:"line"`
	Shift       int                 `json:"shift"`
	Item        string              `json:"item"`
	Quantity    float64             `json:"quantity"`
	SourceLine  string              `json:"source_line,omitempty"`
	SourceShift int                 `json:"source_shift,omitempty"`
}

// Decision 校验结论
type Decision struct {
	Accepted  bool                `json:"accepted"`
	Kind      constraint.EditKind `json:"kind"`
	Reason    string              `json:"reason,omitempty"`
	Rule      constraint.Type     `json:"rule,omitempty"`
	Violation *model.Violation    `json:"violation,omitempty"`
	EntryID   uuid.UUID           `json:"entry_id"`
}

// Config 校验器配置
type Config struct {
	AllowZeroQuantity bool // 是否允许把数量改为 0（保留行）
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{AllowZeroQuantity: true}
}

// Validator 增量编辑校验器：只重算受影响的累计量，不调用求解器
type Validator struct {
	plan    *model.Plan
	manager *constraint.Manager
	config  *Config
	logger  *logger.PlannerLogger
}

// New 创建校验器
func New(plan *model.Plan, manager *constraint.Manager, config *Config) *Validator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Validator{
		plan:    plan,
		manager: manager,
		config:  config,
		logger:  logger.NewPlannerLogger("validator"),
	}
}

// Validate 校验编辑，不修改排产表。返回结论及构造出的编辑（拒绝于定位阶段时为 nil）
func (v *Validator) Validate(schedule *model.Schedule, req EditRequest) (Decision, *constraint.Edit) {
	edit, decision := v.buildEdit(schedule, req)
	if edit == nil {
		v.logger.EditDecision(string(decision.Kind), false, decision.Reason)
		return decision, nil
	}

	ctx := constraint.NewContext(v.plan, schedule)
	if violation, c := v.manager.CheckEdit(ctx, edit); violation != nil {
		decision.Reason = violation.Message
		decision.Rule = c.Type()
		decision.Violation = violation
		v.logger.EditDecision(string(edit.Kind), false, decision.Reason)
		return decision, edit
	}

	decision.Accepted = true
	v.logger.EditDecision(string(edit.Kind), true, "")
	return decision, edit
}

// Apply 校验并在通过时提交编辑；拒绝时排产表保持不变
func (v *Validator) Apply(schedule *model.Schedule, req EditRequest) Decision {
	decision, edit := v.Validate(schedule, req)
	if !decision.Accepted {
		return decision
	}
	commit(schedule, edit)
	return decision
}

// Audit 全表校验
func (v *Validator) Audit(schedule *model.Schedule) *constraint.Result {
	return v.manager.Audit(constraint.NewContext(v.plan, schedule))
}

// buildEdit 定位目标行并构造编辑
func (v *Validator) buildEdit(schedule *model.Schedule, req EditRequest) (*constraint.Edit, Decision) {
	decision := Decision{Kind: req.Kind, EntryID: req.ID}

	index := -1
	switch {
	case req.ID != uuid.Nil:
		index = schedule.IndexOf(req.ID)
		if index < 0 {
			return nil, reject(decision, model.ReasonNotFound, fmt.Sprintf("排产行 %s 不存在", req.ID))
		}
	case req.SourceLine != "" && req.SourceShift > 0:
		index = schedule.Find(req.SourceLine, req.SourceShift, req.Item)
		if index < 0 {
			return nil, reject(decision, model.ReasonNotFound,
				fmt.Sprintf("产线 %s 班次 %d 没有物料 %s", req.SourceLine, req.SourceShift, req.Item))
		}
	case req.Kind != constraint.EditAdd && req.Item != "":
		// 无标识无源槽位：按 (产线, 班次, 物料) 定位，未命中时视为新增
		index = schedule.Find(req.Line, req.Shift, req.Item)
	}

	var before *model.ScheduleEntry
	if index >= 0 {
		entry := schedule.Entries[index]
		before = &entry
		decision.EntryID = entry.ID
	}

	kind := req.Kind
	if kind == "" {
		kind = inferKind(before, req)
	}
	decision.Kind = kind

	if kind != constraint.EditAdd && before == nil {
		return nil, reject(decision, model.ReasonNotFound, "未指定要编辑的排产行")
	}

	if kind == constraint.EditDelete {
		after := *before
		after.Quantity = 0
		return &constraint.Edit{Kind: kind, Index: index, Before: before, After: after}, decision
	}

	if msg := v.checkInput(req, before); msg != "" {
		return nil, reject(decision, model.ReasonInvalidEdit, msg)
	}

	if kind == constraint.EditAdd {
		item := req.Item
		if item == "" && before != nil {
			item = before.Item
		}
		after := model.NewEntry(req.Line, req.Shift, item, req.Quantity)
		v.plan.Decorate(&after)
		decision.EntryID = after.ID
		return &constraint.Edit{Kind: kind, Index: -1, After: after}, decision
	}

	after := *before
	after.Line = req.Line
	after.Shift = req.Shift
	after.Quantity = req.Quantity
	v.plan.Decorate(&after)
	return &constraint.Edit{Kind: kind, Index: index, Before: before, After: after}, decision
}

// checkInput 检查请求字段
func (v *Validator) checkInput(req EditRequest, before *model.ScheduleEntry) string {
	switch {
	case req.Line == "":
		return "目标产线不能为空"
	case !v.plan.Horizon.Contains(req.Shift):
		return fmt.Sprintf("班次 %d 超出排产周期", req.Shift)
	case math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0):
		return "数量无效"
	case req.Quantity < 0:
		return "数量不能为负"
	case req.Quantity == 0 && !v.config.AllowZeroQuantity:
		return "数量不能为 0"
	case req.Item == "" && before == nil:
		return "物料不能为空"
	case before != nil && req.Item != "" && req.Item != before.Item:
		return fmt.Sprintf("不能把物料 %s 改为 %s", before.Item, req.Item)
	}
	return ""
}

// inferKind 根据请求推断编辑类型
func inferKind(before *model.ScheduleEntry, req EditRequest) constraint.EditKind {
	switch {
	case before == nil:
		return constraint.EditAdd
	case before.Line != req.Line || before.Shift != req.Shift:
		return constraint.EditMove
	default:
		return constraint.EditQuantity
	}
}

func reject(d Decision, reason model.Reason, msg string) Decision {
	d.Accepted = false
	d.Reason = fmt.Sprintf("%s: %s", reason, msg)
	return d
}

// commit 把已通过的编辑写入排产表
func commit(schedule *model.Schedule, edit *constraint.Edit) {
	switch edit.Kind {
	case constraint.EditAdd:
		schedule.Entries = append(schedule.Entries, edit.After)
	case constraint.EditDelete:
		schedule.Entries = append(schedule.Entries[:edit.Index], schedule.Entries[edit.Index+1:]...)
	default:
		schedule.Entries[edit.Index] = edit.After
	}
}
