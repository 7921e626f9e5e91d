package builtin

import (
	"sort"

	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

// SlotCapacityConstraint 产线班次产能约束，按有效产能校验
type SlotCapacityConstraint struct {
	*BaseConstraint
}

// NewSlotCapacityConstraint 创建产能约束
func NewSlotCapacityConstraint() *SlotCapacityConstraint {
	return &SlotCapacityConstraint{
		BaseConstraint: NewBaseConstraint("设备产能", constraint.TypeSlotCapacity, constraint.CategoryHard, OrderSlotCapacity),
	}
}

// CheckEdit 校验编辑
func (c *SlotCapacityConstraint) CheckEdit(ctx *constraint.Context, edit *constraint.Edit) *model.Violation {
	line, shift := edit.After.Line, edit.After.Shift
	capacity, ok := ctx.Plan.EffectiveCapacity(line, shift)
	if !ok {
		return nil
	}
	before := ctx.SlotTotal(line, shift)
	after := edit.SlotAfter(ctx)
	if after > capacity+constraint.Epsilon && constraint.Increases(before, after) {
		return exceeds(model.ReasonCapacity, line, shift, after, capacity)
	}
	return nil
}

// Audit 全表校验
func (c *SlotCapacityConstraint) Audit(ctx *constraint.Context) []model.Violation {
	var out []model.Violation
	for _, slot := range sortedSlots(ctx.Slots()) {
		capacity, ok := ctx.Plan.EffectiveCapacity(slot.Line, slot.Shift)
		if !ok {
			continue
		}
		if total := ctx.SlotTotal(slot.Line, slot.Shift); total > capacity+constraint.Epsilon {
			out = append(out, *exceeds(model.ReasonCapacity, slot.Line, slot.Shift, total, capacity))
		}
	}
	return out
}

// UtilizationConstraint 班次稼动率上限：产线班次累计量 ÷ 有效产能 不超过该班次上限
type UtilizationConstraint struct {
	*BaseConstraint
}

// NewUtilizationConstraint 创建稼动率约束
func NewUtilizationConstraint() *UtilizationConstraint {
	return &UtilizationConstraint{
		BaseConstraint: NewBaseConstraint("班次稼动率", constraint.TypeUtilization, constraint.CategoryHard, OrderUtilization),
	}
}

// CheckEdit 校验编辑
func (c *UtilizationConstraint) CheckEdit(ctx *constraint.Context, edit *constraint.Edit) *model.Violation {
	line, shift := edit.After.Line, edit.After.Shift
	limit, capacity, ok := c.limits(ctx.Plan, line, shift)
	if !ok {
		return nil
	}
	before := ctx.SlotTotal(line, shift)
	after := edit.SlotAfter(ctx)
	if after/capacity > limit+constraint.Epsilon && constraint.Increases(before, after) {
		return ratioExceeds(model.ReasonUtilization, line, shift, after, capacity, limit)
	}
	return nil
}

// Audit 全表校验
func (c *UtilizationConstraint) Audit(ctx *constraint.Context) []model.Violation {
	var out []model.Violation
	for _, slot := range sortedSlots(ctx.Slots()) {
		limit, capacity, ok := c.limits(ctx.Plan, slot.Line, slot.Shift)
		if !ok {
			continue
		}
		total := ctx.SlotTotal(slot.Line, slot.Shift)
		if total/capacity > limit+constraint.Epsilon {
			out = append(out, *ratioExceeds(model.ReasonUtilization, slot.Line, slot.Shift, total, capacity, limit))
		}
	}
	return out
}

// limits 稼动率上限与有效产能；任一缺失或产能为 0 时跳过
func (c *UtilizationConstraint) limits(plan *model.Plan, line string, shift int) (float64, float64, bool) {
	limit, ok := plan.UtilizationCap(shift)
	if !ok {
		return 0, 0, false
	}
	capacity, ok := plan.EffectiveCapacity(line, shift)
	if !ok || capacity <= 0 {
		return 0, 0, false
	}
	return limit, capacity, true
}

func sortedSlots(m map[model.Slot]float64) []model.Slot {
	slots := make([]model.Slot, 0, len(m))
	for s := range m {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Line != slots[j].Line {
			return slots[i].Line < slots[j].Line
		}
		return slots[i].Shift < slots[j].Shift
	})
	return slots
}

func sortedBuildingShifts(m map[model.BuildingShift]float64) []model.BuildingShift {
	keys := make([]model.BuildingShift, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Building != keys[j].Building {
			return keys[i].Building < keys[j].Building
		}
		return keys[i].Shift < keys[j].Shift
	})
	return keys
}
