package builtin

import (
	"sort"

	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

// DueDateConstraint 交期约束：有交期的物料不能排在交期班次之后
type DueDateConstraint struct {
	*BaseConstraint
}

// NewDueDateConstraint 创建交期约束
func NewDueDateConstraint() *DueDateConstraint {
	return &DueDateConstraint{
		BaseConstraint: NewBaseConstraint("交期", constraint.TypeDueDate, constraint.CategoryHard, OrderDueDate),
	}
}

// CheckEdit 校验编辑
func (c *DueDateConstraint) CheckEdit(ctx *constraint.Context, edit *constraint.Edit) *model.Violation {
	if edit.Kind == constraint.EditDelete {
		return nil
	}
	return c.check(ctx.Plan, edit.After)
}

// Audit 全表校验
func (c *DueDateConstraint) Audit(ctx *constraint.Context) []model.Violation {
	var out []model.Violation
	for _, e := range ctx.Schedule.Entries {
		if e.Quantity <= 0 {
			continue
		}
		if v := c.check(ctx.Plan, e); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func (c *DueDateConstraint) check(plan *model.Plan, e model.ScheduleEntry) *model.Violation {
	item, ok := plan.Item(e.Item)
	if !ok || !item.HasDueDate() || e.Shift <= item.DueLT {
		return nil
	}
	return exceeds(model.ReasonDueDate, e.Item, e.Shift, float64(e.Shift), float64(item.DueLT))
}

// CompatibilityConstraint 产线兼容约束：物料项目必须在产线可用集合中
type CompatibilityConstraint struct {
	*BaseConstraint
}

// NewCompatibilityConstraint 创建产线兼容约束
func NewCompatibilityConstraint() *CompatibilityConstraint {
	return &CompatibilityConstraint{
		BaseConstraint: NewBaseConstraint("产线兼容", constraint.TypeCompatibility, constraint.CategoryHard, OrderCompatibility),
	}
}

// CheckEdit 校验编辑
func (c *CompatibilityConstraint) CheckEdit(ctx *constraint.Context, edit *constraint.Edit) *model.Violation {
	if edit.Kind == constraint.EditDelete {
		return nil
	}
	return c.check(ctx.Plan, edit.After)
}

// Audit 全表校验
func (c *CompatibilityConstraint) Audit(ctx *constraint.Context) []model.Violation {
	var out []model.Violation
	for _, e := range ctx.Schedule.Entries {
		if v := c.check(ctx.Plan, e); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func (c *CompatibilityConstraint) check(plan *model.Plan, e model.ScheduleEntry) *model.Violation {
	if plan.IsCompatible(e.Item, e.Line) {
		return nil
	}
	return refusal(model.ReasonCompatibility, e.Line, e.Shift, e.Quantity,
		"产线 %s 不能生产物料 %s（项目 %s）", e.Line, e.Item, plan.Project(e.Item))
}

// DemandConstraint 需求约束：物料累计量不超过需求量
type DemandConstraint struct {
	*BaseConstraint
}

// NewDemandConstraint 创建需求约束
func NewDemandConstraint() *DemandConstraint {
	return &DemandConstraint{
		BaseConstraint: NewBaseConstraint("需求上限", constraint.TypeDemand, constraint.CategoryHard, OrderDemand),
	}
}

// CheckEdit 校验编辑
func (c *DemandConstraint) CheckEdit(ctx *constraint.Context, edit *constraint.Edit) *model.Violation {
	before := ctx.ItemTotal(edit.After.Item)
	after := edit.ItemAfter(ctx)
	demand := ctx.Plan.DemandOf(edit.After.Item)
	if after > demand+constraint.Epsilon && constraint.Increases(before, after) {
		return exceeds(model.ReasonDemand, edit.After.Item, 0, after, demand)
	}
	return nil
}

// Audit 全表校验
func (c *DemandConstraint) Audit(ctx *constraint.Context) []model.Violation {
	items := make([]string, 0, len(ctx.Items()))
	for item := range ctx.Items() {
		items = append(items, item)
	}
	sort.Strings(items)

	var out []model.Violation
	for _, item := range items {
		total := ctx.ItemTotal(item)
		demand := ctx.Plan.DemandOf(item)
		if total > demand+constraint.Epsilon {
			out = append(out, *exceeds(model.ReasonDemand, item, 0, total, demand))
		}
	}
	return out
}
