package builtin

import (
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

// ConcurrentLinesConstraint 厂房班次同时开线数约束
type ConcurrentLinesConstraint struct {
	*BaseConstraint
}

// NewConcurrentLinesConstraint 创建同时开线数约束
func NewConcurrentLinesConstraint() *ConcurrentLinesConstraint {
	return &ConcurrentLinesConstraint{
		BaseConstraint: NewBaseConstraint("同时开线数", constraint.TypeConcurrentLines, constraint.CategoryHard, OrderConcurrentLines),
	}
}

// CheckEdit 校验编辑
func (c *ConcurrentLinesConstraint) CheckEdit(ctx *constraint.Context, edit *constraint.Edit) *model.Violation {
	building := ctx.Plan.Building(edit.After.Line)
	shift := edit.After.Shift
	bound, ok := ctx.Plan.MaxLines(building, shift)
	if !ok {
		return nil
	}
	before := constraint.ActiveCount(ctx.LineTotals(building, shift))
	after := constraint.ActiveCount(edit.LinesAfter(ctx))
	if float64(after) > bound+constraint.Epsilon && after > before {
		return exceeds(model.ReasonConcurrentLines, building, shift, float64(after), bound)
	}
	return nil
}

// Audit 全表校验
func (c *ConcurrentLinesConstraint) Audit(ctx *constraint.Context) []model.Violation {
	var out []model.Violation
	for _, bs := range sortedBuildingShifts(ctx.BuildingShifts()) {
		bound, ok := ctx.Plan.MaxLines(bs.Building, bs.Shift)
		if !ok {
			continue
		}
		count := constraint.ActiveCount(ctx.LineTotals(bs.Building, bs.Shift))
		if float64(count) > bound+constraint.Epsilon {
			out = append(out, *exceeds(model.ReasonConcurrentLines, bs.Building, bs.Shift, float64(count), bound))
		}
	}
	return out
}

// BuildingQuantityConstraint 厂房班次最大产量约束
type BuildingQuantityConstraint struct {
	*BaseConstraint
}

// NewBuildingQuantityConstraint 创建厂房最大产量约束
func NewBuildingQuantityConstraint() *BuildingQuantityConstraint {
	return &BuildingQuantityConstraint{
		BaseConstraint: NewBaseConstraint("厂房最大产量", constraint.TypeBuildingQuantity, constraint.CategoryHard, OrderBuildingQuantity),
	}
}

// CheckEdit 校验编辑
func (c *BuildingQuantityConstraint) CheckEdit(ctx *constraint.Context, edit *constraint.Edit) *model.Violation {
	building := ctx.Plan.Building(edit.After.Line)
	shift := edit.After.Shift
	bound, ok := ctx.Plan.MaxQty(building, shift)
	if !ok {
		return nil
	}
	before := ctx.BuildingShiftTotal(building, shift)
	after := edit.BuildingShiftAfter(ctx)
	if after > bound+constraint.Epsilon && constraint.Increases(before, after) {
		return exceeds(model.ReasonMaxQuantity, building, shift, after, bound)
	}
	return nil
}

// Audit 全表校验
func (c *BuildingQuantityConstraint) Audit(ctx *constraint.Context) []model.Violation {
	var out []model.Violation
	for _, bs := range sortedBuildingShifts(ctx.BuildingShifts()) {
		bound, ok := ctx.Plan.MaxQty(bs.Building, bs.Shift)
		if !ok {
			continue
		}
		if total := ctx.BuildingShiftTotal(bs.Building, bs.Shift); total > bound+constraint.Epsilon {
			out = append(out, *exceeds(model.ReasonMaxQuantity, bs.Building, bs.Shift, total, bound))
		}
	}
	return out
}
