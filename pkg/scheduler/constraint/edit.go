package constraint

import (
	"github.com/paiban/lineplan/pkg/model"
)

// EditKind 编辑类型
type EditKind string

const (
	EditMove     EditKind = "move"
	EditQuantity EditKind = "quantity"
	EditAdd      EditKind = "add"
	EditDelete   EditKind = "delete"
)

// Edit 一次待校验的编辑：After 为编辑后的行，Before 为编辑前的行（新增时为 nil）
type Edit struct {
	Kind   EditKind
	Index  int // 在排产表中的下标，新增为 -1
	Before *model.ScheduleEntry
	After  model.ScheduleEntry
}

// SameSlot 编辑前后是否在同一产线班次
func (e *Edit) SameSlot() bool {
	return e.Before != nil && e.Before.Line == e.After.Line && e.Before.Shift == e.After.Shift
}

// beforeQty 编辑前本行数量
func (e *Edit) beforeQty() float64 {
	if e.Before == nil {
		return 0
	}
	return e.Before.Quantity
}

// DestinationBase 目标产线班次的现有累计量；
// 同一产线班次内编辑时扣除本行原有贡献，移入其他产线班次时不扣除
func (e *Edit) DestinationBase(ctx *Context) float64 {
	base := ctx.SlotTotal(e.After.Line, e.After.Shift)
	if e.SameSlot() {
		base -= e.Before.Quantity
	}
	return base
}

// SlotAfter 编辑后目标产线班次累计量
func (e *Edit) SlotAfter(ctx *Context) float64 {
	return e.DestinationBase(ctx) + e.After.Quantity
}

// ItemAfter 编辑后物料累计量
func (e *Edit) ItemAfter(ctx *Context) float64 {
	return ctx.ItemTotal(e.After.Item) - e.beforeQty() + e.After.Quantity
}

// LinesAfter 编辑后目标厂房班次内各产线累计量
func (e *Edit) LinesAfter(ctx *Context) map[string]float64 {
	building := ctx.Plan.Building(e.After.Line)
	lines := ctx.LineTotals(building, e.After.Shift)
	if e.Before != nil && ctx.Plan.Building(e.Before.Line) == building && e.Before.Shift == e.After.Shift {
		lines[e.Before.Line] -= e.Before.Quantity
	}
	lines[e.After.Line] += e.After.Quantity
	return lines
}

// BuildingShiftAfter 编辑后目标厂房班次累计量
func (e *Edit) BuildingShiftAfter(ctx *Context) float64 {
	building := ctx.Plan.Building(e.After.Line)
	total := ctx.BuildingShiftTotal(building, e.After.Shift)
	if e.Before != nil && ctx.Plan.Building(e.Before.Line) == building && e.Before.Shift == e.After.Shift {
		total -= e.Before.Quantity
	}
	return total + e.After.Quantity
}

// BuildingTotalsAfter 编辑后各厂房累计量与总量
func (e *Edit) BuildingTotalsAfter(ctx *Context) (map[string]float64, float64) {
	totals := ctx.BuildingTotals()
	total := ctx.Total()
	if e.Before != nil {
		totals[ctx.Plan.Building(e.Before.Line)] -= e.Before.Quantity
		total -= e.Before.Quantity
	}
	totals[ctx.Plan.Building(e.After.Line)] += e.After.Quantity
	total += e.After.Quantity
	return totals, total
}

// Increases 编辑是否使累计量增加；未增加的编辑不会使上限类约束变差
func Increases(before, after float64) bool {
	return after > before+Epsilon
}
