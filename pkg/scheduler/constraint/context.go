package constraint

import (
	"github.com/paiban/lineplan/pkg/model"
)

// Epsilon 数量比较容差
const Epsilon = 1e-9

// Context 校验上下文：计划参考数据 + 排产表索引
type Context struct {
	Plan     *model.Plan
	Schedule *model.Schedule

	slotTotals     map[model.Slot]float64
	itemTotals     map[string]float64
	bsTotals       map[model.BuildingShift]float64
	lineTotals     map[model.BuildingShift]map[string]float64
	buildingTotals map[string]float64
	total          float64
}

// NewContext 创建校验上下文并建立索引
func NewContext(plan *model.Plan, schedule *model.Schedule) *Context {
	c := &Context{Plan: plan, Schedule: schedule}
	c.rebuild()
	return c
}

// rebuild 重建聚合索引
func (c *Context) rebuild() {
	c.slotTotals = make(map[model.Slot]float64)
	c.itemTotals = make(map[string]float64)
	c.bsTotals = make(map[model.BuildingShift]float64)
	c.lineTotals = make(map[model.BuildingShift]map[string]float64)
	c.buildingTotals = make(map[string]float64)
	c.total = 0
	if c.Schedule == nil {
		return
	}
	for _, e := range c.Schedule.Entries {
		building := c.Plan.Building(e.Line)
		bs := model.BuildingShift{Building: building, Shift: e.Shift}
		c.slotTotals[e.Slot()] += e.Quantity
		c.itemTotals[e.Item] += e.Quantity
		c.bsTotals[bs] += e.Quantity
		if c.lineTotals[bs] == nil {
			c.lineTotals[bs] = make(map[string]float64)
		}
		c.lineTotals[bs][e.Line] += e.Quantity
		c.buildingTotals[building] += e.Quantity
		c.total += e.Quantity
	}
}

// SlotTotal 产线班次累计量
func (c *Context) SlotTotal(line string, shift int) float64 {
	return c.slotTotals[model.Slot{Line: line, Shift: shift}]
}

// ItemTotal 物料累计量
func (c *Context) ItemTotal(item string) float64 {
	return c.itemTotals[item]
}

// BuildingShiftTotal 厂房班次累计量
func (c *Context) BuildingShiftTotal(building string, shift int) float64 {
	return c.bsTotals[model.BuildingShift{Building: building, Shift: shift}]
}

// LineTotals 厂房班次内各产线累计量（副本）
func (c *Context) LineTotals(building string, shift int) map[string]float64 {
	src := c.lineTotals[model.BuildingShift{Building: building, Shift: shift}]
	out := make(map[string]float64, len(src)+1)
	for l, q := range src {
		out[l] = q
	}
	return out
}

// BuildingTotals 各厂房累计量（副本）
func (c *Context) BuildingTotals() map[string]float64 {
	out := make(map[string]float64, len(c.buildingTotals)+1)
	for b, q := range c.buildingTotals {
		out[b] = q
	}
	return out
}

// Total 总量
func (c *Context) Total() float64 {
	return c.total
}

// Slots 所有有排产的产线班次
func (c *Context) Slots() map[model.Slot]float64 {
	return c.slotTotals
}

// Items 所有有排产的物料
func (c *Context) Items() map[string]float64 {
	return c.itemTotals
}

// BuildingShifts 所有有排产的厂房班次
func (c *Context) BuildingShifts() map[model.BuildingShift]float64 {
	return c.bsTotals
}

// ActiveCount 统计产量大于 0 的产线数
func ActiveCount(lines map[string]float64) int {
	n := 0
	for _, q := range lines {
		if q > Epsilon {
			n++
		}
	}
	return n
}
