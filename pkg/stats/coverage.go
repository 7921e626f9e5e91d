// Package stats 提供排产表统计分析功能
package stats

import (
	"sort"

	"github.com/paiban/lineplan/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 需求满足
	TotalDemand        float64  `json:"total_demand"`
	Scheduled          float64  `json:"scheduled"`
	DemandSatisfaction float64  `json:"demand_satisfaction"` // 已排产 / 需求 (%)
	ItemsFulfilled     int      `json:"items_fulfilled"`
	ItemsPartial       int      `json:"items_partial"`
	ItemsUnscheduled   []string `json:"items_unscheduled"`

	// 产能利用
	TotalCapacity   float64         `json:"total_capacity"` // 有上限的班次合计
	OverallFillRate float64         `json:"overall_fill_rate"`
	Lines           []LineLoad      `json:"lines"`
	ShiftFillRate   map[int]float64 `json:"shift_fill_rate"`

	// 厂房占比
	Buildings []BuildingShare `json:"buildings"`
}

// LineLoad 单条产线的负荷
type LineLoad struct {
	Line        string  `json:"line"`
	Building    string  `json:"building"`
	Scheduled   float64 `json:"scheduled"`
	Capacity    float64 `json:"capacity"`  // 0 表示不受限
	FillRate    float64 `json:"fill_rate"` // (%)
	ActiveSlots int     `json:"active_slots"`
}

// BuildingShare 厂房产量占比
type BuildingShare struct {
	Building string              `json:"building"`
	Quantity float64             `json:"quantity"`
	Share    float64             `json:"share"` // (%)
	Bound    *model.PortionBound `json:"bound,omitempty"`
	Within   bool                `json:"within"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	plan *model.Plan
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(plan *model.Plan) *CoverageAnalyzer {
	return &CoverageAnalyzer{plan: plan}
}

// Analyze 分析排产表
func (c *CoverageAnalyzer) Analyze(s *model.Schedule) *CoverageMetrics {
	m := &CoverageMetrics{
		TotalDemand:      c.plan.TotalDemand(),
		Scheduled:        s.Total(),
		ItemsUnscheduled: []string{},
		ShiftFillRate:    make(map[int]float64),
	}
	m.DemandSatisfaction = percent(m.Scheduled, m.TotalDemand)

	c.analyzeItems(s, m)
	c.analyzeLines(s, m)
	c.analyzeBuildings(s, m)
	return m
}

func (c *CoverageAnalyzer) analyzeItems(s *model.Schedule, m *CoverageMetrics) {
	totals := s.ItemTotals()
	for _, d := range c.plan.Demand {
		got := totals[d.Item]
		switch {
		case got <= 0:
			m.ItemsUnscheduled = append(m.ItemsUnscheduled, d.Item)
		case got >= d.Quantity:
			m.ItemsFulfilled++
		default:
			m.ItemsPartial++
		}
	}
}

func (c *CoverageAnalyzer) analyzeLines(s *model.Schedule, m *CoverageMetrics) {
	slots := s.SlotTotals()
	shiftCap := make(map[int]float64)
	shiftUsed := make(map[int]float64)

	for _, line := range c.plan.Lines {
		load := LineLoad{Line: line, Building: c.plan.Building(line)}
		for shift := 1; shift <= c.plan.Horizon.Size(); shift++ {
			used := slots[model.Slot{Line: line, Shift: shift}]
			load.Scheduled += used
			if used > 0 {
				load.ActiveSlots++
			}
			if capacity, ok := c.plan.SlotCapacity(line, shift); ok {
				load.Capacity += capacity
				shiftCap[shift] += capacity
				shiftUsed[shift] += used
			}
		}
		load.FillRate = percent(load.Scheduled, load.Capacity)
		m.TotalCapacity += load.Capacity
		m.Lines = append(m.Lines, load)
	}

	var used float64
	for shift, capacity := range shiftCap {
		m.ShiftFillRate[shift] = percent(shiftUsed[shift], capacity)
		used += shiftUsed[shift]
	}
	m.OverallFillRate = percent(used, m.TotalCapacity)
}

func (c *CoverageAnalyzer) analyzeBuildings(s *model.Schedule, m *CoverageMetrics) {
	totals := s.BuildingTotals()
	names := c.plan.Buildings()
	for b := range totals {
		if !containsString(names, b) {
			names = append(names, b)
		}
	}
	sort.Strings(names)

	for _, b := range names {
		share := BuildingShare{Building: b, Quantity: totals[b], Within: true}
		if m.Scheduled > 0 {
			share.Share = totals[b] / m.Scheduled * 100
		}
		if bound, ok := c.plan.PortionOf(b); ok {
			share.Bound = &bound
			ratio := share.Share / 100
			share.Within = m.Scheduled == 0 || (ratio >= bound.Lower-1e-9 && ratio <= bound.Upper+1e-9)
		}
		m.Buildings = append(m.Buildings, share)
	}
}

// percent 计算百分比，分母为 0 时返回 0
func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
