package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/paiban/lineplan/pkg/errors"
)

// 产能表中的合成行前缀，加载时转换为厂房策略
const (
	MaxLinePrefix = "Max_line_"
	MaxQtyPrefix  = "Max_qty_"
)

// Plan 一个排产周期的参考数据
type Plan struct {
	ID           uuid.UUID                 `json:"id"`
	Name         string                    `json:"name"`
	Naming       NamingRule                `json:"naming"`
	Horizon      Horizon                   `json:"horizon"`
	Lines        []string                  `json:"lines"`
	Demand       []DemandItem              `json:"demand"`
	Availability map[string][]string       `json:"availability"` // 项目 -> 可生产产线
	Capacity     map[Slot]float64          `json:"-"`
	Policies     map[BuildingShift]Policy  `json:"-"`
	Portions     map[string]PortionBound   `json:"portions,omitempty"`
	Utilization  map[int]float64           `json:"utilization,omitempty"` // 班次 -> 稼动率上限

	demandIndex map[string]int
	legal       map[string]map[string]bool
	lineIndex   map[string]bool
}

// NewPlan 创建空计划
func NewPlan(name string, naming NamingRule, horizon Horizon) *Plan {
	return &Plan{
		ID:           uuid.New(),
		Name:         name,
		Naming:       naming,
		Horizon:      horizon,
		Availability: make(map[string][]string),
		Capacity:     make(map[Slot]float64),
		Policies:     make(map[BuildingShift]Policy),
		Portions:     make(map[string]PortionBound),
		Utilization:  make(map[int]float64),
	}
}

// Normalize 加载后整理：合成行转为厂房策略，建立索引，校验需求行
func (p *Plan) Normalize() error {
	ve := &errors.ValidationErrors{}

	if p.Capacity == nil {
		p.Capacity = make(map[Slot]float64)
	}
	if p.Policies == nil {
		p.Policies = make(map[BuildingShift]Policy)
	}
	if p.Horizon.Size() <= 0 {
		ve.Add("horizon", "班次范围为空")
	}

	for slot, v := range p.Capacity {
		var building string
		var isLines bool
		switch {
		case strings.HasPrefix(slot.Line, MaxLinePrefix):
			building, isLines = strings.TrimPrefix(slot.Line, MaxLinePrefix), true
		case strings.HasPrefix(slot.Line, MaxQtyPrefix):
			building = strings.TrimPrefix(slot.Line, MaxQtyPrefix)
		default:
			continue
		}
		delete(p.Capacity, slot)
		if !Bounded(v) {
			continue
		}
		key := BuildingShift{Building: building, Shift: slot.Shift}
		policy := p.Policies[key]
		if isLines {
			policy.MaxLines = Float(v)
		} else {
			policy.MaxQty = Float(v)
		}
		p.Policies[key] = policy
	}

	p.demandIndex = make(map[string]int, len(p.Demand))
	for i := range p.Demand {
		d := &p.Demand[i]
		field := fmt.Sprintf("demand[%d]", i)
		if d.Item == "" {
			ve.Add(field+".item", "物料编号为空")
			continue
		}
		if !Bounded(d.Quantity) || d.Quantity < 0 {
			ve.Add(field+".quantity", fmt.Sprintf("物料 %s 需求量无效", d.Item))
		}
		if _, dup := p.demandIndex[d.Item]; dup {
			ve.Add(field+".item", fmt.Sprintf("物料 %s 重复", d.Item))
			continue
		}
		d.Project = p.Naming.Project(d.Item)
		p.demandIndex[d.Item] = i
	}

	p.legal = make(map[string]map[string]bool, len(p.Availability))
	p.lineIndex = make(map[string]bool)
	for _, l := range p.Lines {
		p.lineIndex[l] = true
	}
	for project, lines := range p.Availability {
		set := make(map[string]bool, len(lines))
		for _, l := range lines {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}
			set[l] = true
			p.lineIndex[l] = true
		}
		p.legal[project] = set
	}
	for slot := range p.Capacity {
		p.lineIndex[slot.Line] = true
	}
	p.Lines = sortedKeys(p.lineIndex)

	for b, bound := range p.Portions {
		if bound.Lower < 0 || bound.Upper > 1 || bound.Lower > bound.Upper {
			ve.Add("portions."+b, fmt.Sprintf("占比区间 [%v, %v] 无效", bound.Lower, bound.Upper))
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// Item 查找需求物料
func (p *Plan) Item(item string) (DemandItem, bool) {
	idx, ok := p.demandIndex[item]
	if !ok {
		return DemandItem{}, false
	}
	return p.Demand[idx], true
}

// DemandOf 返回物料需求量
func (p *Plan) DemandOf(item string) float64 {
	d, _ := p.Item(item)
	return d.Quantity
}

// TotalDemand 返回总需求量
func (p *Plan) TotalDemand() float64 {
	var total float64
	for _, d := range p.Demand {
		total += d.Quantity
	}
	return total
}

// Building 返回产线所属厂房
func (p *Plan) Building(line string) string {
	return p.Naming.Building(line)
}

// Project 返回物料项目代码
func (p *Plan) Project(item string) string {
	return p.Naming.Project(item)
}

// LegalLines 返回项目可用产线（排序）
func (p *Plan) LegalLines(project string) []string {
	return sortedKeys(p.legal[project])
}

// IsLegal 检查产线是否可生产该项目
func (p *Plan) IsLegal(project, line string) bool {
	return p.legal[project][line]
}

// IsCompatible 检查物料能否在产线生产
func (p *Plan) IsCompatible(item, line string) bool {
	return p.IsLegal(p.Project(item), line)
}

// OrphanItems 返回没有任何可用产线的物料
func (p *Plan) OrphanItems() []string {
	var orphans []string
	for _, d := range p.Demand {
		if len(p.legal[d.Project]) == 0 {
			orphans = append(orphans, d.Item)
		}
	}
	return orphans
}

// Buildings 返回全部厂房（排序）
func (p *Plan) Buildings() []string {
	set := make(map[string]bool)
	for _, l := range p.Lines {
		set[p.Building(l)] = true
	}
	return sortedKeys(set)
}

// LinesOf 返回厂房内产线
func (p *Plan) LinesOf(building string) []string {
	var lines []string
	for _, l := range p.Lines {
		if p.Building(l) == building {
			lines = append(lines, l)
		}
	}
	return lines
}

// SlotCapacity 返回产线班次产能，false 表示不受限
func (p *Plan) SlotCapacity(line string, shift int) (float64, bool) {
	v, ok := p.Capacity[Slot{Line: line, Shift: shift}]
	if !ok || !Bounded(v) {
		return 0, false
	}
	return v, true
}

// MaxLines 返回厂房班次最大同时开线数
func (p *Plan) MaxLines(building string, shift int) (float64, bool) {
	return limitOf(p.Policies[BuildingShift{Building: building, Shift: shift}].MaxLines)
}

// MaxQty 返回厂房班次最大产量
func (p *Plan) MaxQty(building string, shift int) (float64, bool) {
	return limitOf(p.Policies[BuildingShift{Building: building, Shift: shift}].MaxQty)
}

// EffectiveCapacity 返回产线班次有效产能
// 厂房开线数或产量上限为 0 时直接视为无产能，之后才查产能表
func (p *Plan) EffectiveCapacity(line string, shift int) (float64, bool) {
	b := p.Building(line)
	if v, ok := p.MaxLines(b, shift); ok && v <= 0 {
		return 0, true
	}
	if v, ok := p.MaxQty(b, shift); ok && v <= 0 {
		return 0, true
	}
	return p.SlotCapacity(line, shift)
}

// UtilizationCap 返回班次稼动率上限
func (p *Plan) UtilizationCap(shift int) (float64, bool) {
	v, ok := p.Utilization[shift]
	if !ok || !Bounded(v) {
		return 0, false
	}
	return v, true
}

// PortionOf 返回厂房占比区间
func (p *Plan) PortionOf(building string) (PortionBound, bool) {
	b, ok := p.Portions[building]
	return b, ok
}

// PortionBuildings 返回设置了占比的厂房（排序）
func (p *Plan) PortionBuildings() []string {
	return sortedKeys(p.Portions)
}

// Decorate 填充排产行的派生字段
func (p *Plan) Decorate(e *ScheduleEntry) {
	e.Building = p.Building(e.Line)
	e.Project = p.Project(e.Item)
	if d, ok := p.Item(e.Item); ok {
		e.RMC = d.RMC
		e.DueLT = d.DueLT
	}
}

// ShiftWeights 返回前置生产的班次权重，越早权重越高
func (p *Plan) ShiftWeights() map[int]float64 {
	n := p.Horizon.Size()
	weights := make(map[int]float64, n)
	for s := 1; s <= n; s++ {
		weights[s] = float64(n-s+1) / float64(n)
	}
	return weights
}
