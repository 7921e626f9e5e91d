package optimizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/solver"
)

type cellKey struct {
	item  string
	line  string
	shift int
}

func (k cellKey) String() string {
	return fmt.Sprintf("%s@%s#%d", k.item, k.line, k.shift)
}

// cell 一个 (物料, 产线, 班次) 的全部决策变量，pins 为其中的固定变量
type cell struct {
	terms []solver.Term
	pins  []solver.Term
}

type shipRef struct {
	v    solver.Var
	item string
}

// builder 单次优化的模型与变量索引
type builder struct {
	plan *model.Plan
	opts Options

	m       *solver.Model
	cells   map[cellKey]*cell
	keys    []cellKey
	shipped []shipRef
}

func build(in Input, opts Options) (*builder, error) {
	b := &builder{
		plan:  in.Plan,
		opts:  opts,
		m:     solver.NewModel(string(opts.Mode)),
		cells: make(map[cellKey]*cell),
	}

	if opts.Mode == ModeFull {
		b.addFreeVariables()
	}
	b.addRequests(in.Requests)
	if err := b.addPins(in.Pins); err != nil {
		return nil, err
	}
	b.sortKeys()

	b.addDemandRows()
	b.addSlotRows()
	b.addBuildingRows()
	b.addPortionRows()
	b.setObjective()
	return b, nil
}

// allowedShift 交期限制下物料可排的班次
func (b *builder) allowedShift(item string, shift int) bool {
	if !b.opts.RestrictToDueDate {
		return true
	}
	d, ok := b.plan.Item(item)
	return !ok || !d.HasDueDate() || shift <= d.DueLT
}

// cellUpper 单元格取值上限：需求量、有效产能、厂房产量上限中的最小者
func (b *builder) cellUpper(item, line string, shift int) float64 {
	ub := b.plan.DemandOf(item)
	if c, ok := b.plan.EffectiveCapacity(line, shift); ok {
		ub = math.Min(ub, c)
	}
	if q, ok := b.plan.MaxQty(b.plan.Building(line), shift); ok {
		ub = math.Min(ub, q)
	}
	return math.Floor(ub)
}

func (b *builder) cellOf(k cellKey) *cell {
	c, ok := b.cells[k]
	if !ok {
		c = &cell{}
		b.cells[k] = c
	}
	return c
}

// addFreeVariables 为所有兼容的 (物料, 产线, 班次) 建立整数变量
func (b *builder) addFreeVariables() {
	for _, d := range b.plan.Demand {
		if d.Quantity <= 0 {
			continue
		}
		for _, line := range b.plan.Lines {
			if !b.plan.IsCompatible(d.Item, line) {
				continue
			}
			for _, shift := range b.plan.Horizon.All() {
				if !b.allowedShift(d.Item, shift) {
					continue
				}
				ub := b.cellUpper(d.Item, line, shift)
				if ub <= 0 {
					continue
				}
				k := cellKey{item: d.Item, line: line, shift: shift}
				x := b.m.Integer(fmt.Sprintf("x[%s]", k), 0, ub)
				c := b.cellOf(k)
				c.terms = append(c.terms, solver.T(x, 1))
			}
		}
	}
}

// addRequests 每个请求拥有独立变量，分配总量等于请求量
func (b *builder) addRequests(requests []model.Request) {
	for ri, req := range requests {
		if req.Quantity <= 0 {
			continue
		}
		var terms []solver.Term
		for _, item := range req.Items {
			for _, line := range req.Lines {
				if !b.plan.IsCompatible(item, line) {
					continue
				}
				for _, shift := range req.Shifts {
					if !b.allowedShift(item, shift) {
						continue
					}
					ub := math.Min(b.cellUpper(item, line, shift), req.Quantity)
					if ub <= 0 {
						continue
					}
					k := cellKey{item: item, line: line, shift: shift}
					y := b.m.Integer(fmt.Sprintf("y[%d,%s]", ri, k), 0, ub)
					c := b.cellOf(k)
					c.terms = append(c.terms, solver.T(y, 1))
					terms = append(terms, solver.T(y, 1))
				}
			}
		}
		b.m.AddConstraint(fmt.Sprintf("request[%d:%s]", ri, req.Pattern), terms, solver.Equal, req.Quantity)
	}
}

// addPins 固定已落实的取值，其余变量在此基础上继续优化
func (b *builder) addPins(pins []Pin) error {
	for _, p := range pins {
		if !b.plan.IsCompatible(p.Item, p.Line) {
			return errors.New(errors.CodeInvalidLine,
				fmt.Sprintf("固定分配 %s 不能排在产线 %s", p.Item, p.Line)).
				WithField("item", p.Item).
				WithField("line", p.Line)
		}
		if p.Quantity < 0 || !b.plan.Horizon.Contains(p.Shift) {
			return errors.InvalidInput("pins", fmt.Sprintf("%s@%s#%d 无效", p.Item, p.Line, p.Shift))
		}
		k := cellKey{item: p.Item, line: p.Line, shift: p.Shift}
		c := b.cellOf(k)
		v := b.m.Integer(fmt.Sprintf("pin[%s]", k), 0, p.Quantity)
		b.m.Fix(v, p.Quantity)
		c.terms = append(c.terms, solver.T(v, 1))
		c.pins = append(c.pins, solver.T(v, 1))
	}
	return nil
}

func (b *builder) sortKeys() {
	b.keys = make([]cellKey, 0, len(b.cells))
	for k, c := range b.cells {
		if len(c.terms) > 0 {
			b.keys = append(b.keys, k)
		}
	}
	sort.Slice(b.keys, func(i, j int) bool {
		a, c := b.keys[i], b.keys[j]
		if a.shift != c.shift {
			return a.shift < c.shift
		}
		if a.line != c.line {
			return a.line < c.line
		}
		return a.item < c.item
	})
}

// addDemandRows 物料累计量不超过需求；完整排产且要求整单时恰好等于
func (b *builder) addDemandRows() {
	byItem := make(map[string][]solver.Term)
	for _, k := range b.keys {
		byItem[k.item] = append(byItem[k.item], b.cells[k].terms...)
	}
	sense := solver.LessEq
	if b.opts.ExactDemand && b.opts.Mode == ModeFull {
		sense = solver.Equal
	}
	seen := make(map[string]bool)
	for _, d := range b.plan.Demand {
		seen[d.Item] = true
		if len(byItem[d.Item]) == 0 && sense == solver.LessEq {
			continue
		}
		b.m.AddConstraint(fmt.Sprintf("demand[%s]", d.Item), byItem[d.Item], sense, d.Quantity)
	}
	// 需求表之外的物料需求为 0
	for _, k := range b.keys {
		if !seen[k.item] {
			seen[k.item] = true
			b.m.AddConstraint(fmt.Sprintf("demand[%s]", k.item), byItem[k.item], solver.LessEq, 0)
		}
	}
}

// addSlotRows 产线班次产能与稼动率上限
func (b *builder) addSlotRows() {
	for _, slot := range b.slots() {
		capacity, ok := b.plan.EffectiveCapacity(slot.Line, slot.Shift)
		if !ok {
			continue
		}
		bound := capacity
		if u, ok := b.plan.UtilizationCap(slot.Shift); ok {
			bound = math.Min(bound, u*capacity)
		}
		b.m.AddConstraint(fmt.Sprintf("capacity[%s,%d]", slot.Line, slot.Shift), b.slotTerms(slot), solver.LessEq, bound)
	}
}

// addBuildingRows 厂房班次开线数与产量上限
func (b *builder) addBuildingRows() {
	slotsByBS := make(map[model.BuildingShift][]model.Slot)
	for _, slot := range b.slots() {
		bs := model.BuildingShift{Building: b.plan.Building(slot.Line), Shift: slot.Shift}
		slotsByBS[bs] = append(slotsByBS[bs], slot)
	}

	for _, bs := range sortedBuildingShifts(slotsByBS) {
		var all []solver.Term
		for _, slot := range slotsByBS[bs] {
			all = append(all, b.slotTerms(slot)...)
		}

		if maxLines, ok := b.plan.MaxLines(bs.Building, bs.Shift); ok {
			var actives []solver.Term
			for _, slot := range slotsByBS[bs] {
				terms := b.slotTerms(slot)
				bigM := b.upperSum(terms)
				if c, ok := b.plan.EffectiveCapacity(slot.Line, slot.Shift); ok {
					bigM = math.Min(bigM, c)
				}
				active := b.m.Binary(fmt.Sprintf("active[%s,%d]", slot.Line, slot.Shift))
				b.m.AddConstraint("active_upper", append(cloneTerms(terms), solver.T(active, -bigM)), solver.LessEq, 0)
				b.m.AddConstraint("active_lower", append(cloneTerms(terms), solver.T(active, -1)), solver.GreaterEq, 0)
				actives = append(actives, solver.T(active, 1))
			}
			b.m.AddConstraint(fmt.Sprintf("max_lines[%s,%d]", bs.Building, bs.Shift), actives, solver.LessEq, maxLines)
		}

		if maxQty, ok := b.plan.MaxQty(bs.Building, bs.Shift); ok {
			b.m.AddConstraint(fmt.Sprintf("max_qty[%s,%d]", bs.Building, bs.Shift), all, solver.LessEq, maxQty)
		}
	}
}

// addPortionRows 厂房占比：Σ厂房 - L·Σ全部 >= 0，Σ厂房 - U·Σ全部 <= 0
func (b *builder) addPortionRows() {
	var total []solver.Term
	byBuilding := make(map[string][]solver.Term)
	for _, k := range b.keys {
		terms := b.cells[k].terms
		total = append(total, terms...)
		byBuilding[b.plan.Building(k.line)] = append(byBuilding[b.plan.Building(k.line)], terms...)
	}
	if len(total) == 0 {
		return
	}

	for _, building := range b.plan.PortionBuildings() {
		bound, _ := b.plan.PortionOf(building)
		if bound.Lower > 0 {
			terms := append(cloneTerms(byBuilding[building]), scaled(total, -bound.Lower)...)
			b.m.AddConstraint(fmt.Sprintf("portion_lower[%s]", building), terms, solver.GreaterEq, 0)
		}
		if bound.Upper < 1 {
			terms := append(cloneTerms(byBuilding[building]), scaled(total, -bound.Upper)...)
			b.m.AddConstraint(fmt.Sprintf("portion_upper[%s]", building), terms, solver.LessEq, 0)
		}
	}
}

// setObjective 最大化排产量，靠前班次略优先；完整排产时出货物料数优先
func (b *builder) setObjective() {
	weights := b.plan.ShiftWeights()
	tieBreak := 1 / (b.plan.TotalDemand() + 1)

	var quantity []solver.Term
	for _, k := range b.keys {
		coef := 1 + tieBreak*weights[k.shift]
		quantity = append(quantity, scaled(b.cells[k].terms, coef)...)
	}

	if b.opts.Mode != ModeFull || !b.opts.ShipmentObjective {
		b.m.Maximize(quantity)
		return
	}

	objective := b.addShipment()
	scale := 1 / (2*b.plan.TotalDemand() + 2)
	b.m.Maximize(append(objective, scaled(quantity, scale)...))
}

// addShipment 出货指示变量：交期内累计量达到出货目标时才可为 1
func (b *builder) addShipment() []solver.Term {
	byItem := make(map[string][]solver.Term)
	for _, k := range b.keys {
		d, ok := b.plan.Item(k.item)
		if !ok || !d.HasDueDate() || k.shift > d.DueLT {
			continue
		}
		byItem[k.item] = append(byItem[k.item], b.cells[k].terms...)
	}

	var objective []solver.Term
	for _, d := range b.plan.Demand {
		target := d.Target()
		if !d.HasDueDate() || target <= 0 || len(byItem[d.Item]) == 0 {
			continue
		}
		s := b.m.Binary(fmt.Sprintf("shipped[%s]", d.Item))
		b.m.AddConstraint(fmt.Sprintf("ship[%s]", d.Item),
			append(cloneTerms(byItem[d.Item]), solver.T(s, -target)), solver.GreaterEq, 0)
		b.shipped = append(b.shipped, shipRef{v: s, item: d.Item})
		objective = append(objective, solver.T(s, 1))
	}
	return objective
}

// slots 有变量的产线班次（排序）
func (b *builder) slots() []model.Slot {
	seen := make(map[model.Slot]bool)
	var out []model.Slot
	for _, k := range b.keys {
		s := model.Slot{Line: k.line, Shift: k.shift}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Shift < out[j].Shift
	})
	return out
}

func (b *builder) slotTerms(slot model.Slot) []solver.Term {
	var terms []solver.Term
	for _, k := range b.keys {
		if k.line == slot.Line && k.shift == slot.Shift {
			terms = append(terms, b.cells[k].terms...)
		}
	}
	return terms
}

func (b *builder) upperSum(terms []solver.Term) float64 {
	sum := 0.0
	for _, t := range terms {
		_, ub := b.m.Bounds(t.Var)
		sum += ub
	}
	return sum
}

func scaled(terms []solver.Term, coef float64) []solver.Term {
	out := make([]solver.Term, len(terms))
	for i, t := range terms {
		out[i] = solver.T(t.Var, t.Coef*coef)
	}
	return out
}

func cloneTerms(terms []solver.Term) []solver.Term {
	out := make([]solver.Term, len(terms), len(terms)+1)
	copy(out, terms)
	return out
}

func sortedBuildingShifts(m map[model.BuildingShift][]model.Slot) []model.BuildingShift {
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
