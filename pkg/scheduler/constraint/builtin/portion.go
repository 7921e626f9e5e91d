package builtin

import (
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

// PortionConstraint 厂房占比约束，按整张排产表计算
type PortionConstraint struct {
	*BaseConstraint
}

// NewPortionConstraint 创建厂房占比约束
func NewPortionConstraint() *PortionConstraint {
	return &PortionConstraint{
		BaseConstraint: NewBaseConstraint("厂房占比", constraint.TypePortion, constraint.CategoryHard, OrderPortion),
	}
}

// CheckEdit 校验编辑；删除不受占比约束阻止，只在审计中报告
func (c *PortionConstraint) CheckEdit(ctx *constraint.Context, edit *constraint.Edit) *model.Violation {
	if edit.Kind == constraint.EditDelete {
		return nil
	}
	totals, total := edit.BuildingTotalsAfter(ctx)
	if total <= constraint.Epsilon {
		return nil
	}
	beforeTotals, beforeTotal := ctx.BuildingTotals(), ctx.Total()
	for _, b := range ctx.Plan.PortionBuildings() {
		bound, _ := ctx.Plan.PortionOf(b)
		v := c.check(b, bound, totals[b], total)
		if v == nil {
			continue
		}
		// 编辑前已违反且未变差时放行
		if beforeTotal > constraint.Epsilon {
			if prev := c.check(b, bound, beforeTotals[b], beforeTotal); prev != nil &&
				prev.Reason == v.Reason && !v.Amount.GreaterThan(prev.Amount) {
				continue
			}
		}
		return v
	}
	return nil
}

// Audit 全表校验
func (c *PortionConstraint) Audit(ctx *constraint.Context) []model.Violation {
	total := ctx.Total()
	if total <= constraint.Epsilon {
		return nil
	}
	totals := ctx.BuildingTotals()
	var out []model.Violation
	for _, b := range ctx.Plan.PortionBuildings() {
		bound, _ := ctx.Plan.PortionOf(b)
		if v := c.check(b, bound, totals[b], total); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func (c *PortionConstraint) check(building string, bound model.PortionBound, qty, total float64) *model.Violation {
	share := ratio(qty, total)
	upper := model.Amount(bound.Upper)
	lower := model.Amount(bound.Lower)
	switch {
	case share.GreaterThan(upper):
		v := model.Exceeds(model.ReasonPortionUpper, building, 0, share, upper)
		return &v
	case share.LessThan(lower):
		v := model.Below(model.ReasonPortionLower, building, 0, share, lower)
		return &v
	}
	return nil
}
