package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

func newPlan(t *testing.T, setup func(p *model.Plan)) *model.Plan {
	t.Helper()
	p := model.NewPlan("builtin", model.DefaultNamingRule(), model.DefaultHorizon())
	p.Demand = []model.DemandItem{
		{Item: "ABC1", Quantity: 1000, DueLT: 4},
		{Item: "XYZ1", Quantity: 1000},
	}
	p.Availability = map[string][]string{
		"ABC": {"I-L1", "I-L2", "J-L1"},
		"XYZ": {"J-L1"},
	}
	if setup != nil {
		setup(p)
	}
	require.NoError(t, p.Normalize())
	return p
}

func schedule(p *model.Plan, entries ...model.ScheduleEntry) *model.Schedule {
	for i := range entries {
		p.Decorate(&entries[i])
	}
	return model.NewSchedule(entries)
}

func TestRegisterDefaultConstraints_Order(t *testing.T) {
	m := NewDefaultManager()
	want := []constraint.Type{
		constraint.TypeDueDate,
		constraint.TypeCompatibility,
		constraint.TypeDemand,
		constraint.TypeSlotCapacity,
		constraint.TypeConcurrentLines,
		constraint.TypeBuildingQuantity,
		constraint.TypeUtilization,
		constraint.TypePortion,
	}
	var got []constraint.Type
	for _, c := range m.GetAll() {
		got = append(got, c.Type())
	}
	assert.Equal(t, want, got)
}

func TestPortion_AuditAboveUpperLimit(t *testing.T) {
	plan := newPlan(t, func(p *model.Plan) {
		p.Portions = map[string]model.PortionBound{"I": {Lower: 0.2, Upper: 0.4}}
	})
	s := schedule(plan,
		model.NewEntry("I-L1", 1, "ABC1", 500),
		model.NewEntry("J-L1", 1, "XYZ1", 500),
	)

	violations := NewPortionConstraint().Audit(constraint.NewContext(plan, s))
	require.Len(t, violations, 1)
	assert.Equal(t, model.ReasonPortionUpper, violations[0].Reason)
	assert.Equal(t, "I", violations[0].Target)
	assert.Equal(t, "0.5", violations[0].Actual.String())
	assert.Equal(t, "0.1", violations[0].Amount.String())
}

func TestPortion_Lower(t *testing.T) {
	plan := newPlan(t, func(p *model.Plan) {
		p.Portions = map[string]model.PortionBound{"J": {Lower: 0.3, Upper: 1}}
	})
	s := schedule(plan,
		model.NewEntry("I-L1", 1, "ABC1", 900),
		model.NewEntry("J-L1", 1, "XYZ1", 100),
	)
	violations := NewPortionConstraint().Audit(constraint.NewContext(plan, s))
	require.Len(t, violations, 1)
	assert.Equal(t, model.ReasonPortionLower, violations[0].Reason)
	assert.Equal(t, "0.2", violations[0].Amount.String())

	// 不变差的编辑放行，变差的拒绝
	ctx := constraint.NewContext(plan, s)
	better := &constraint.Edit{Kind: constraint.EditAdd, Index: -1, After: model.NewEntry("J-L1", 2, "XYZ1", 50)}
	assert.Nil(t, NewPortionConstraint().CheckEdit(ctx, better))
	worse := &constraint.Edit{Kind: constraint.EditAdd, Index: -1, After: model.NewEntry("I-L2", 2, "ABC1", 50)}
	assert.NotNil(t, NewPortionConstraint().CheckEdit(ctx, worse))
}

func TestAudit_UpperBoundFamilies(t *testing.T) {
	plan := newPlan(t, func(p *model.Plan) {
		p.Capacity[model.Slot{Line: "I-L1", Shift: 1}] = 100
		p.Capacity[model.Slot{Line: "I-L2", Shift: 1}] = 100
		p.Capacity[model.Slot{Line: model.MaxLinePrefix + "I", Shift: 1}] = 1
		p.Capacity[model.Slot{Line: model.MaxQtyPrefix + "I", Shift: 1}] = 150
		p.Utilization = map[int]float64{1: 0.9}
		p.Demand[0].Quantity = 200
	})
	s := schedule(plan,
		model.NewEntry("I-L1", 1, "ABC1", 120),
		model.NewEntry("I-L2", 1, "ABC1", 95),
		model.NewEntry("J-L1", 6, "ABC1", 1),
		model.NewEntry("I-L1", 2, "XYZ1", 1),
	)
	result := NewDefaultManager().Audit(constraint.NewContext(plan, s))
	assert.False(t, result.IsValid)

	reasons := map[model.Reason][]string{}
	for _, v := range result.HardViolations {
		reasons[v.Reason] = append(reasons[v.Reason], v.Amount.String())
	}
	assert.Equal(t, []string{"2"}, reasons[model.ReasonDueDate])
	assert.Len(t, reasons[model.ReasonCompatibility], 1)
	assert.Equal(t, []string{"16"}, reasons[model.ReasonDemand])
	assert.Equal(t, []string{"20"}, reasons[model.ReasonCapacity])
	assert.Equal(t, []string{"1"}, reasons[model.ReasonConcurrentLines])
	assert.Equal(t, []string{"65"}, reasons[model.ReasonMaxQuantity])
	assert.Equal(t, []string{"0.3", "0.05"}, reasons[model.ReasonUtilization])
}

func TestCheckEdit_SkipsNonIncreasingEdits(t *testing.T) {
	plan := newPlan(t, func(p *model.Plan) {
		p.Capacity[model.Slot{Line: "I-L1", Shift: 1}] = 100
	})
	e := model.NewEntry("I-L1", 1, "ABC1", 150)
	s := schedule(plan, e)
	ctx := constraint.NewContext(plan, s)
	before := s.Entries[0]

	shrink := before
	shrink.Quantity = 120
	edit := &constraint.Edit{Kind: constraint.EditQuantity, Index: 0, Before: &before, After: shrink}
	assert.Nil(t, NewSlotCapacityConstraint().CheckEdit(ctx, edit), "减少数量不应被产能拒绝")

	grow := before
	grow.Quantity = 160
	edit = &constraint.Edit{Kind: constraint.EditQuantity, Index: 0, Before: &before, After: grow}
	v := NewSlotCapacityConstraint().CheckEdit(ctx, edit)
	require.NotNil(t, v)
	assert.Equal(t, "60", v.Amount.String())
}

func TestEffectiveCapacity_ZeroPolicyShortCircuits(t *testing.T) {
	plan := newPlan(t, func(p *model.Plan) {
		p.Capacity[model.Slot{Line: "I-L1", Shift: 5}] = 100
		p.Capacity[model.Slot{Line: model.MaxLinePrefix + "I", Shift: 5}] = 0
	})
	ctx := constraint.NewContext(plan, schedule(plan))
	edit := &constraint.Edit{Kind: constraint.EditAdd, Index: -1, After: model.NewEntry("I-L1", 5, "ABC1", 1)}
	plan.Decorate(&edit.After)

	v := NewSlotCapacityConstraint().CheckEdit(ctx, edit)
	require.NotNil(t, v)
	assert.Equal(t, "0", v.Bound.String())
}
