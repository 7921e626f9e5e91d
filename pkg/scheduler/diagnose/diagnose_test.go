package diagnose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/solver"
)

func newPlan(t *testing.T, setup func(p *model.Plan)) *model.Plan {
	t.Helper()
	p := model.NewPlan("diagnose", model.DefaultNamingRule(), model.DefaultHorizon())
	p.Demand = []model.DemandItem{{Item: "ABC1", Quantity: 200}, {Item: "ABC2", Quantity: 200}}
	p.Availability = map[string][]string{"ABC": {"I-L1", "I-L2", "J-L1"}}
	if setup != nil {
		setup(p)
	}
	require.NoError(t, p.Normalize())
	return p
}

func newDiagnoser() *Diagnoser {
	return New(solver.NewBranchAndBound(solver.DefaultOptions()), DefaultOptions())
}

func request(pattern string, qty float64, lines []string, shifts ...int) model.Request {
	return model.Request{
		Pattern:  pattern,
		Items:    []string{pattern},
		Lines:    lines,
		Shifts:   shifts,
		Quantity: qty,
		Kind:     model.RequestExact,
	}
}

func TestDiagnose_CapacityViolation(t *testing.T) {
	plan := newPlan(t, func(p *model.Plan) {
		p.Capacity[model.Slot{Line: "I-L1", Shift: 3}] = 100
	})
	requests := []model.Request{
		request("ABC1", 70, []string{"I-L1"}, 3),
		request("ABC2", 50, []string{"I-L1"}, 3),
	}

	report, err := newDiagnoser().Diagnose(context.Background(), plan, requests)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)

	v := report.Violations[0]
	assert.Equal(t, model.ReasonCapacity, v.Reason)
	assert.Equal(t, "I-L1", v.Target)
	assert.Equal(t, 3, v.Shift)
	assert.Equal(t, "20", v.Amount.String())
	assert.Equal(t, "100", v.Bound.String())
	assert.True(t, report.Optimal)
}

func TestDiagnose_BuildingPolicies(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(p *model.Plan)
		requests []model.Request
		reason   model.Reason
		target   string
		amount   string
	}{
		{
			name: "同时开线数",
			setup: func(p *model.Plan) {
				p.Capacity[model.Slot{Line: model.MaxLinePrefix + "I", Shift: 1}] = 1
			},
			requests: []model.Request{
				request("ABC1", 10, []string{"I-L1"}, 1),
				request("ABC2", 10, []string{"I-L2"}, 1),
			},
			reason: model.ReasonConcurrentLines,
			target: "I",
			amount: "1",
		},
		{
			name: "厂房最大产量",
			setup: func(p *model.Plan) {
				p.Capacity[model.Slot{Line: model.MaxQtyPrefix + "I", Shift: 2}] = 50
			},
			requests: []model.Request{
				request("ABC1", 40, []string{"I-L1"}, 2),
				request("ABC2", 30, []string{"I-L1"}, 2),
			},
			reason: model.ReasonMaxQuantity,
			target: "I",
			amount: "20",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := newPlan(t, tt.setup)
			report, err := newDiagnoser().Diagnose(context.Background(), plan, tt.requests)
			require.NoError(t, err)
			require.Len(t, report.Violations, 1)
			assert.Equal(t, tt.reason, report.Violations[0].Reason)
			assert.Equal(t, tt.target, report.Violations[0].Target)
			assert.Equal(t, tt.amount, report.Violations[0].Amount.String())
		})
	}
}

func TestDiagnose_UnmetWithoutCandidates(t *testing.T) {
	plan := newPlan(t, nil)
	report, err := newDiagnoser().Diagnose(context.Background(), plan, []model.Request{
		request("ABC1", 15, nil, 1),
	})
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, model.ReasonUnmet, report.Violations[0].Reason)
	assert.Equal(t, "15", report.Violations[0].Amount.String())
}

func TestDiagnose_NoViolationsIsSound(t *testing.T) {
	plan := newPlan(t, func(p *model.Plan) {
		for _, line := range []string{"I-L1", "I-L2"} {
			for shift := 1; shift <= 2; shift++ {
				p.Capacity[model.Slot{Line: line, Shift: shift}] = 40
			}
		}
		p.Capacity[model.Slot{Line: model.MaxLinePrefix + "I", Shift: 1}] = 1
		p.Capacity[model.Slot{Line: model.MaxLinePrefix + "I", Shift: 2}] = 1
		p.Capacity[model.Slot{Line: model.MaxQtyPrefix + "I", Shift: 1}] = 35
	})
	requests := []model.Request{
		request("ABC1", 30, []string{"I-L1", "I-L2"}, 1, 2),
		request("ABC2", 20, []string{"I-L1", "I-L2"}, 1, 2),
	}

	report, err := newDiagnoser().Diagnose(context.Background(), plan, requests)
	require.NoError(t, err)
	require.True(t, report.Feasible(), "violations: %v", report.Violations)
	assert.True(t, report.TotalSlack.IsZero())

	slot := map[model.Slot]float64{}
	lines := map[model.BuildingShift]map[string]bool{}
	qty := map[model.BuildingShift]float64{}
	perRequest := map[int]float64{}
	for _, a := range report.Allocations {
		slot[model.Slot{Line: a.Line, Shift: a.Shift}] += a.Quantity
		bs := model.BuildingShift{Building: plan.Building(a.Line), Shift: a.Shift}
		if lines[bs] == nil {
			lines[bs] = map[string]bool{}
		}
		lines[bs][a.Line] = true
		qty[bs] += a.Quantity
		perRequest[a.Request] += a.Quantity
	}
	for s, q := range slot {
		c, ok := plan.SlotCapacity(s.Line, s.Shift)
		if ok {
			assert.LessOrEqual(t, q, c+1e-6, "产能 %v", s)
		}
	}
	for bs, set := range lines {
		if bound, ok := plan.MaxLines(bs.Building, bs.Shift); ok {
			assert.LessOrEqual(t, float64(len(set)), bound, "开线数 %v", bs)
		}
		if bound, ok := plan.MaxQty(bs.Building, bs.Shift); ok {
			assert.LessOrEqual(t, qty[bs], bound+1e-6, "产量 %v", bs)
		}
	}
	assert.InDelta(t, 30, perRequest[0], 1e-6)
	assert.InDelta(t, 20, perRequest[1], 1e-6)
}

func TestDiagnose_CancelledIsError(t *testing.T) {
	plan := newPlan(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newDiagnoser().Diagnose(ctx, plan, []model.Request{
		request("ABC1", 10, []string{"I-L1"}, 1),
	})
	assert.Error(t, err)
	assert.Nil(t, report)
}
