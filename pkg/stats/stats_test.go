package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/pkg/model"
)

func testPlan(t *testing.T) *model.Plan {
	t.Helper()
	plan := model.NewPlan("stats", model.DefaultNamingRule(), model.Horizon{ShiftsPerDay: 1, Days: 2, Weeks: 1})
	plan.Demand = []model.DemandItem{
		{Item: "ABC1", Quantity: 100},
		{Item: "XYZ1", Quantity: 50},
		{Item: "QQQ1", Quantity: 10},
	}
	plan.Availability = map[string][]string{
		"ABC": {"I-L1"},
		"XYZ": {"J-L1"},
	}
	plan.Capacity[model.Slot{Line: "I-L1", Shift: 1}] = 60
	plan.Capacity[model.Slot{Line: "I-L1", Shift: 2}] = 30
	plan.Portions = map[string]model.PortionBound{"I": {Lower: 0.5, Upper: 0.7}}
	require.NoError(t, plan.Normalize())
	return plan
}

func schedule(plan *model.Plan, entries ...model.ScheduleEntry) *model.Schedule {
	for i := range entries {
		plan.Decorate(&entries[i])
	}
	return model.NewSchedule(entries)
}

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	plan := testPlan(t)
	s := schedule(plan,
		model.NewEntry("I-L1", 1, "ABC1", 60),
		model.NewEntry("I-L1", 2, "ABC1", 30),
		model.NewEntry("J-L1", 1, "XYZ1", 50),
	)

	m := NewCoverageAnalyzer(plan).Analyze(s)
	assert.Equal(t, 160.0, m.TotalDemand)
	assert.Equal(t, 140.0, m.Scheduled)
	assert.InDelta(t, 87.5, m.DemandSatisfaction, 1e-9)
	assert.Equal(t, 1, m.ItemsFulfilled)
	assert.Equal(t, 1, m.ItemsPartial)
	assert.Equal(t, []string{"QQQ1"}, m.ItemsUnscheduled)

	require.Len(t, m.Lines, 2)
	assert.Equal(t, LineLoad{Line: "I-L1", Building: "I", Scheduled: 90, Capacity: 90, FillRate: 100, ActiveSlots: 2}, m.Lines[0])
	assert.Equal(t, 0.0, m.Lines[1].Capacity, "J-L1 不受限")
	assert.Equal(t, 90.0, m.TotalCapacity)
	assert.InDelta(t, 100, m.OverallFillRate, 1e-9)
	assert.InDelta(t, 100, m.ShiftFillRate[2], 1e-9)

	require.Len(t, m.Buildings, 2)
	assert.Equal(t, "I", m.Buildings[0].Building)
	assert.InDelta(t, 64.2857, m.Buildings[0].Share, 1e-3)
	assert.True(t, m.Buildings[0].Within)
	assert.Nil(t, m.Buildings[1].Bound)
}

func TestCoverageAnalyzer_PortionOutside(t *testing.T) {
	plan := testPlan(t)
	s := schedule(plan,
		model.NewEntry("I-L1", 1, "ABC1", 10),
		model.NewEntry("J-L1", 1, "XYZ1", 50),
	)
	m := NewCoverageAnalyzer(plan).Analyze(s)
	assert.False(t, m.Buildings[0].Within)
}

func TestCoverageAnalyzer_EmptySchedule(t *testing.T) {
	plan := testPlan(t)
	m := NewCoverageAnalyzer(plan).Analyze(model.NewSchedule(nil))
	assert.Equal(t, 0.0, m.DemandSatisfaction)
	assert.Len(t, m.ItemsUnscheduled, 3)
	assert.Equal(t, 0.0, m.OverallFillRate)
	for _, b := range m.Buildings {
		assert.True(t, b.Within, "空表不判定占比")
	}
}

func TestBalanceAnalyzer(t *testing.T) {
	plan := testPlan(t)
	before := schedule(plan,
		model.NewEntry("I-L1", 1, "ABC1", 60),
		model.NewEntry("I-L1", 2, "ABC1", 30),
		model.NewEntry("J-L1", 1, "XYZ1", 50),
	)
	b := NewBalanceAnalyzer(plan)

	m := b.Analyze(before)
	assert.InDelta(t, 40.0/280.0, m.LoadGini, 1e-9)
	assert.Equal(t, 0.0, m.FillGini)
	assert.Equal(t, 70.0, m.MeanLoad)
	assert.InDelta(t, 20, m.StdDev, 1e-9)
	assert.Equal(t, 90.0, m.MaxLoad)
	assert.Equal(t, 50.0, m.MinLoad)
	assert.Equal(t, 100.0, m.OverallScore)

	after := schedule(plan,
		model.NewEntry("I-L1", 1, "ABC1", 60),
		model.NewEntry("I-L1", 2, "ABC1", 30),
	)
	delta := b.CompareSchedules(before, after)
	assert.InDelta(t, 0.5-40.0/280.0, delta["load_gini_change"], 1e-9)
	assert.Equal(t, -50.0, delta["scheduled_change"])
}

func TestCalculateGini(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"空", nil, 0},
		{"全零", []float64{0, 0}, 0},
		{"完全均衡", []float64{5, 5, 5}, 0},
		{"两极", []float64{0, 10}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calculateGini(tt.values), 1e-9)
		})
	}
}
