package planner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
	"github.com/paiban/lineplan/pkg/validator"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	plan := model.NewPlan("session", model.DefaultNamingRule(), model.Horizon{ShiftsPerDay: 1, Days: 2, Weeks: 1})
	plan.Demand = []model.DemandItem{
		{Item: "ABC1", Quantity: 100},
		{Item: "XYZ1", Quantity: 50},
	}
	plan.Availability = map[string][]string{
		"ABC": {"I-L1"},
		"XYZ": {"J-L1"},
	}
	plan.Capacity[model.Slot{Line: "I-L1", Shift: 1}] = 60
	plan.Capacity[model.Slot{Line: "I-L1", Shift: 2}] = 30
	require.NoError(t, plan.Normalize())

	cfg := DefaultConfig()
	cfg.Solver.TimeLimit = 10 * time.Second
	return NewSession(plan, cfg)
}

func TestSession_ResolveDiagnoseOptimize(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()

	resolved := s.Resolve([]model.RawDirective{
		{Pattern: "ABC1", Line: model.ListOf("I-L1"), Shift: model.ListOf("2"), Quantity: model.Literal(20)},
	}, nil)
	require.False(t, resolved.HasErrors())
	require.Len(t, s.Requests(), 1)

	report, err := s.Diagnose(ctx, nil)
	require.NoError(t, err)
	assert.True(t, report.Feasible())

	result, err := s.Optimize(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, result.PreAssign)
	assert.Equal(t, 20.0, result.PreAssign.Scheduled)

	live := s.Snapshot(model.SnapshotLive)
	assert.Equal(t, 140.0, live.Total())
	assert.Equal(t, 30.0, live.SlotTotal("I-L1", 2))
	assert.Empty(t, s.Diff(), "刚排产时现行表与原始快照一致")
	assert.True(t, s.Audit().IsValid)
}

func TestSession_ExactDemandWithPartialPreAssignment(t *testing.T) {
	plan := model.NewPlan("exact", model.DefaultNamingRule(), model.Horizon{ShiftsPerDay: 1, Days: 2, Weeks: 1})
	plan.Demand = []model.DemandItem{
		{Item: "ABC1", Quantity: 80},
		{Item: "XYZ1", Quantity: 50},
	}
	plan.Availability = map[string][]string{
		"ABC": {"I-L1"},
		"XYZ": {"J-L1"},
	}
	plan.Capacity[model.Slot{Line: "I-L1", Shift: 1}] = 60
	plan.Capacity[model.Slot{Line: "I-L1", Shift: 2}] = 30
	require.NoError(t, plan.Normalize())

	cfg := DefaultConfig()
	cfg.Solver.TimeLimit = 10 * time.Second
	cfg.Optimize.ExactDemand = true
	s := NewSession(plan, cfg)

	resolved := s.Resolve([]model.RawDirective{
		{Pattern: "ABC1", Line: model.ListOf("I-L1"), Shift: model.ListOf("2"), Quantity: model.Literal(20)},
	}, nil)
	require.False(t, resolved.HasErrors())

	result, err := s.Optimize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 20.0, result.PreAssign.Scheduled)

	live := s.Snapshot(model.SnapshotLive)
	assert.Equal(t, 80.0, live.ItemTotal("ABC1"))
	assert.Equal(t, 50.0, live.ItemTotal("XYZ1"))
	assert.GreaterOrEqual(t, live.SlotTotal("I-L1", 2), 20.0)
}

func TestSession_OptimizeFailureKeepsLiveTable(t *testing.T) {
	s := newSession(t)
	e := model.NewEntry("J-L1", 1, "XYZ1", 5)
	s.Load(model.NewSchedule([]model.ScheduleEntry{e}), nil)

	_, err := s.Optimize(context.Background(), []model.Request{{
		Pattern:  "ABC1",
		Items:    []string{"ABC1"},
		Lines:    []string{"I-L1"},
		Shifts:   []int{2},
		Quantity: 31,
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNoFeasibleSolution))

	live := s.Snapshot(model.SnapshotLive)
	require.Equal(t, 1, live.Len())
	assert.Equal(t, e.ID, live.Entries[0].ID)
}

func TestSession_EditsAndDiff(t *testing.T) {
	s := newSession(t)
	a := model.NewEntry("I-L1", 1, "ABC1", 50)
	b := model.NewEntry("I-L1", 2, "ABC1", 30)
	s.Load(model.NewSchedule([]model.ScheduleEntry{a, b}), nil)

	// 只校验不修改
	d := s.ValidateEdit(validator.EditRequest{ID: a.ID, Line: "I-L1", Shift: 1, Quantity: 55})
	assert.True(t, d.Accepted, d.Reason)
	got, _ := s.Entry(a.ID)
	assert.Equal(t, 50.0, got.Quantity)

	_, err := s.ApplyEdit(validator.EditRequest{ID: a.ID, Line: "I-L1", Shift: 1, Quantity: 55})
	require.NoError(t, err)

	// 移入已满的班次被拒绝，现行表不变
	d, err = s.ApplyEdit(validator.EditRequest{ID: a.ID, Line: "I-L1", Shift: 2, Quantity: 55})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeEditRejected))
	assert.Equal(t, constraint.TypeSlotCapacity, d.Rule)
	got, _ = s.Entry(a.ID)
	assert.Equal(t, 1, got.Shift)

	_, err = s.Delete(b.ID)
	require.NoError(t, err)

	changes := s.Diff()
	require.Len(t, changes, 2)
	kinds := map[model.ChangeKind]uuid.UUID{}
	for _, c := range changes {
		kinds[c.Kind] = c.ID
	}
	assert.Equal(t, a.ID, kinds[model.ChangeUpdated])
	assert.Equal(t, b.ID, kinds[model.ChangeRemoved])

	// 原始快照不受编辑影响
	assert.Equal(t, 80.0, s.Snapshot(model.SnapshotOriginal).Total())
}

func TestSession_DeleteUnknown(t *testing.T) {
	s := newSession(t)
	_, err := s.Delete(uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSession_ConcurrentEdits(t *testing.T) {
	s := newSession(t)
	e := model.NewEntry("I-L1", 1, "ABC1", 0)
	s.Load(model.NewSchedule([]model.ScheduleEntry{e}), nil)

	// 10 个并发加 10：单写者锁保证累计量不超过产能 60
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ApplyEdit(validator.EditRequest{Kind: constraint.EditAdd, Line: "I-L1", Shift: 1, Item: "ABC1", Quantity: 10})
			_ = s.Audit()
		}()
	}
	wg.Wait()

	live := s.Snapshot(model.SnapshotLive)
	assert.Equal(t, 60.0, live.SlotTotal("I-L1", 1))
	assert.Equal(t, 7, live.Len())
}
