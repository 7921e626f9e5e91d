package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/internal/config"
	"github.com/paiban/lineplan/internal/database"
	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
)

func newRepo(t *testing.T) (*ScheduleRepository, *model.Plan) {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	plan := model.NewPlan("repo", model.DefaultNamingRule(), model.DefaultHorizon())
	repo := NewScheduleRepository(db)
	_, err = repo.SavePlan(context.Background(), plan, "name: repo\n")
	require.NoError(t, err)
	return repo, plan
}

func entry(line string, shift int, item string, qty float64) model.ScheduleEntry {
	e := model.NewEntry(line, shift, item, qty)
	e.Building = "I"
	e.Project = "ABC"
	return e
}

func TestScheduleRepository_SavePlanIsIdempotent(t *testing.T) {
	repo, plan := newRepo(t)
	ctx := context.Background()

	plan.Name = "renamed"
	_, err := repo.SavePlan(ctx, plan, "name: renamed\n")
	require.NoError(t, err)

	rec, err := repo.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", rec.Name)
	assert.Equal(t, plan.Horizon.Size(), rec.Horizon)

	_, err = repo.GetPlan(ctx, uuid.New())
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestScheduleRepository_ReplaceAndList(t *testing.T) {
	repo, plan := newRepo(t)
	ctx := context.Background()

	a := entry("I-L1", 2, "ABC1", 10)
	b := entry("I-L1", 1, "ABC1", 20)
	b.Pinned = true
	require.NoError(t, repo.ReplaceEntries(ctx, plan.ID, model.SnapshotLive, []model.ScheduleEntry{a, b}))
	require.NoError(t, repo.ReplaceEntries(ctx, plan.ID, model.SnapshotOriginal, []model.ScheduleEntry{a}))

	live, err := repo.ListEntries(ctx, plan.ID, model.SnapshotLive)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, b, live[0], "按班次排序")
	assert.Equal(t, a, live[1])

	// 再次替换只影响同一快照
	require.NoError(t, repo.ReplaceEntries(ctx, plan.ID, model.SnapshotLive, nil))
	live, err = repo.ListEntries(ctx, plan.ID, model.SnapshotLive)
	require.NoError(t, err)
	assert.Empty(t, live)

	original, err := repo.ListEntries(ctx, plan.ID, model.SnapshotOriginal)
	require.NoError(t, err)
	assert.Len(t, original, 1)
}

func TestScheduleRepository_UpsertAndDelete(t *testing.T) {
	repo, plan := newRepo(t)
	ctx := context.Background()

	e := entry("I-L1", 1, "ABC1", 10)
	require.NoError(t, repo.UpsertEntry(ctx, plan.ID, model.SnapshotLive, e))

	e.Shift = 3
	e.Quantity = 15
	require.NoError(t, repo.UpsertEntry(ctx, plan.ID, model.SnapshotLive, e))

	got, err := repo.ListEntries(ctx, plan.ID, model.SnapshotLive)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Shift)
	assert.Equal(t, 15.0, got[0].Quantity)

	require.NoError(t, repo.DeleteEntry(ctx, plan.ID, model.SnapshotLive, e.ID))
	err = repo.DeleteEntry(ctx, plan.ID, model.SnapshotLive, e.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", database.Rebind("postgres", q))
	assert.Equal(t, q, database.Rebind("sqlite", q))
}
