package store

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesselpdp/internal/model"
	"vesselpdp/internal/opt"
)

func setupSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "pdp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleInstance(name string) model.Instance {
	return model.Instance{
		Name: name, Nodes: 4, Vehicles: 2, Calls: 3,
		Checksum: "abc123", Source: "% nodes\n4\n",
	}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	in, err := s.SaveInstance(ctx, sampleInstance("small"))
	require.NoError(t, err)
	require.NotEmpty(t, in.ID)
	require.False(t, in.CreatedAt.IsZero())

	got, err := s.GetInstance(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Source, got.Source)
	assert.Equal(t, 3, got.Calls)
	assert.WithinDuration(t, in.CreatedAt, got.CreatedAt, time.Microsecond)

	_, err = s.GetInstance(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ev := model.Evaluation{
		InstanceID: in.ID,
		Solution:   []int{3, 3, 0, 0, 1, 1, 2, 2},
		Feasible:   false,
		Reason:     "incompatible vessel and cargo: vehicle 1 cannot carry call 3",
		Penalty:    3005,
		Cost:       3028,
		Violations: []opt.Violation{
			{Kind: opt.Incompatible, Vehicle: 1, Call: 3, Amount: 3000},
			{Kind: opt.Capacity, Vehicle: 1, Call: 3, Amount: 5},
		},
		VehicleCosts:   []float64{28, 0},
		OutsourcedCost: 3000,
		Strategy:       "manual",
	}
	saved, err := s.SaveEvaluation(ctx, ev)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	back, err := s.GetEvaluation(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Solution, back.Solution)
	assert.Equal(t, ev.Violations, back.Violations)
	assert.Equal(t, ev.VehicleCosts, back.VehicleCosts)
	assert.Equal(t, 3028.0, back.Cost)
	assert.False(t, back.Feasible)
	assert.Equal(t, "manual", back.Strategy)

	_, err = s.SaveEvaluation(ctx, model.Evaluation{InstanceID: "missing", Solution: []int{0, 0}})
	assert.ErrorIs(t, err, ErrNotFound)

	for i := 0; i < 2; i++ {
		_, err := s.SaveEvaluation(ctx, model.Evaluation{InstanceID: in.ID, Solution: []int{0, 0, 1, 1, 2, 2, 3, 3}, Feasible: true, Reason: opt.FeasibleReason, Cost: 6000})
		require.NoError(t, err)
	}
	first, next, err := s.ListEvaluations(ctx, in.ID, "", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotEmpty(t, next)
	rest, next, err := s.ListEvaluations(ctx, in.ID, next, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Empty(t, next)

	seen := map[string]bool{}
	for _, e := range append(first, rest...) {
		seen[e.ID] = true
	}
	assert.Len(t, seen, 3)

	other, err := s.SaveInstance(ctx, sampleInstance("other"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{in.ID, other.ID}, instanceIDs(t, s))

	require.NoError(t, s.DeleteInstance(ctx, in.ID))
	_, err = s.GetInstance(ctx, in.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetEvaluation(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteInstance(ctx, in.ID), ErrNotFound)

	assert.Equal(t, []string{other.ID}, instanceIDs(t, s))
	require.NoError(t, s.DeleteInstance(ctx, other.ID))
}

// exerciseCursor checks that listings are ordered by id and that a cursor
// survives deletion of the record it names.
func exerciseCursor(t *testing.T, s Store) {
	ctx := context.Background()
	var saved []string
	for _, name := range []string{"a", "b", "c"} {
		in, err := s.SaveInstance(ctx, sampleInstance(name))
		require.NoError(t, err)
		saved = append(saved, in.ID)
	}
	ids := instanceIDs(t, s)
	assert.True(t, slices.IsSorted(ids), ids)
	assert.ElementsMatch(t, saved, ids)

	first, next, err := s.ListInstances(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, ids[0], next)
	require.NoError(t, s.DeleteInstance(ctx, next))

	rest, _, err := s.ListInstances(ctx, next, 10)
	require.NoError(t, err)
	var got []string
	for _, in := range rest {
		got = append(got, in.ID)
	}
	assert.Equal(t, ids[1:], got)

	for _, id := range ids[1:] {
		require.NoError(t, s.DeleteInstance(ctx, id))
	}
}

func instanceIDs(t *testing.T, s Store) []string {
	t.Helper()
	var ids []string
	cursor := ""
	for {
		items, next, err := s.ListInstances(context.Background(), cursor, 1)
		require.NoError(t, err)
		for _, in := range items {
			ids = append(ids, in.ID)
		}
		if next == "" {
			return ids
		}
		cursor = next
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)
	exerciseCursor(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s := setupSQLite(t)
	exerciseStore(t, s)
	exerciseCursor(t, s)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "pdp.db")
	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	in, err := s.SaveInstance(ctx, sampleInstance("persisted"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetInstance(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Name)
	assert.Equal(t, path, s.Path())
}

func TestSQLiteUpsertInstance(t *testing.T) {
	ctx := context.Background()
	s := setupSQLite(t)
	in, err := s.SaveInstance(ctx, sampleInstance("before"))
	require.NoError(t, err)
	in.Name = "after"
	_, err = s.SaveInstance(ctx, in)
	require.NoError(t, err)
	got, err := s.GetInstance(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
}

func TestQuestionMarks(t *testing.T) {
	assert.Equal(t, "SELECT a FROM t WHERE x=? AND y > ? LIMIT ?",
		questionMarks("SELECT a FROM t WHERE x=$1 AND y > $2 LIMIT $3"))
}

func TestPage(t *testing.T) {
	ids := []string{"a", "b", "c"}
	got, next := page(ids, "", 2)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, "b", next)
	got, next = page(ids, next, 2)
	assert.Equal(t, []string{"c"}, got)
	assert.Empty(t, next)
	got, next = page(ids, "", 3)
	assert.Len(t, got, 3)
	assert.Empty(t, next)

	got, next = page([]string{"a", "c", "d"}, "b", 1)
	assert.Equal(t, []string{"c"}, got)
	assert.Equal(t, "c", next)
	got, _ = page(ids, "z", 2)
	assert.Empty(t, got)
}
