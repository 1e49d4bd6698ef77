package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/xlconsolidate/normalize"
)

func open(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), DefaultPath))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(run uuid.UUID, source, concept, grade, gender string, v float64) normalize.Record {
	return normalize.Record{
		RunID:   run.String(),
		Source:  source,
		Schema:  "ESC2_MOVIMIENTOS",
		Concept: concept,
		Grade:   grade,
		Gender:  gender,
		Value:   v,
		Type:    normalize.Movement,
	}
}

func TestSaveAndTotals(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	run := uuid.New()

	require.NoError(t, s.Save(ctx, []normalize.Record{
		record(run, "a.xlsx", "INSCRIPCIÓN", "1RO", "H", 20),
		record(run, "a.xlsx", "INSCRIPCIÓN", "1RO", "M", 21),
		record(run, "b.xlsx", "INSCRIPCIÓN", "1RO", "H", 5),
		record(run, "b.xlsx", "BAJAS", "2DO", "M", 1),
	}))
	require.NoError(t, s.Save(ctx, []normalize.Record{record(uuid.New(), "c.xlsx", "INSCRIPCIÓN", "1RO", "H", 100)}))

	totals, err := s.Totals(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, []Total{
		{Concept: "INSCRIPCIÓN", Grade: "1RO", Gender: "H", Total: 25},
		{Concept: "INSCRIPCIÓN", Grade: "1RO", Gender: "M", Total: 21},
		{Concept: "BAJAS", Grade: "2DO", Gender: "M", Total: 1},
	}, totals)

	n, err := s.Count(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, Run{RunID: run.String(), Sources: 2, Records: 4, Total: 47}, runs[1])
}

func TestSave_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	run := uuid.New()

	err := s.Save(ctx, []normalize.Record{
		record(run, "a.xlsx", "INSCRIPCIÓN", "1RO", "H", 20),
		record(run, "a.xlsx", "INSCRIPCIÓN", "1RO", "X", 21),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert record 1")

	n, err := s.Count(ctx, run)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSave_Empty(t *testing.T) {
	s := open(t)
	assert.NoError(t, s.Save(context.Background(), nil))
	totals, err := s.Totals(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "x.db")
	run := uuid.New()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, []normalize.Record{record(run, "a.xlsx", "GRUPOS", "3RO", "H", 2)}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.Error(t, err)
}
