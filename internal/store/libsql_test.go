package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRun(id string, dir schema.Direction) *ConversionRun {
	return &ConversionRun{
		ID:           id,
		Direction:    dir,
		WorkflowName: "Fetch and store",
		NodeCount:    3,
		FlagCount:    1,
		NeedsReview:  true,
		Report: &schema.ConversionReport{
			Direction: dir,
			Nodes: []schema.NodeReport{
				{Node: "Fetch", SourceType: "flow-nodes.httpRequest", Status: schema.NodeStatusFull},
			},
		},
		Duration: 42 * time.Millisecond,
	}
}

func TestLibSQLStore_SaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", schema.GraphToScenario)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, schema.GraphToScenario, got.Direction)
	assert.Equal(t, "Fetch and store", got.WorkflowName)
	assert.Equal(t, 3, got.NodeCount)
	assert.Equal(t, 1, got.FlagCount)
	assert.True(t, got.NeedsReview)
	assert.Equal(t, 42*time.Millisecond, got.Duration)
	require.NotNil(t, got.Report)
	require.Len(t, got.Report.Nodes, 1)
	assert.Equal(t, "Fetch", got.Report.Nodes[0].Node)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestLibSQLStore_SaveRun_RequiresID(t *testing.T) {
	s := newTestStore(t)

	require.Error(t, s.SaveRun(context.Background(), &ConversionRun{}))
	require.Error(t, s.SaveRun(context.Background(), nil))
}

func TestLibSQLStore_GetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	var cerr *schema.ConvertError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, schema.ErrCodeNotFound, cerr.Code)
}

func TestLibSQLStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r1 := sampleRun("run-1", schema.GraphToScenario)
	r1.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	r2 := sampleRun("run-2", schema.ScenarioToGraph)
	r2.NeedsReview = false
	r2.FlagCount = 0
	r2.CreatedAt = time.Now().UTC().Add(-1 * time.Hour)
	r3 := sampleRun("run-3", schema.GraphToScenario)
	r3.CreatedAt = time.Now().UTC()

	for _, r := range []*ConversionRun{r1, r2, r3} {
		require.NoError(t, s.SaveRun(ctx, r))
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "run-3", runs[0].ID)
		assert.Equal(t, "run-1", runs[2].ID)
	})

	t.Run("filter by direction", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, RunFilter{Direction: schema.ScenarioToGraph})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-2", runs[0].ID)
	})

	t.Run("filter by review state", func(t *testing.T) {
		needsReview := true
		runs, err := s.ListRuns(ctx, RunFilter{NeedsReview: &needsReview})
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-3", runs[0].ID)
	})
}

func TestLibSQLStore_DeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1", schema.GraphToScenario)))
	require.NoError(t, s.DeleteRun(ctx, "run-1"))

	_, err := s.GetRun(ctx, "run-1")
	require.Error(t, err)

	err = s.DeleteRun(ctx, "run-1")
	require.Error(t, err)
}

func TestLibSQLStore_MigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestLibSQLStore_MigrationsRecordedOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	var count int
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE filename = ?`, "001_initial_schema.sql")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLibSQLStore_NilReportRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", schema.GraphToScenario)
	run.Report = nil
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, got.Report)
}
