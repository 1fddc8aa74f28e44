package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "plumbers", "Parramatta, Australia")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusScraping))

	outcome := &model.Outcome{Kind: model.OutcomeSuccess, Message: "leads generated", LeadCount: 12}
	require.NoError(t, s.UpdateRunOutcome(ctx, run.ID, outcome))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "plumbers", got.BusinessType)
	assert.Equal(t, model.RunStatusScraping, got.Status)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, 12, got.Outcome.LeadCount)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
}

func TestSQLite_RecordSnapshots_Upsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "cafes", "Bondi, Australia")
	require.NoError(t, err)

	first := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "Acme"},
		{ID: "2", CompanyName: "Bravo"},
	}}
	require.NoError(t, s.SaveRecords(ctx, run.ID, "scraped", first))

	// Overwrite the same stage with a smaller set.
	second := &model.RecordSet{Records: []model.BusinessRecord{
		{ID: "1", CompanyName: "Acme"},
	}}
	require.NoError(t, s.SaveRecords(ctx, run.ID, "scraped", second))

	got, err := s.LoadRecords(ctx, run.ID, "scraped")
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "Acme", got.Records[0].CompanyName)
}

func TestSQLite_ReportMeta(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "cafes", "Bondi, Australia")
	require.NoError(t, err)

	none, err := s.LatestReportMeta(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	older := model.ReportMeta{Filename: "old.csv", SizeBytes: 100, CreatedAt: time.Now().Add(-time.Hour)}
	newer := model.ReportMeta{Filename: "new.csv", SizeBytes: 200, CreatedAt: time.Now()}
	require.NoError(t, s.SaveReportMeta(ctx, run.ID, older))
	require.NoError(t, s.SaveReportMeta(ctx, run.ID, newer))

	latest, err := s.LatestReportMeta(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "new.csv", latest.Filename)
	assert.Equal(t, int64(200), latest.SizeBytes)

	require.NoError(t, s.ClearReportMeta(ctx))
	cleared, err := s.LatestReportMeta(ctx)
	require.NoError(t, err)
	assert.Nil(t, cleared)
}
