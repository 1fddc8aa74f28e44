package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "plumbers", "Parramatta, Australia", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "plumbers", "Parramatta, Australia")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, business_type, location, status, outcome, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecords_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("run-1", "scraped", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	set := &model.RecordSet{Records: []model.BusinessRecord{{ID: "1", CompanyName: "Acme"}}}
	err := s.SaveRecords(context.Background(), "run-1", "scraped", set)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadRecords(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	records := []byte(`[{"id":"1","company_name":"Acme","address":""}]`)
	mock.ExpectQuery(`SELECT records FROM record_snapshots`).
		WithArgs("run-1", "scraped").
		WillReturnRows(pgxmock.NewRows([]string{"records"}).AddRow(records))

	set, err := s.LoadRecords(context.Background(), "run-1", "scraped")
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "Acme", set.Records[0].CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestReportMeta_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT filename, size_bytes, created_at FROM reports`).
		WillReturnError(pgx.ErrNoRows)

	meta, err := s.LatestReportMeta(context.Background())
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestReportMeta(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Now().UTC()
	mock.ExpectQuery(`SELECT filename, size_bytes, created_at FROM reports`).
		WillReturnRows(pgxmock.NewRows([]string{"filename", "size_bytes", "created_at"}).
			AddRow("leads.csv", int64(1234), created))

	meta, err := s.LatestReportMeta(context.Background())
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "leads.csv", meta.Filename)
	assert.Equal(t, int64(1234), meta.SizeBytes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClearReportMeta(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM reports`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, s.ClearReportMeta(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
