package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to the given database URL with pool tuning suited to
// the pipeline's write pattern: a handful of stage-boundary writers.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	business_type TEXT NOT NULL,
	location      TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	outcome       JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS record_snapshots (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	stage    TEXT NOT NULL,
	records  JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, stage)
);

CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	filename   TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, businessType, location string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, business_type, location, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, businessType, location, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:           id,
		BusinessType: businessType,
		Location:     location,
		Status:       model.RunStatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: update run status")
}

func (s *PostgresStore) UpdateRunOutcome(ctx context.Context, runID string, outcome *model.Outcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE runs SET outcome = $1, updated_at = $2 WHERE id = $3`,
		outcomeJSON, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: update run outcome")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, business_type, location, status, outcome, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)

	var run model.Run
	var status string
	var outcomeJSON []byte
	if err := row.Scan(&run.ID, &run.BusinessType, &run.Location, &status, &outcomeJSON, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	run.Status = model.RunStatus(status)

	if len(outcomeJSON) > 0 {
		var outcome model.Outcome
		if err := json.Unmarshal(outcomeJSON, &outcome); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal outcome")
		}
		run.Outcome = &outcome
	}

	return &run, nil
}

func (s *PostgresStore) SaveRecords(ctx context.Context, runID, stage string, set *model.RecordSet) error {
	recordsJSON, err := json.Marshal(set.Records)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal records")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO record_snapshots (run_id, stage, records, saved_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, stage) DO UPDATE SET records = EXCLUDED.records, saved_at = EXCLUDED.saved_at`,
		runID, stage, recordsJSON, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save records")
}

func (s *PostgresStore) LoadRecords(ctx context.Context, runID, stage string) (*model.RecordSet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT records FROM record_snapshots WHERE run_id = $1 AND stage = $2`,
		runID, stage,
	)

	var recordsJSON []byte
	if err := row.Scan(&recordsJSON); err != nil {
		return nil, eris.Wrap(err, "postgres: load records")
	}

	var records []model.BusinessRecord
	if err := json.Unmarshal(recordsJSON, &records); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal records")
	}
	return &model.RecordSet{Records: records}, nil
}

func (s *PostgresStore) SaveReportMeta(ctx context.Context, runID string, meta model.ReportMeta) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (id, run_id, filename, size_bytes, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), runID, meta.Filename, meta.SizeBytes, meta.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: save report meta")
}

func (s *PostgresStore) LatestReportMeta(ctx context.Context) (*model.ReportMeta, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT filename, size_bytes, created_at FROM reports ORDER BY created_at DESC LIMIT 1`,
	)

	var meta model.ReportMeta
	if err := row.Scan(&meta.Filename, &meta.SizeBytes, &meta.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest report meta")
	}
	return &meta, nil
}

func (s *PostgresStore) ClearReportMeta(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reports`)
	return eris.Wrap(err, "postgres: clear report meta")
}
