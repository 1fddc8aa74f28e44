package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	business_type TEXT NOT NULL,
	location      TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	outcome       TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS record_snapshots (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	stage    TEXT NOT NULL,
	records  TEXT NOT NULL,
	saved_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, stage)
);

CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	filename   TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, businessType, location string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, business_type, location, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, businessType, location, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: update run status")
}

func (s *SQLiteStore) UpdateRunOutcome(ctx context.Context, runID string, outcome *model.Outcome) error {
	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE runs SET outcome = ?, updated_at = ? WHERE id = ?`,
		string(outcomeJSON), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: update run outcome")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, business_type, location, status, outcome, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)

	var run model.Run
	var status string
	var outcomeJSON sql.NullString
	if err := row.Scan(&run.ID, &run.BusinessType, &run.Location, &status, &outcomeJSON, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	run.Status = model.RunStatus(status)

	if outcomeJSON.Valid && outcomeJSON.String != "" {
		var outcome model.Outcome
		if err := json.Unmarshal([]byte(outcomeJSON.String), &outcome); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
		}
		run.Outcome = &outcome
	}

	return &run, nil
}

func (s *SQLiteStore) SaveRecords(ctx context.Context, runID, stage string, set *model.RecordSet) error {
	recordsJSON, err := json.Marshal(set.Records)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal records")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO record_snapshots (run_id, stage, records, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id, stage) DO UPDATE SET records = excluded.records, saved_at = excluded.saved_at`,
		runID, stage, string(recordsJSON), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save records")
}

func (s *SQLiteStore) LoadRecords(ctx context.Context, runID, stage string) (*model.RecordSet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT records FROM record_snapshots WHERE run_id = ? AND stage = ?`,
		runID, stage,
	)

	var recordsJSON string
	if err := row.Scan(&recordsJSON); err != nil {
		return nil, eris.Wrap(err, "sqlite: load records")
	}

	var records []model.BusinessRecord
	if err := json.Unmarshal([]byte(recordsJSON), &records); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal records")
	}
	return &model.RecordSet{Records: records}, nil
}

func (s *SQLiteStore) SaveReportMeta(ctx context.Context, runID string, meta model.ReportMeta) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, run_id, filename, size_bytes, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, meta.Filename, meta.SizeBytes, meta.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: save report meta")
}

func (s *SQLiteStore) LatestReportMeta(ctx context.Context) (*model.ReportMeta, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT filename, size_bytes, created_at FROM reports ORDER BY created_at DESC LIMIT 1`,
	)

	var meta model.ReportMeta
	if err := row.Scan(&meta.Filename, &meta.SizeBytes, &meta.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: latest report meta")
	}
	return &meta, nil
}

func (s *SQLiteStore) ClearReportMeta(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reports`)
	return eris.Wrap(err, "sqlite: clear report meta")
}
