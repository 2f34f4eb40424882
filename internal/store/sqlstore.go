package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullFloat converts a sql.NullFloat64 to a plain float64 (0 if null).
func nullFloat(nf sql.NullFloat64) float64 {
	if nf.Valid {
		return nf.Float64
	}
	return 0
}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .tribunal) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		// Fresh database.
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion1); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion1 {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts or updates by run ID, replacing the verdict rows.
// The whole save runs in one transaction.
func (s *SqlStore) SaveRun(run *Run, verdicts []VerdictRow) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		return errors.New("run has no id")
	}
	if run.StartedAt == "" {
		run.StartedAt = nowUTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", run.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check existing run: %w", err)
	}
	if exists > 0 {
		_, err = tx.Exec(
			`UPDATE runs SET repo_ref=?, doc_ref=?, status=?, overall=?, unscored=?,
			        faults=?, report=?, state=?, finished_at=?
			 WHERE id=?`,
			run.RepoRef, run.DocRef, run.Status, run.Overall, boolInt(run.Unscored),
			run.Faults, run.Report, run.State, run.FinishedAt, run.ID,
		)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
	} else {
		_, err = tx.Exec(
			`INSERT INTO runs(id, repo_ref, doc_ref, status, overall, unscored,
			        faults, report, state, started_at, finished_at)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.RepoRef, run.DocRef, run.Status, run.Overall, boolInt(run.Unscored),
			run.Faults, run.Report, run.State, run.StartedAt, run.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}

	if _, err := tx.Exec("DELETE FROM verdicts WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("clear verdicts: %w", err)
	}
	for _, v := range verdicts {
		_, err := tx.Exec(
			"INSERT INTO verdicts(run_id, criterion_id, final, unscored, dissent) VALUES(?, ?, ?, ?, ?)",
			run.ID, v.CriterionID, v.Final, boolInt(v.Unscored), boolInt(v.Dissent),
		)
		if err != nil {
			return fmt.Errorf("insert verdict %s: %w", v.CriterionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

// GetRun returns the run by ID, or nil if not found.
func (s *SqlStore) GetRun(id string) (*Run, error) {
	var r Run
	var overall sql.NullFloat64
	var unscored int
	var report, finishedAt sql.NullString
	err := s.db.QueryRow(
		`SELECT id, repo_ref, doc_ref, status, overall, unscored, faults,
		        report, state, started_at, finished_at
		 FROM runs WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.RepoRef, &r.DocRef, &r.Status, &overall, &unscored,
		&r.Faults, &report, &r.State, &r.StartedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.Overall = nullFloat(overall)
	r.Unscored = unscored == 1
	r.Report = nullStr(report)
	r.FinishedAt = nullStr(finishedAt)
	return &r, nil
}

// ListRuns returns runs newest-first by start time. The state payload
// is omitted from listings; fetch a single run for the full snapshot.
func (s *SqlStore) ListRuns(limit int) ([]*Run, error) {
	q := `SELECT id, repo_ref, doc_ref, status, overall, unscored, faults,
	             started_at, finished_at
	      FROM runs ORDER BY started_at DESC, id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var list []*Run
	for rows.Next() {
		var r Run
		var overall sql.NullFloat64
		var unscored int
		var finishedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.RepoRef, &r.DocRef, &r.Status, &overall,
			&unscored, &r.Faults, &r.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Overall = nullFloat(overall)
		r.Unscored = unscored == 1
		r.FinishedAt = nullStr(finishedAt)
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return list, nil
}

// ListVerdicts returns the verdict rows of one run ordered by
// criterion ID.
func (s *SqlStore) ListVerdicts(runID string) ([]VerdictRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, criterion_id, final, unscored, dissent
		 FROM verdicts WHERE run_id = ? ORDER BY criterion_id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	var list []VerdictRow
	for rows.Next() {
		var v VerdictRow
		var unscored, dissent int
		if err := rows.Scan(&v.RunID, &v.CriterionID, &v.Final, &unscored, &dissent); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		v.Unscored = unscored == 1
		v.Dissent = dissent == 1
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	return list, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
