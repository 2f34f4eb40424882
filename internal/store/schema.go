package store

// schemaVersion1 is the current schema.
const schemaVersion1 = 1

var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	repo_ref     TEXT NOT NULL,
	doc_ref      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	overall      REAL,
	unscored     INTEGER NOT NULL DEFAULT 0,
	faults       INTEGER NOT NULL DEFAULT 0,
	report       TEXT,
	state        BLOB,
	started_at   TEXT NOT NULL,
	finished_at  TEXT
);

CREATE TABLE IF NOT EXISTS verdicts (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	criterion_id TEXT NOT NULL,
	final        INTEGER NOT NULL,
	unscored     INTEGER NOT NULL DEFAULT 0,
	dissent      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(run_id, criterion_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
