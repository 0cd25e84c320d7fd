package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per invocation of the enrich command
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    input_path TEXT NOT NULL,
    output_path TEXT NOT NULL,
    identifier_field TEXT NOT NULL,
    url_template TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running',  -- running, completed, failed
    row_count INTEGER NOT NULL DEFAULT 0,
    duration_seconds REAL,
    error_message TEXT,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

-- Fetch accesses: one row per identifier fetched during a run
CREATE TABLE IF NOT EXISTS fetch_accesses (
    access_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    identifier TEXT NOT NULL,
    url TEXT NOT NULL,
    outcome TEXT NOT NULL,       -- ok, download_failed, not_found
    status_code INTEGER,         -- NULL when no HTTP response was received
    attempts INTEGER NOT NULL DEFAULT 0,
    language TEXT,               -- ISO 639-1, only for ok outcomes with detection enabled
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_accesses_run ON fetch_accesses(run_id);
CREATE INDEX IF NOT EXISTS idx_accesses_identifier ON fetch_accesses(identifier);
CREATE INDEX IF NOT EXISTS idx_accesses_outcome ON fetch_accesses(outcome);
`
