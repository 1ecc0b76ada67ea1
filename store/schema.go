package store

// schemaSQL is the base DDL. Later changes live in migrations.
const schemaSQL = `
-- One row per tool invocation
CREATE TABLE IF NOT EXISTS conversions (
    id TEXT PRIMARY KEY,
    tool TEXT NOT NULL,
    filename TEXT NOT NULL DEFAULT '',
    input_bytes INTEGER NOT NULL DEFAULT 0,
    output_bytes INTEGER NOT NULL DEFAULT 0,
    pages INTEGER NOT NULL DEFAULT 0,
    mode TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversions_created ON conversions(created_at);
`
