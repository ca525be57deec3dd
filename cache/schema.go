package cache

// embeddedSchema contains the SQLite database schema
const embeddedSchema = `
-- Render cache: one row per rendered video
CREATE TABLE IF NOT EXISTS renders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cache_key TEXT NOT NULL UNIQUE,
    run_id TEXT NOT NULL,
    input TEXT NOT NULL,
    output TEXT NOT NULL,
    backend TEXT NOT NULL,

    -- Metrics
    frames INTEGER DEFAULT 0,
    fps INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    size_bytes INTEGER DEFAULT 0,

    -- Timestamps
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    accessed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_renders_created_at ON renders(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_renders_output ON renders(output);
CREATE INDEX IF NOT EXISTS idx_renders_backend ON renders(backend);
`
