// Package cache records rendered videos in SQLite so that re-rendering an
// unchanged input with the same settings can be skipped.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flanksource/commons/logger"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrCacheDisabled indicates caching is disabled
	ErrCacheDisabled = errors.New("caching is disabled")
	// ErrNotFound indicates the entry was not found in cache
	ErrNotFound = errors.New("cache entry not found")
)

// Config holds cache configuration
type Config struct {
	DBPath  string // Database file path (default: ~/.cache/animator.db)
	NoCache bool   // Disable caching
}

// Entry is one rendered video
type Entry struct {
	Key        string
	RunID      string
	Input      string
	Output     string
	Backend    string
	ID         int64
	DurationMS int64
	SizeBytes  int64
	CreatedAt  time.Time
	AccessedAt time.Time
	Frames     int
	FPS        int
}

// StatsEntry aggregates renders per backend
type StatsEntry struct {
	Backend     string
	Renders     int64
	TotalFrames int64
	AvgDuration time.Duration
	LastRender  time.Time
}

// Cache manages the render history in SQLite
type Cache struct {
	db     *sql.DB
	config Config
}

// DefaultPath is the database used when Config.DBPath is empty
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cache", "animator.db"), nil
}

// New creates a new cache instance
func New(config Config) (*Cache, error) {
	if config.DBPath == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		config.DBPath = path
	}

	// Ensure cache directory exists
	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(embeddedSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Cache{db: db, config: config}, nil
}

// Path returns the database file
func (c *Cache) Path() string {
	return c.config.DBPath
}

// Close closes the database connection
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Key identifies a render of input with the settings described by fingerprint
func Key(input []byte, fingerprint string) string {
	h := sha256.New()
	h.Write(input)
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return fmt.Sprintf("%x", h.Sum(nil))
}

const selectEntry = `
	SELECT id, cache_key, run_id, input, output, backend,
	       frames, fps, duration_ms, size_bytes, created_at, accessed_at
	FROM renders`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Key, &e.RunID, &e.Input, &e.Output, &e.Backend,
		&e.Frames, &e.FPS, &e.DurationMS, &e.SizeBytes, &e.CreatedAt, &e.AccessedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns the render recorded under key. Entries whose output file no
// longer exists are misses.
func (c *Cache) Get(key string) (*Entry, error) {
	if c.config.NoCache {
		return nil, ErrCacheDisabled
	}

	entry, err := scanEntry(c.db.QueryRow(selectEntry+" WHERE cache_key = ?", key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	if _, err := os.Stat(entry.Output); err != nil {
		logger.Debugf("Cached output %s is gone, ignoring entry", entry.Output)
		return nil, ErrNotFound
	}

	_, _ = c.db.Exec("UPDATE renders SET accessed_at = CURRENT_TIMESTAMP WHERE id = ?", entry.ID)
	logger.Debugf("Cache hit for %s (run %s)", entry.Input, entry.RunID)
	return entry, nil
}

// Set records a render, replacing any previous render with the same key
func (c *Cache) Set(entry *Entry) error {
	if c.config.NoCache {
		return nil
	}
	if entry.Key == "" {
		return errors.New("cache entry has no key")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT OR REPLACE INTO renders (
			cache_key, run_id, input, output, backend,
			frames, fps, duration_ms, size_bytes, created_at, accessed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := c.db.Exec(query,
		entry.Key, entry.RunID, entry.Input, entry.Output, entry.Backend,
		entry.Frames, entry.FPS, entry.DurationMS, entry.SizeBytes,
		entry.CreatedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	logger.Debugf("Cached render %s -> %s (%d frames)", entry.Input, entry.Output, entry.Frames)
	return nil
}

// History returns the most recent renders, newest first. limit <= 0 returns all.
func (c *Cache) History(limit int) ([]Entry, error) {
	query := selectEntry + " ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Stats aggregates the history per backend
func (c *Cache) Stats() ([]StatsEntry, error) {
	rows, err := c.db.Query(`
		SELECT backend, COUNT(*), COALESCE(SUM(frames), 0), COALESCE(AVG(duration_ms), 0), MAX(created_at)
		FROM renders
		GROUP BY backend
		ORDER BY COUNT(*) DESC, backend`)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	defer rows.Close()

	var stats []StatsEntry
	for rows.Next() {
		var s StatsEntry
		var avgMS float64
		var last string
		if err := rows.Scan(&s.Backend, &s.Renders, &s.TotalFrames, &avgMS, &last); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		s.AvgDuration = time.Duration(avgMS) * time.Millisecond
		s.LastRender = parseTime(last)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// parseTime reads the aggregate timestamps SQLite returns as text
func parseTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clear removes all entries and returns how many were removed
func (c *Cache) Clear() (int64, error) {
	result, err := c.db.Exec("DELETE FROM renders")
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	rows, _ := result.RowsAffected()
	logger.Debugf("Cleared %d cache entries", rows)
	return rows, nil
}
