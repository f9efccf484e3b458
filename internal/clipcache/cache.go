package clipcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"storyforge/internal/logging"
	"storyforge/internal/sfml"
	"storyforge/internal/sqlstore"
)

//go:embed schema.sql
var schemaSQL string

const (
	schemaVersion  = 1
	lockRetryDelay = 50 * time.Millisecond
)

// Entry is one cached clip.
type Entry struct {
	Key        string        `json:"key"`
	Path       string        `json:"path"`
	Duration   time.Duration `json:"duration"`
	SampleRate int           `json:"sample_rate"`
	Bytes      int64         `json:"bytes"`
	Engine     string        `json:"engine"`
	Voice      string        `json:"voice"`
	CreatedAt  time.Time     `json:"created_at"`
	LastUsedAt time.Time     `json:"last_used_at"`
}

// Stats describes current cache usage.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"total_bytes"`
	MaxBytes   int64  `json:"max_bytes"`
}

// PruneResult reports what Prune removed.
type PruneResult struct {
	Removed    int   `json:"removed"`
	FreedBytes int64 `json:"freed_bytes"`
}

// Produced is what a create callback reports about the file it wrote.
type Produced struct {
	Duration   time.Duration
	SampleRate int
	Engine     string
	Voice      string
}

// Cache is a content-addressed clip store.
type Cache struct {
	db       *sqlstore.DB
	dir      string
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

// Open opens (or creates) the cache rooted at dir. maxMiB <= 0 disables
// size-based pruning.
func Open(ctx context.Context, dir string, maxMiB int, logger *slog.Logger) (*Cache, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("clipcache: empty cache dir")
	}
	db, err := sqlstore.Open(ctx, filepath.Join(dir, "index.db"), sqlstore.Schema{
		Name:    "clip cache",
		SQL:     schemaSQL,
		Version: schemaVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("clipcache: %w", err)
	}
	var maxBytes int64
	if maxMiB > 0 {
		maxBytes = int64(maxMiB) * 1024 * 1024
	}
	return &Cache{
		db:       db,
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logging.NewComponentLogger(logger, "clipcache"),
		now:      time.Now,
	}, nil
}

// Close closes the index.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Key derives the cache key of one synthesis call.
func Key(engine string, voice sfml.VoiceID, controls sfml.Controls, text string) string {
	h := sha256.New()
	for _, part := range []string{
		engine,
		string(voice),
		string(controls.Delivery),
		strconv.FormatFloat(controls.Rate, 'g', -1, 64),
		strconv.FormatFloat(controls.Pitch, 'g', -1, 64),
		text,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) clipPath(key string) string {
	return filepath.Join(c.dir, key[:2], key+".wav")
}

func (c *Cache) lockPath(key string) string {
	return filepath.Join(c.dir, "locks", key+".lock")
}

// Lookup returns the entry for key. An index row whose file has vanished is
// dropped and reported as a miss.
func (c *Cache) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	entry, ok, err := c.get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	if _, statErr := os.Stat(entry.Path); statErr != nil {
		if _, err := c.db.ExecRetry(ctx, "DELETE FROM clips WHERE key = ?", key); err != nil {
			return Entry{}, false, fmt.Errorf("clipcache: drop stale entry: %w", err)
		}
		c.logger.WarnContext(ctx, "cached clip missing on disk; dropped index row",
			logging.String("key", key),
			logging.String("path", entry.Path),
			logging.String(logging.FieldEventType, "cache_stale"),
		)
		return Entry{}, false, nil
	}
	now := c.now()
	if _, err := c.db.ExecRetry(ctx, "UPDATE clips SET last_used_at = ? WHERE key = ?", sqlstore.FormatTime(now), key); err != nil {
		return Entry{}, false, fmt.Errorf("clipcache: touch entry: %w", err)
	}
	entry.LastUsedAt = now
	return entry, true, nil
}

func (c *Cache) get(ctx context.Context, key string) (Entry, bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT key, path, duration_ns, sample_rate, bytes, engine, voice, created_at, last_used_at
		FROM clips WHERE key = ?`, key)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("clipcache: lookup %s: %w", key, err)
	}
	return entry, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry             Entry
		durationNS        int64
		created, lastUsed sql.NullString
	)
	if err := row.Scan(&entry.Key, &entry.Path, &durationNS, &entry.SampleRate, &entry.Bytes,
		&entry.Engine, &entry.Voice, &created, &lastUsed); err != nil {
		return Entry{}, err
	}
	entry.Duration = time.Duration(durationNS)
	entry.CreatedAt = sqlstore.ParseTime(created)
	entry.LastUsedAt = sqlstore.ParseTime(lastUsed)
	return entry, nil
}

// GetOrCreate returns the cached clip for key, calling create to produce it on
// a miss. create receives the path it must write. Only one caller per key runs
// create at a time; others wait on the key's lock and then reuse the result.
// The boolean reports a cache hit.
func (c *Cache) GetOrCreate(ctx context.Context, key string, create func(ctx context.Context, out string) (Produced, error)) (Entry, bool, error) {
	if len(key) < 2 {
		return Entry{}, false, fmt.Errorf("clipcache: invalid key %q", key)
	}
	if entry, ok, err := c.Lookup(ctx, key); err != nil || ok {
		return entry, ok, err
	}

	lockPath := c.lockPath(key)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return Entry{}, false, fmt.Errorf("clipcache: create lock dir: %w", err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Entry{}, false, ctxErr
		}
		return Entry{}, false, fmt.Errorf("clipcache: lock %s: %w", key, err)
	}
	if !locked {
		return Entry{}, false, fmt.Errorf("clipcache: could not lock %s", key)
	}
	defer func() { _ = lock.Unlock() }()

	// Another writer may have finished while we waited.
	if entry, ok, err := c.Lookup(ctx, key); err != nil || ok {
		return entry, ok, err
	}

	final := c.clipPath(key)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return Entry{}, false, fmt.Errorf("clipcache: create clip dir: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(final), fmt.Sprintf(".%s.%s.wav", key, uuid.NewString()))
	produced, err := create(ctx, tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return Entry{}, false, err
	}
	info, err := os.Stat(tmp)
	if err != nil {
		return Entry{}, false, fmt.Errorf("clipcache: created clip missing: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return Entry{}, false, fmt.Errorf("clipcache: store clip: %w", err)
	}

	now := c.now()
	entry := Entry{
		Key:        key,
		Path:       final,
		Duration:   produced.Duration,
		SampleRate: produced.SampleRate,
		Bytes:      info.Size(),
		Engine:     produced.Engine,
		Voice:      produced.Voice,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if _, err := c.db.ExecRetry(ctx, `INSERT OR REPLACE INTO clips
		(key, path, duration_ns, sample_rate, bytes, engine, voice, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Key, entry.Path, int64(entry.Duration), entry.SampleRate, entry.Bytes,
		entry.Engine, entry.Voice, sqlstore.FormatTime(now), sqlstore.FormatTime(now),
	); err != nil {
		return Entry{}, false, fmt.Errorf("clipcache: index clip: %w", err)
	}
	c.logger.DebugContext(ctx, "cached synthesized clip",
		logging.String("key", key),
		logging.Duration("duration", entry.Duration),
		logging.Int64("bytes", entry.Bytes),
	)
	return entry, false, nil
}

// Stats returns entry count and total size.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Dir: c.dir, MaxBytes: c.maxBytes}
	row := c.db.QueryRowContext(ctx, "SELECT COUNT(1), COALESCE(SUM(bytes), 0) FROM clips")
	if err := row.Scan(&stats.Entries, &stats.TotalBytes); err != nil {
		return Stats{}, fmt.Errorf("clipcache: stats: %w", err)
	}
	return stats, nil
}

// Entries lists cached clips, most recently used first.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT key, path, duration_ns, sample_rate, bytes, engine, voice, created_at, last_used_at
		FROM clips ORDER BY last_used_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("clipcache: list: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("clipcache: scan: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune evicts least recently used clips until the cache fits its size
// limit. A clip whose key is locked by an active writer is skipped.
func (c *Cache) Prune(ctx context.Context) (PruneResult, error) {
	if c.maxBytes <= 0 {
		return PruneResult{}, nil
	}
	return c.pruneTo(ctx, c.maxBytes)
}

// Clear removes every clip.
func (c *Cache) Clear(ctx context.Context) (PruneResult, error) {
	return c.pruneTo(ctx, 0)
}

func (c *Cache) pruneTo(ctx context.Context, limit int64) (PruneResult, error) {
	var result PruneResult
	stats, err := c.Stats(ctx)
	if err != nil {
		return result, err
	}
	if stats.TotalBytes <= limit {
		return result, nil
	}
	entries, err := c.Entries(ctx)
	if err != nil {
		return result, err
	}
	total := stats.TotalBytes
	for i := len(entries) - 1; i >= 0 && total > limit; i-- {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry := entries[i]
		lock := flock.New(c.lockPath(entry.Key))
		locked, err := lock.TryLock()
		if err != nil || !locked {
			continue
		}
		removeErr := os.Remove(entry.Path)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			_ = lock.Unlock()
			return result, fmt.Errorf("clipcache: remove %s: %w", entry.Path, removeErr)
		}
		_, err = c.db.ExecRetry(ctx, "DELETE FROM clips WHERE key = ?", entry.Key)
		_ = lock.Unlock()
		if err != nil {
			return result, fmt.Errorf("clipcache: delete index row: %w", err)
		}
		total -= entry.Bytes
		result.Removed++
		result.FreedBytes += entry.Bytes
	}
	if result.Removed > 0 {
		c.logger.InfoContext(ctx, "pruned clip cache",
			logging.Int("removed", result.Removed),
			logging.Int64("freed_bytes", result.FreedBytes),
			logging.Int64("total_bytes", total),
		)
	}
	return result, nil
}
