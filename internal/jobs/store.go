package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyforge/internal/services"
	"storyforge/internal/sqlstore"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

// ErrInvalidTransition reports a state change the job's current state forbids.
var ErrInvalidTransition = errors.New("invalid job state transition")

// ErrAmbiguousID reports an id prefix matching several jobs.
var ErrAmbiguousID = errors.New("ambiguous job id")

const jobColumns = `id, title, source_path, state, total_segments, segments_done, output_path,
	error_kind, error_message, created_at, updated_at, started_at, finished_at`

// Store manages render jobs.
type Store struct {
	db  *sqlstore.DB
	now func() time.Time
}

// Open initializes or connects to the job database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlstore.Open(ctx, path, sqlstore.Schema{Name: "jobs", SQL: schemaSQL, Version: schemaVersion})
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a queued job for sourcePath.
func (s *Store) Create(ctx context.Context, title, sourcePath string) (*Job, error) {
	id := uuid.NewString()
	timestamp := sqlstore.FormatTime(s.now())
	if _, err := s.db.ExecRetry(ctx,
		`INSERT INTO render_jobs (id, title, source_path, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(title), sourcePath, StateQueued, timestamp, timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by id. A missing job returns nil without error.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM render_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Find resolves a full id or a unique id prefix.
func (s *Store) Find(ctx context.Context, idOrPrefix string) (*Job, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: empty job id", services.ErrValidation)
	}
	if job, err := s.Get(ctx, idOrPrefix); err != nil || job != nil {
		return job, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM render_jobs WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(idOrPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	matches, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, idOrPrefix)
	}
}

// List returns jobs newest first, optionally filtered by state.
func (s *Store) List(ctx context.Context, states ...State) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM render_jobs`
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		query += ` WHERE state IN (` + makePlaceholders(len(states)) + `)`
		for _, state := range states {
			args = append(args, state)
		}
	}
	query += ` ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return scanJobs(rows)
}

// Start moves a queued job to running and records its segment count.
func (s *Store) Start(ctx context.Context, id string, totalSegments int) error {
	timestamp := sqlstore.FormatTime(s.now())
	return s.transition(ctx, id, "start",
		`UPDATE render_jobs SET state = ?, total_segments = ?, segments_done = 0,
			started_at = ?, updated_at = ? WHERE id = ? AND state = ?`,
		StateRunning, max(0, totalSegments), timestamp, timestamp, id, StateQueued)
}

// Progress records the number of segments synthesized so far.
func (s *Store) Progress(ctx context.Context, id string, done int) error {
	return s.transition(ctx, id, "progress",
		`UPDATE render_jobs SET segments_done = MIN(?, total_segments), updated_at = ?
			WHERE id = ? AND state = ?`,
		max(0, done), sqlstore.FormatTime(s.now()), id, StateRunning)
}

// Complete marks a running job finished with its output file.
func (s *Store) Complete(ctx context.Context, id, outputPath string) error {
	timestamp := sqlstore.FormatTime(s.now())
	return s.transition(ctx, id, "complete",
		`UPDATE render_jobs SET state = ?, segments_done = total_segments, output_path = ?,
			error_kind = NULL, error_message = NULL, finished_at = ?, updated_at = ?
			WHERE id = ? AND state = ?`,
		StateCompleted, outputPath, timestamp, timestamp, id, StateRunning)
}

// Fail records cause on a queued or running job. The resulting state follows
// the error's kind and is returned.
func (s *Store) Fail(ctx context.Context, id string, cause error) (State, error) {
	state := FailureState(cause)
	kind := services.ErrorKind(cause)
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	timestamp := sqlstore.FormatTime(s.now())
	err := s.transition(ctx, id, "fail",
		`UPDATE render_jobs SET state = ?, error_kind = ?, error_message = ?,
			finished_at = ?, updated_at = ? WHERE id = ? AND state IN (?, ?)`,
		state, kind, message, timestamp, timestamp, id, StateQueued, StateRunning)
	return state, err
}

// FailureState maps a render error to the job state it leaves behind.
func FailureState(err error) State {
	switch {
	case services.ErrorKind(err) == services.KindCancelled:
		return StateCancelled
	case services.IsInputError(err):
		return StateRejected
	default:
		return StateFailed
	}
}

// ResetInterrupted fails jobs left running by a process that exited
// without finishing them.
func (s *Store) ResetInterrupted(ctx context.Context) (int64, error) {
	timestamp := sqlstore.FormatTime(s.now())
	res, err := s.db.ExecRetry(ctx,
		`UPDATE render_jobs SET state = ?, error_kind = ?, error_message = ?,
			finished_at = ?, updated_at = ? WHERE state = ?`,
		StateFailed, services.KindInternal, InterruptedReason, timestamp, timestamp, StateRunning)
	if err != nil {
		return 0, fmt.Errorf("reset interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes finished jobs, all of them when ids is empty.
func (s *Store) Remove(ctx context.Context, ids ...string) (int64, error) {
	terminal := []any{StateCompleted, StateFailed, StateRejected, StateCancelled}
	query := `DELETE FROM render_jobs WHERE state IN (?, ?, ?, ?)`
	args := terminal
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.db.ExecRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("remove jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) transition(ctx context.Context, id, op, query string, args ...any) error {
	res, err := s.db.ExecRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s job: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s job: rows affected: %w", op, err)
	}
	if affected > 0 {
		return nil
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%s job %s: %w", op, id, services.ErrNotFound)
	}
	return fmt.Errorf("%w: cannot %s job %s in state %s", ErrInvalidTransition, op, id, job.State)
}
