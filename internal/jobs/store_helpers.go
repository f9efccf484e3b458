package jobs

import (
	"database/sql"
	"fmt"
	"strings"

	"storyforge/internal/sqlstore"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var (
		job                                 Job
		state                               string
		output, errorKind, errorMessage     sql.NullString
		created, updated, started, finished sql.NullString
	)
	if err := row.Scan(
		&job.ID, &job.Title, &job.SourcePath, &state, &job.TotalSegments, &job.SegmentsDone,
		&output, &errorKind, &errorMessage, &created, &updated, &started, &finished,
	); err != nil {
		return nil, err
	}
	job.State = State(state)
	job.OutputPath = output.String
	job.ErrorKind = errorKind.String
	job.ErrorMessage = errorMessage.String
	job.CreatedAt = sqlstore.ParseTime(created)
	job.UpdatedAt = sqlstore.ParseTime(updated)
	job.StartedAt = sqlstore.ParseTime(started)
	job.FinishedAt = sqlstore.ParseTime(finished)
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
