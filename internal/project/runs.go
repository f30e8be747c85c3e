package project

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the bookkeeping row of one pipeline run.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      RunStatus
	Inputs      []string
	IndexOffset int
	Instances   int
	Error       string
}

// BeginRun records a new running run.
func (s *Store) BeginRun(ctx context.Context, id string, inputs []string, offset int) error {
	err := s.execWithoutResultRetry(ctx,
		`INSERT INTO runs (id, started_at, status, inputs, index_offset) VALUES (?, ?, ?, ?, ?)`,
		id,
		time.Now().UTC().Format(time.RFC3339Nano),
		string(RunRunning),
		nullableString(strings.Join(inputs, "\n")),
		offset,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, id string, instances int, runErr error) error {
	status := RunCompleted
	message := ""
	if runErr != nil {
		status = RunFailed
		message = runErr.Error()
	}
	err := s.execWithoutResultRetry(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, instances = ?, error_message = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		string(status),
		instances,
		nullableString(message),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs lists runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, started_at, finished_at, status, inputs, index_offset, instances, error_message
        FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			startedRaw  string
			finishedRaw sql.NullString
			status      string
			inputs      sql.NullString
			message     sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedRaw, &finishedRaw, &status, &inputs, &run.IndexOffset, &run.Instances, &message); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
			run.StartedAt = started
		}
		if finishedRaw.Valid {
			if finished, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
				run.FinishedAt = &finished
			}
		}
		run.Status = RunStatus(status)
		if inputs.String != "" {
			run.Inputs = strings.Split(inputs.String, "\n")
		}
		run.Error = message.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
