package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// ErrNotFound is returned when a run or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus summarizes how a workflow run ended.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// StatusOf derives a run status from an engine result and error.
func StatusOf(res *models.WorkflowResult, err error) RunStatus {
	switch {
	case errors.Is(err, context.Canceled):
		return RunCanceled
	case err != nil || res == nil:
		return RunFailed
	case len(res.Failures) == 0 && len(res.Skipped) == 0:
		return RunSucceeded
	case len(res.Results) == 0:
		return RunFailed
	default:
		return RunPartial
	}
}

// Run is one archived workflow execution.
type Run struct {
	ID         string    `json:"id"`
	Workflow   string    `json:"workflow"`
	Mode       string    `json:"mode"`
	Status     RunStatus `json:"status"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	// Result is the full engine result. It is not loaded by ListRuns.
	Result *models.WorkflowResult `json:"result,omitempty"`
}

// NewRun builds the archive record for an engine result.
func NewRun(res *models.WorkflowResult, status RunStatus) *Run {
	return &Run{
		ID:         res.RunID,
		Workflow:   res.Workflow,
		Mode:       string(res.Mode),
		Status:     status,
		Succeeded:  len(res.Results),
		Failed:     len(res.Failures),
		Skipped:    len(res.Skipped),
		StartedAt:  res.StartedAt,
		DurationMS: res.DurationMS,
		Result:     res,
	}
}

// CreateRun archives a run. Runs without an ID are rejected.
func (db *DB) CreateRun(r *Run) error {
	if r.ID == "" {
		return errors.New("create run: empty run id")
	}
	result, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("create run: encode result: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, workflow, mode, status, succeeded, failed, skipped, started_at, duration_ms, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Workflow, r.Mode, string(r.Status), r.Succeeded, r.Failed, r.Skipped,
		formatTime(r.StartedAt), r.DurationMS, string(result))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run, including its full result.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, workflow, mode, status, succeeded, failed, skipped, started_at, duration_ms, result
		FROM runs WHERE id = ?
	`, id)

	var r Run
	var startedAt, result string
	err := row.Scan(&r.ID, &r.Workflow, &r.Mode, &r.Status, &r.Succeeded, &r.Failed, &r.Skipped,
		&startedAt, &r.DurationMS, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	r.StartedAt, _ = parseTime(startedAt)
	if err := json.Unmarshal([]byte(result), &r.Result); err != nil {
		return nil, fmt.Errorf("get run: decode result: %w", err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT id, workflow, mode, status, succeeded, failed, skipped, started_at, duration_ms
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &r.Workflow, &r.Mode, &r.Status, &r.Succeeded, &r.Failed, &r.Skipped,
			&startedAt, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = parseTime(startedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a run. Snapshots taken during it are kept and
// detached from the run.
func (db *DB) DeleteRun(id string) error {
	if _, err := db.Exec("DELETE FROM runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// PurgeOldRuns deletes runs started before now minus olderThan.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.Exec("DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}
