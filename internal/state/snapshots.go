package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/maestro/internal/session"
)

// Snapshot is an exported execution context stored in the archive.
type Snapshot struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Data is the context's export document. ListSnapshots leaves it empty.
	Data []byte `json:"-"`
}

// SaveSnapshot stores s, assigning an ID and creation time when unset.
func (db *DB) SaveSnapshot(s *Snapshot) error {
	if len(s.Data) == 0 {
		return errors.New("save snapshot: empty data")
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	var runID sql.NullString
	if s.RunID != "" {
		runID = sql.NullString{String: s.RunID, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO snapshots (id, run_id, label, created_at, data)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, runID, s.Label, formatTime(s.CreatedAt), string(s.Data))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// SaveContext exports sctx and stores it under a new snapshot ID.
func (db *DB) SaveContext(runID, label string, sctx *session.Context) (*Snapshot, error) {
	data, err := sctx.Export()
	if err != nil {
		return nil, err
	}
	s := &Snapshot{RunID: runID, Label: label, Data: data}
	if err := db.SaveSnapshot(s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSnapshot retrieves a snapshot with its data.
func (db *DB) GetSnapshot(id string) (*Snapshot, error) {
	row := db.QueryRow(`
		SELECT id, run_id, label, created_at, data FROM snapshots WHERE id = ?
	`, id)

	var s Snapshot
	var runID sql.NullString
	var createdAt, data string
	err := row.Scan(&s.ID, &runID, &s.Label, &createdAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	s.RunID = runID.String
	s.CreatedAt, _ = parseTime(createdAt)
	s.Data = []byte(data)
	return &s, nil
}

// RestoreContext imports the snapshot id into a fresh context.
func (db *DB) RestoreContext(id string, opts ...session.Option) (*session.Context, error) {
	s, err := db.GetSnapshot(id)
	if err != nil {
		return nil, err
	}
	sctx := session.New(opts...)
	if err := sctx.Import(s.Data); err != nil {
		return nil, err
	}
	return sctx, nil
}

// ListSnapshots returns snapshot metadata, newest first. A non-empty runID
// restricts the list to that run.
func (db *DB) ListSnapshots(runID string) ([]Snapshot, error) {
	query := "SELECT id, run_id, label, created_at FROM snapshots"
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var rid sql.NullString
		var createdAt string
		if err := rows.Scan(&s.ID, &rid, &s.Label, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.RunID = rid.String
		s.CreatedAt, _ = parseTime(createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSnapshot deletes a snapshot by ID.
func (db *DB) DeleteSnapshot(id string) error {
	if _, err := db.Exec("DELETE FROM snapshots WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
