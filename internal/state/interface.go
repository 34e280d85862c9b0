package state

import (
	"io"

	"github.com/ShayCichocki/maestro/internal/session"
)

// RunStore handles run history persistence.
type RunStore interface {
	CreateRun(r *Run) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]Run, error)
}

// SnapshotStore handles exported context persistence.
type SnapshotStore interface {
	SaveContext(runID, label string, sctx *session.Context) (*Snapshot, error)
	GetSnapshot(id string) (*Snapshot, error)
	ListSnapshots(runID string) ([]Snapshot, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Archive is everything the CLI needs from the state backend.
type Archive interface {
	io.Closer
	Migrator
	RunStore
	SnapshotStore
}

var (
	_ Archive       = (*DB)(nil)
	_ RunStore      = (*DB)(nil)
	_ SnapshotStore = (*DB)(nil)
)
