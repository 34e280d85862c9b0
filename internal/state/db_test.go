package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/maestro/internal/session"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMigrated(DriverSQLite, tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func testResult(id string, started time.Time) *models.WorkflowResult {
	return &models.WorkflowResult{
		RunID:    id,
		Workflow: "review",
		Mode:     models.ModeDAG,
		Results: []models.Outcome{
			{TaskID: "search", AgentID: "literature-search", Success: true, Value: "papers", Attempts: 1},
		},
		Failures: []models.Outcome{
			{TaskID: "analyze", Success: false, Error: "boom", Attempts: 2},
		},
		Skipped:    []string{"synthesize"},
		StartedAt:  started,
		DurationMS: 42,
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path || db.Driver() != DriverSQLite {
		t.Errorf("unexpected db: path=%q driver=%q", db.Path(), db.Driver())
	}
	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpenDriver_Unsupported(t *testing.T) {
	if _, err := OpenDriver("postgres", tempDBPath(t)); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var version int
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 2 {
		t.Errorf("expected schema version 2, got %d", version)
	}
}

func TestRun_CreateGet(t *testing.T) {
	db := setupTestDB(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := testResult("run-1", started)

	if err := db.CreateRun(NewRun(res, StatusOf(res, nil))); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunPartial || got.Succeeded != 1 || got.Failed != 1 || got.Skipped != 1 {
		t.Errorf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Result == nil || got.Result.Failures[0].Error != "boom" || got.Result.Skipped[0] != "synthesize" {
		t.Errorf("expected full result, got %+v", got.Result)
	}
}

func TestRun_Errors(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := db.CreateRun(&Run{}); err == nil {
		t.Error("expected error for empty run id")
	}

	res := testResult("dup", time.Now())
	if err := db.CreateRun(NewRun(res, RunPartial)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := db.CreateRun(NewRun(res, RunPartial)); err == nil {
		t.Error("expected error for duplicate run id")
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res := testResult(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Millisecond))
		if err := db.CreateRun(NewRun(res, RunSucceeded)); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-2" || runs[2].ID != "run-0" {
		t.Errorf("expected newest first, got %+v", runs)
	}
	if runs[0].Result != nil {
		t.Error("expected ListRuns to omit results")
	}

	limited, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs, got %d", len(limited))
	}
}

func TestPurgeOldRuns(t *testing.T) {
	db := setupTestDB(t)

	old := testResult("old", time.Now().Add(-48*time.Hour))
	recent := testResult("recent", time.Now())
	for _, res := range []*models.WorkflowResult{old, recent} {
		if err := db.CreateRun(NewRun(res, RunSucceeded)); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	n, err := db.PurgeOldRuns(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldRuns failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged run, got %d", n)
	}
	if _, err := db.GetRun("recent"); err != nil {
		t.Errorf("expected recent run to remain: %v", err)
	}
}

func TestStatusOf(t *testing.T) {
	ok := &models.WorkflowResult{Results: []models.Outcome{{Success: true}}}
	partial := &models.WorkflowResult{Results: []models.Outcome{{Success: true}}, Skipped: []string{"x"}}
	allFailed := &models.WorkflowResult{Failures: []models.Outcome{{}}}

	tests := []struct {
		name string
		res  *models.WorkflowResult
		err  error
		want RunStatus
	}{
		{"all succeeded", ok, nil, RunSucceeded},
		{"some skipped", partial, nil, RunPartial},
		{"nothing succeeded", allFailed, nil, RunFailed},
		{"engine error", nil, errors.New("invalid"), RunFailed},
		{"canceled", ok, fmt.Errorf("run: %w", context.Canceled), RunCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.res, tt.err); got != tt.want {
				t.Errorf("StatusOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSnapshot_SaveRestore(t *testing.T) {
	db := setupTestDB(t)
	res := testResult("run-1", time.Now())
	if err := db.CreateRun(NewRun(res, RunPartial)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	sctx := session.New()
	sctx.Set("topic", "sleep")
	sctx.RegisterAgent("literature-search")
	sctx.SendMessage(session.Message{From: "orchestrator", To: session.To("literature-search"), Type: session.MessageRequest, Content: "find"})

	snap, err := db.SaveContext("run-1", "after search", sctx)
	if err != nil {
		t.Fatalf("SaveContext failed: %v", err)
	}
	if snap.ID == "" {
		t.Fatal("expected generated snapshot id")
	}

	restored, err := db.RestoreContext(snap.ID)
	if err != nil {
		t.Fatalf("RestoreContext failed: %v", err)
	}
	if v, _ := restored.GetString("topic"); v != "sleep" {
		t.Errorf("expected restored data, got %q", v)
	}
	if !restored.HasAgent("literature-search") || len(restored.History()) != 1 {
		t.Errorf("expected restored agents and history, got %v / %d", restored.Agents(), len(restored.History()))
	}

	list, err := db.ListSnapshots("run-1")
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(list) != 1 || list[0].Label != "after search" || list[0].Data != nil {
		t.Errorf("unexpected snapshot list: %+v", list)
	}
}

func TestSnapshot_Errors(t *testing.T) {
	db := setupTestDB(t)

	if err := db.SaveSnapshot(&Snapshot{}); err == nil {
		t.Error("expected error for empty snapshot data")
	}
	if _, err := db.GetSnapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := db.SaveSnapshot(&Snapshot{RunID: "no-such-run", Data: []byte("{}")}); err == nil {
		t.Error("expected foreign key error for unknown run")
	}
}

func TestDeleteRun_DetachesSnapshots(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateRun(NewRun(testResult("run-1", time.Now()), RunSucceeded)); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	snap, err := db.SaveContext("run-1", "", session.New())
	if err != nil {
		t.Fatalf("SaveContext failed: %v", err)
	}

	if err := db.DeleteRun("run-1"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	got, err := db.GetSnapshot(snap.ID)
	if err != nil {
		t.Fatalf("expected snapshot to survive: %v", err)
	}
	if got.RunID != "" {
		t.Errorf("expected detached snapshot, got run %q", got.RunID)
	}
}
