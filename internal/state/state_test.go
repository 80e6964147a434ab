package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/copp1723/code-team-sub001/pkg/models"
)

func TestLocks_roundTrip(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = st.UpdateLocks(func(locks map[string]models.FileLock) {
		locks["src/api/users.go"] = models.FileLock{
			Path: "src/api/users.go", Owner: "backend", LockedAt: time.Now().UTC(),
		}
	})
	if err != nil {
		t.Fatalf("UpdateLocks: %v", err)
	}

	locks, err := st.Locks()
	if err != nil {
		t.Fatalf("Locks: %v", err)
	}
	if locks["src/api/users.go"].Owner != "backend" {
		t.Errorf("owner = %q", locks["src/api/users.go"].Owner)
	}

	// Reopen from disk and read back.
	st2, err := Open(st.Dir())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	locks, err = st2.Locks()
	if err != nil {
		t.Fatalf("Locks after reopen: %v", err)
	}
	if len(locks) != 1 {
		t.Errorf("len = %d", len(locks))
	}
}

func TestStatuses_emptyOnMissingFile(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	statuses, err := st.Statuses()
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("want empty map, got %d entries", len(statuses))
	}
}

func TestSetStatus_persists(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = st.SetStatus("backend", models.AgentTaskStatus{
		Role: "backend", CurrentBranch: "feature/backend/T1", TaskID: "T1",
		StartTime: time.Now().UTC(), Status: models.TaskActive,
	})
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "status.json")); err != nil {
		t.Fatalf("status.json not written: %v", err)
	}
	statuses, err := st.Statuses()
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if statuses["backend"].Status != models.TaskActive {
		t.Errorf("status = %q", statuses["backend"].Status)
	}
}

func TestWrite_leavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := st.UpdateLocks(func(locks map[string]models.FileLock) {}); err != nil {
			t.Fatalf("UpdateLocks: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "locks.json" {
			t.Errorf("unexpected file %q", e.Name())
		}
	}
}
