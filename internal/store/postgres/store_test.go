package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/copp1723/code-team-sub001/pkg/models"
)

// Requires a running PostgreSQL; set CREW_TEST_DATABASE_URL to enable.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CREW_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CREW_TEST_DATABASE_URL not set")
	}
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.Pool.Exec(context.Background(), `DELETE FROM workflow_runs`)
		_ = s.Close()
	})
	return s
}

func TestSaveRun_roundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ws := &models.WorkflowState{
		ID:        "pg-run-1",
		StartTime: time.Now().UTC(),
		Status:    models.RunCompleted,
		Stages:    map[string]models.StageState{},
	}
	if err := s.SaveRun(ctx, ws); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.GetRun(ctx, "pg-run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != models.RunCompleted {
		t.Errorf("status = %q", got.Status)
	}
}
