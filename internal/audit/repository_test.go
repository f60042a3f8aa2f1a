package audit

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/slatedesk/slate-core/internal/action"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			user_id TEXT,
			source TEXT NOT NULL DEFAULT 'api',
			details TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestCreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	entry := &Entry{
		Action:     ActionLock,
		EntityType: EntityBatch,
		EntityID:   "run-1",
		UserID:     "teacher-1",
		Details:    map[string]any{"success_count": 3},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("Create() did not generate an id")
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Entries) != 1 {
		t.Fatalf("List() total = %d, entries = %d, want 1/1", result.Total, len(result.Entries))
	}

	got := result.Entries[0]
	if got.Action != ActionLock || got.EntityID != "run-1" || got.UserID != "teacher-1" {
		t.Errorf("entry = %+v", got)
	}
	if got.Details["success_count"] != float64(3) {
		t.Errorf("details = %v", got.Details)
	}
	if got.Source != "api" {
		t.Errorf("default source = %q, want api", got.Source)
	}
}

func TestList_Filters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	entries := []*Entry{
		{Action: ActionLock, EntityType: EntityBatch, EntityID: "run-1"},
		{Action: ActionUnlock, EntityType: EntityBatch, EntityID: "run-2"},
		{Action: ActionSchedule, EntityType: EntitySchedule, EntityID: "42", UserID: "teacher-1"},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	byAction, err := repo.List(ctx, Filter{Action: ActionLock})
	if err != nil {
		t.Fatalf("List(action) error = %v", err)
	}
	if byAction.Total != 1 {
		t.Errorf("action filter total = %d, want 1", byAction.Total)
	}

	byEntity, err := repo.List(ctx, Filter{EntityType: EntityBatch})
	if err != nil {
		t.Fatalf("List(entity) error = %v", err)
	}
	if byEntity.Total != 2 {
		t.Errorf("entity filter total = %d, want 2", byEntity.Total)
	}

	byUser, err := repo.List(ctx, Filter{UserID: "teacher-1"})
	if err != nil {
		t.Fatalf("List(user) error = %v", err)
	}
	if byUser.Total != 1 {
		t.Errorf("user filter total = %d, want 1", byUser.Total)
	}
}

func TestList_LimitClamp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	result, err := repo.List(context.Background(), Filter{Limit: 5000})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != 200 {
		t.Errorf("limit = %d, want clamped to 200", result.Limit)
	}
}

func TestTrail_RecordAction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	trail := NewTrail(repo, nil)
	ctx := context.Background()

	trail.RecordAction(ctx, action.Result{
		RunID:   "run-9",
		Action:  action.ActionRestart,
		Success: 2,
		Failed:  1,
	})

	result, err := repo.List(ctx, Filter{EntityID: "run-9"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("trail wrote %d entries, want 1", result.Total)
	}
	if result.Entries[0].Action != "restart" {
		t.Errorf("action = %q, want restart", result.Entries[0].Action)
	}
}
