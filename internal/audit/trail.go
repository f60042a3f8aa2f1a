package audit

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/slatedesk/slate-core/internal/action"
)

// Trail is the write-side convenience layer over the Repository. A
// failed audit write is logged and swallowed: the trail must never
// break the operation it describes.
type Trail struct {
	repo   Repository
	logger *slog.Logger
}

// NewTrail creates an audit trail writer.
func NewTrail(repo Repository, logger *slog.Logger) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trail{repo: repo, logger: logger}
}

// RecordAction persists a batch result as one trail entry per run.
// Satisfies the batch executor's Recorder interface.
func (t *Trail) RecordAction(ctx context.Context, result action.Result) {
	t.write(ctx, &Entry{
		Action:     result.Action,
		EntityType: EntityBatch,
		EntityID:   result.RunID,
		Details: map[string]any{
			"success_count":  result.Success,
			"fail_count":     result.Failed,
			"excluded_count": result.Excluded,
			"duration_ms":    result.DurationMS,
		},
	})
}

// RecordScheduleEdit persists a schedule change.
func (t *Trail) RecordScheduleEdit(ctx context.Context, studentID int, day string, userID string) {
	t.write(ctx, &Entry{
		Action:     ActionSchedule,
		EntityType: EntitySchedule,
		EntityID:   strconv.Itoa(studentID),
		UserID:     userID,
		Details:    map[string]any{"day": day},
	})
}

// RecordBootstrap persists a bootstrap run outcome.
func (t *Trail) RecordBootstrap(ctx context.Context, success bool, locations int) {
	t.write(ctx, &Entry{
		Action:     ActionBootstrap,
		EntityType: EntityTenant,
		Details:    map[string]any{"success": success, "locations": locations},
	})
}

// RecordLogin persists a login attempt outcome.
func (t *Trail) RecordLogin(ctx context.Context, username string, success bool) {
	t.write(ctx, &Entry{
		Action:     ActionLogin,
		EntityType: EntityUser,
		EntityID:   username,
		Details:    map[string]any{"success": success},
	})
}

func (t *Trail) write(ctx context.Context, entry *Entry) {
	if err := t.repo.Create(ctx, entry); err != nil {
		t.logger.Error("audit write failed", "action", entry.Action, "error", err)
	}
}
