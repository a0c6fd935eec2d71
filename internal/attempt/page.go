package attempt

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/placement-service/internal/lms"
	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/progress"
)

// MarkPage records a static page (introduction, completion) as done: a
// fresh registration is primed to incomplete, then marked completed with a
// completion record. It reports whether the LMS accepted the mark.
func MarkPage(ctx context.Context, session *lms.Session, store *progress.Store, note string, now time.Time, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	if session.Connect(ctx) != lms.Connected {
		logger.Info("Page mark skipped, LMS not connected", "note", note)
		return false
	}

	switch session.LessonStatus(ctx) {
	case "", models.LessonNotAttempted:
		session.Write(ctx, models.CMILessonStatus, string(models.LessonIncomplete))
		session.Commit(ctx)
	}

	ok := session.Write(ctx, models.CMILessonStatus, string(models.LessonCompleted))
	record := &models.CompletionRecord{
		CompletedAt: now.UTC().Format(time.RFC3339),
		Note:        note,
	}
	if err := store.WriteCompletion(ctx, record); err != nil {
		logger.Warn("Failed to write page completion", "note", note, "error", err)
		ok = false
	}
	if !session.Commit(ctx) {
		ok = false
	}

	logger.Info("Page marked completed", "note", note, "accepted", ok)
	return ok
}
