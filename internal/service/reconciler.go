package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"practice_service/internal/cache"
	"practice_service/internal/domain"
	"practice_service/internal/taskid"
	"practice_service/pkg/ctxdata"
	"practice_service/pkg/logger"
)

// Reconciler answers the one question every gate asks — is this task
// complete? — by consulting, in strict priority order, the task-keyed
// completion cache, the submission store, and finally the legacy
// date-keyed cache, migrating the last into the first on sight.
type Reconciler struct {
	submissions *SubmissionService
	assignments *AssignmentService
	cache       cache.CompletionCache
	producer    EventProducer
	logger      *logger.Logger
}

func NewReconciler(
	submissions *SubmissionService,
	assignments *AssignmentService,
	cache cache.CompletionCache,
	producer EventProducer,
	logger *logger.Logger,
) *Reconciler {
	return &Reconciler{
		submissions: submissions,
		assignments: assignments,
		cache:       cache,
		producer:    producer,
		logger:      logger,
	}
}

// IsTaskCompleted resolves the completion status for (studentID, taskID).
// The chain short-circuits on the first positive match:
//
//  1. task-keyed cache entry — complete, whatever its lockAccess flag says;
//  2. submission store — complete, and the entry is written back into the
//     cache (the only cache-fill in the system); a failed remote check is
//     logged and treated as a miss;
//  3. legacy date-keyed cache entry — complete, after migrating it to the
//     task-keyed scheme and deleting the legacy key.
//
// Anything else is not complete. The method never fails: degraded
// backends reduce it to whichever sources still answer.
func (r *Reconciler) IsTaskCompleted(ctx context.Context, studentID, taskID string) bool {
	if studentID == "" || taskID == "" {
		return false
	}

	entry, err := r.cache.Get(ctx, studentID, taskID)
	if err != nil {
		r.logger.Warn("completion cache read failed",
			zap.String("student_id", studentID),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}
	if entry != nil {
		if entry.LockAccess {
			r.logger.Debug("completion entry carries lockAccess flag",
				zap.String("student_id", studentID),
				zap.String("task_id", taskID),
			)
		}
		return true
	}

	rec, err := r.submissions.Latest(ctx, studentID, taskID)
	if err != nil {
		r.logger.Warn("remote completion check failed, falling back to local cache",
			zap.String("student_id", studentID),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	} else if rec != nil {
		completedAt := rec.SubmittedAt
		if rec.CompletedAt != 0 {
			completedAt = rec.CompletedAt
		}
		r.fillCache(ctx, studentID, taskID, domain.CompletionEntry{
			TaskID:          taskID,
			CompletedAt:     completedAt,
			Locked:          true,
			Source:          domain.CompletionSourceServer,
			ServerConfirmed: true,
			CachedAt:        domain.NowMillis(),
		})
		return true
	}

	dateKey, err := taskid.DateOf(taskID)
	if err != nil || !taskid.ValidDateKey(dateKey) {
		return false
	}

	legacy, err := r.cache.GetLegacy(ctx, studentID, dateKey)
	if err != nil {
		r.logger.Warn("legacy completion cache read failed",
			zap.String("student_id", studentID),
			zap.String("date", dateKey),
			zap.Error(err),
		)
		return false
	}
	if legacy == nil {
		return false
	}

	r.fillCache(ctx, studentID, taskID, domain.CompletionEntry{
		TaskID:       taskID,
		CompletedAt:  legacy.CompletedAt,
		Locked:       true,
		Source:       domain.CompletionSourceMigration,
		MigratedFrom: dateKey,
		CachedAt:     domain.NowMillis(),
	})
	if err := r.cache.DeleteLegacy(ctx, studentID, dateKey); err != nil {
		r.logger.Warn("failed to delete legacy completion entry",
			zap.String("student_id", studentID),
			zap.String("date", dateKey),
			zap.Error(err),
		)
	}
	return true
}

func (r *Reconciler) fillCache(ctx context.Context, studentID, taskID string, entry domain.CompletionEntry) {
	if err := r.cache.Set(ctx, studentID, taskID, entry); err != nil {
		r.logger.Warn("completion cache write failed",
			zap.String("student_id", studentID),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}
}

// ConfirmTaskSubmission is the teacher workflow that marks a task complete
// and drops it from the student's active list. Ordering is fixed: the
// completion marker is written before the assignment shrinks, and a marker
// that is already present is not rewritten, so an interrupted run can be
// retried end to end without losing state.
func (r *Reconciler) ConfirmTaskSubmission(ctx context.Context, studentID, taskID string, module domain.ModuleType) error {
	role, ok := ctxdata.GetUserRole(ctx)
	if !ok || role != string(domain.RoleTeacher) {
		return ErrPermissionDenied
	}

	dateKey, err := taskid.DateOf(taskID)
	if err != nil || !taskid.ValidDateKey(dateKey) {
		return fmt.Errorf("%w: bad task id %q", ErrInvalidArgument, taskID)
	}

	confirmedBy, _ := ctxdata.GetUserID(ctx)
	now := domain.NowMillis()

	existing, err := r.submissions.Completion(ctx, studentID, taskID, module)
	if err != nil {
		return err
	}
	alreadyMarked := existing != nil && existing.ConfirmedByTeacher

	if !alreadyMarked {
		marker := domain.ModuleRecord{
			SubmittedAt:        now,
			ModuleID:           module,
			TaskID:             taskID,
			ConfirmedByTeacher: true,
			ConfirmedAt:        now,
			ConfirmedBy:        confirmedBy,
			CompletedAt:        now,
		}
		if existing != nil {
			// Keep the student's own submission fields; only stamp the
			// confirmation on top.
			marker = *existing
			marker.ConfirmedByTeacher = true
			marker.ConfirmedAt = now
			marker.ConfirmedBy = confirmedBy
			if marker.CompletedAt == 0 {
				marker.CompletedAt = now
			}
		}
		if err := r.submissions.subRepo.Merge(ctx, studentID, taskID, module, marker); err != nil {
			return fmt.Errorf("failed to write completion marker: %w", err)
		}
	}

	if err := r.assignments.RemoveTask(ctx, studentID, taskID); err != nil {
		return fmt.Errorf("completion marked but assignment removal failed: %w", err)
	}

	r.fillCache(ctx, studentID, taskID, domain.CompletionEntry{
		TaskID:          taskID,
		CompletedAt:     now,
		Locked:          true,
		Source:          domain.CompletionSourceTeacher,
		ServerConfirmed: true,
		CachedAt:        now,
	})

	if r.producer != nil {
		if err := r.producer.Send(ctx, TopicTaskConfirmed, studentID, map[string]interface{}{
			"studentId":   studentID,
			"taskId":      taskID,
			"module":      module,
			"confirmedBy": confirmedBy,
		}); err != nil {
			r.logger.Error("failed to publish event",
				zap.String("topic", TopicTaskConfirmed),
				zap.Error(err),
			)
		}
	}

	r.logger.Info("task confirmed",
		zap.String("student_id", studentID),
		zap.String("task_id", taskID),
		zap.String("module", string(module)),
		zap.Bool("already_marked", alreadyMarked),
	)
	return nil
}
