// Package cache provides the completion cache: a narrow, typed view over a
// shared key-value namespace. Callers address entries only by
// (studentID, taskID) or the legacy (studentID, dateKey); raw keys are
// never exposed or enumerated.
package cache

import (
	"context"
	"fmt"

	"practice_service/internal/domain"
)

// CompletionCache stores provisional completion entries. A miss is
// (nil, nil); errors mean the cache itself misbehaved and callers should
// degrade rather than fail.
type CompletionCache interface {
	Get(ctx context.Context, studentID, taskID string) (*domain.CompletionEntry, error)
	Set(ctx context.Context, studentID, taskID string, entry domain.CompletionEntry) error
	Delete(ctx context.Context, studentID, taskID string) error

	// Legacy date-keyed entries exist only to be migrated; they can be
	// read and deleted but never written.
	GetLegacy(ctx context.Context, studentID, dateKey string) (*domain.CompletionEntry, error)
	DeleteLegacy(ctx context.Context, studentID, dateKey string) error
}

// completionKey matches the key shape the browser clients used, so caches
// shared with legacy data stay readable.
func completionKey(studentID, id string) string {
	return fmt.Sprintf("task_completed_%s_%s", studentID, id)
}
