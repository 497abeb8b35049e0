// Package docstore abstracts the hierarchical document database the
// platform persists into. Paths look like "collection/id/subcollection/id";
// the backing implementation is a versioned JSONB table in Postgres.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"practice_service/pkg/retry"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict signals a lost optimistic-concurrency race; Update callers
	// retry on it.
	ErrConflict = errors.New("document version conflict")
)

// Document is one stored record. Data is the decoded JSON object; Version
// increments on every write and guards compare-and-swap updates.
type Document struct {
	Path    string
	ID      string
	Data    map[string]interface{}
	Version int64
}

// UpdateFunc transforms a document's data under Update. exists tells
// whether the document was present; returning nil data deletes it,
// returning (nil, nil) with exists == false is a no-op.
type UpdateFunc func(data map[string]interface{}, exists bool) (map[string]interface{}, error)

type Store interface {
	// Get reads the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (*Document, error)
	// Set writes data at path. With merge, existing top-level fields not
	// present in data are preserved; without it the document is replaced.
	Set(ctx context.Context, path string, data map[string]interface{}, merge bool) error
	// Delete removes the document at path. Deleting an absent document
	// succeeds.
	Delete(ctx context.Context, path string) error
	// List returns every document directly under collectionPath.
	List(ctx context.Context, collectionPath string) ([]*Document, error)
	// Update applies fn atomically via compare-and-swap, returning
	// ErrConflict when a concurrent writer won.
	Update(ctx context.Context, path string, fn UpdateFunc) error
}

const (
	updateRetries   = 5
	updateBaseDelay = 20 * time.Millisecond
)

// UpdateWithRetry runs store.Update, retrying lost races with backoff.
func UpdateWithRetry(ctx context.Context, store Store, path string, fn UpdateFunc) error {
	_, err := retry.WithBackoff(ctx, updateRetries, updateBaseDelay,
		func(err error) bool { return errors.Is(err, ErrConflict) },
		func() (struct{}, error) {
			return struct{}{}, store.Update(ctx, path, fn)
		},
	)
	return err
}

// SplitPath validates a document path and returns its collection prefix
// and document id.
func SplitPath(path string) (collection, id string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || len(parts)%2 != 0 {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	for _, p := range parts {
		if p == "" {
			return "", "", fmt.Errorf("invalid document path %q", path)
		}
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1], nil
}
