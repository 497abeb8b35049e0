package repository

import (
	"context"
	"fmt"

	"practice_service/internal/docstore"
	"practice_service/internal/domain"
)

type AssignmentRepository struct {
	store docstore.Store
}

func NewAssignmentRepository(store docstore.Store) *AssignmentRepository {
	return &AssignmentRepository{store: store}
}

func (r *AssignmentRepository) Get(ctx context.Context, studentID, dateKey string) (*domain.AssignmentDocument, error) {
	doc, err := r.store.Get(ctx, assignmentPath(studentID, dateKey))
	if err != nil {
		return nil, err
	}

	var assignment domain.AssignmentDocument
	if err := fromMap(doc.Data, &assignment); err != nil {
		return nil, fmt.Errorf("failed to decode assignment %s/%s: %w", studentID, dateKey, err)
	}
	return &assignment, nil
}

// Put overwrites the assignment document for one date. Callers enforce the
// empty-list invariant before reaching here; an empty task list is a bug.
func (r *AssignmentRepository) Put(ctx context.Context, studentID, dateKey string, doc *domain.AssignmentDocument) error {
	if len(doc.Tasks) == 0 {
		return fmt.Errorf("refusing to store assignment %s/%s with no tasks", studentID, dateKey)
	}

	data, err := toMap(doc)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, assignmentPath(studentID, dateKey), data, true); err != nil {
		return fmt.Errorf("failed to store assignment %s/%s: %w", studentID, dateKey, err)
	}
	return nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, studentID, dateKey string) error {
	if err := r.store.Delete(ctx, assignmentPath(studentID, dateKey)); err != nil {
		return fmt.Errorf("failed to delete assignment %s/%s: %w", studentID, dateKey, err)
	}
	return nil
}

// StoredAssignment pairs an assignment document with the date key it is
// filed under.
type StoredAssignment struct {
	DateKey  string
	Document *domain.AssignmentDocument
}

// List returns every assignment document for one student, oldest date first.
func (r *AssignmentRepository) List(ctx context.Context, studentID string) ([]StoredAssignment, error) {
	docs, err := r.store.List(ctx, assignmentsPath(studentID))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for %s: %w", studentID, err)
	}

	out := make([]StoredAssignment, 0, len(docs))
	for _, doc := range docs {
		var assignment domain.AssignmentDocument
		if err := fromMap(doc.Data, &assignment); err != nil {
			return nil, fmt.Errorf("failed to decode assignment %s/%s: %w", studentID, doc.ID, err)
		}
		out = append(out, StoredAssignment{DateKey: doc.ID, Document: &assignment})
	}
	return out, nil
}

// MutateFunc rewrites an assignment document under optimistic concurrency.
// A nil input means no document exists for the date; returning nil deletes
// the document (or leaves an absent one absent).
type MutateFunc func(doc *domain.AssignmentDocument) (*domain.AssignmentDocument, error)

// Mutate applies fn to the document at (studentID, dateKey) with
// compare-and-swap retries, so concurrent read-filter-rewrite flows cannot
// silently drop each other's writes. Documents that come out of fn with an
// empty task list are deleted, upholding the empty-list invariant.
func (r *AssignmentRepository) Mutate(ctx context.Context, studentID, dateKey string, fn MutateFunc) error {
	path := assignmentPath(studentID, dateKey)
	return docstore.UpdateWithRetry(ctx, r.store, path, func(data map[string]interface{}, exists bool) (map[string]interface{}, error) {
		var doc *domain.AssignmentDocument
		if exists {
			doc = &domain.AssignmentDocument{}
			if err := fromMap(data, doc); err != nil {
				return nil, fmt.Errorf("failed to decode assignment %s/%s: %w", studentID, dateKey, err)
			}
		}

		updated, err := fn(doc)
		if err != nil {
			return nil, err
		}
		if updated == nil || len(updated.Tasks) == 0 {
			return nil, nil
		}
		return toMap(updated)
	})
}
