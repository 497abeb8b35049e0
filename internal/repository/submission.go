package repository

import (
	"context"
	"errors"
	"fmt"

	"practice_service/internal/docstore"
	"practice_service/internal/domain"
)

type SubmissionRepository struct {
	store docstore.Store
}

func NewSubmissionRepository(store docstore.Store) *SubmissionRepository {
	return &SubmissionRepository{store: store}
}

// StoredSubmission pairs a submission document with its storage id, which
// is a task id in the current scheme or a bare date key on the legacy path.
type StoredSubmission struct {
	DocID    string
	Document domain.SubmissionDocument
}

func (r *SubmissionRepository) Get(ctx context.Context, studentID, docID string) (*domain.SubmissionDocument, error) {
	doc, err := r.store.Get(ctx, submissionPath(studentID, docID))
	if err != nil {
		return nil, err
	}

	var submission domain.SubmissionDocument
	if err := fromMap(doc.Data, &submission); err != nil {
		return nil, fmt.Errorf("failed to decode submission %s/%s: %w", studentID, docID, err)
	}
	return &submission, nil
}

// Merge writes one module's record into the submission document without
// touching other modules' fields.
func (r *SubmissionRepository) Merge(ctx context.Context, studentID, docID string, module domain.ModuleType, rec domain.ModuleRecord) error {
	recData, err := toMap(rec)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		string(module): recData,
		"lastUpdated":  domain.NowMillis(),
	}
	if rec.TaskID != "" {
		data["taskId"] = rec.TaskID
	}

	if err := r.store.Set(ctx, submissionPath(studentID, docID), data, true); err != nil {
		return fmt.Errorf("failed to store submission %s/%s: %w", studentID, docID, err)
	}
	return nil
}

func (r *SubmissionRepository) Delete(ctx context.Context, studentID, docID string) error {
	if err := r.store.Delete(ctx, submissionPath(studentID, docID)); err != nil {
		return fmt.Errorf("failed to delete submission %s/%s: %w", studentID, docID, err)
	}
	return nil
}

// DeleteModule removes a single module's field from a submission document,
// deleting the document outright when no module records remain.
func (r *SubmissionRepository) DeleteModule(ctx context.Context, studentID, docID string, module domain.ModuleType) error {
	path := submissionPath(studentID, docID)
	err := docstore.UpdateWithRetry(ctx, r.store, path, func(data map[string]interface{}, exists bool) (map[string]interface{}, error) {
		if !exists {
			return nil, nil
		}
		if _, ok := data[string(module)]; !ok {
			return nil, errUnchanged
		}
		delete(data, string(module))
		data["lastUpdated"] = domain.NowMillis()

		var doc domain.SubmissionDocument
		if err := fromMap(data, &doc); err != nil {
			return nil, err
		}
		if len(doc.Modules) == 0 {
			return nil, nil
		}
		return data, nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

// errUnchanged short-circuits a Mutate/Update that found nothing to do.
var errUnchanged = errors.New("no change")

// List returns every submission document stored for the student, keyed by
// document id.
func (r *SubmissionRepository) List(ctx context.Context, studentID string) ([]StoredSubmission, error) {
	docs, err := r.store.List(ctx, submissionsPath(studentID))
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for %s: %w", studentID, err)
	}

	out := make([]StoredSubmission, 0, len(docs))
	for _, doc := range docs {
		var submission domain.SubmissionDocument
		if err := fromMap(doc.Data, &submission); err != nil {
			return nil, fmt.Errorf("failed to decode submission %s/%s: %w", studentID, doc.ID, err)
		}
		out = append(out, StoredSubmission{DocID: doc.ID, Document: submission})
	}
	return out, nil
}
