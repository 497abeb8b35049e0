package repository

import (
	"context"
	"fmt"
	"sort"

	"practice_service/internal/docstore"
	"practice_service/internal/domain"
)

type RosterRepository struct {
	store docstore.Store
}

func NewRosterRepository(store docstore.Store) *RosterRepository {
	return &RosterRepository{store: store}
}

func (r *RosterRepository) Put(ctx context.Context, entry *domain.RosterEntry) error {
	data, err := toMap(entry)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, rosterPath(entry.StudentID), data, true); err != nil {
		return fmt.Errorf("failed to store roster entry %s: %w", entry.StudentID, err)
	}
	return nil
}

func (r *RosterRepository) Get(ctx context.Context, studentID string) (*domain.RosterEntry, error) {
	doc, err := r.store.Get(ctx, rosterPath(studentID))
	if err != nil {
		return nil, err
	}

	var entry domain.RosterEntry
	if err := fromMap(doc.Data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode roster entry %s: %w", studentID, err)
	}
	entry.StudentID = doc.ID
	return &entry, nil
}

func (r *RosterRepository) Delete(ctx context.Context, studentID string) error {
	if err := r.store.Delete(ctx, rosterPath(studentID)); err != nil {
		return fmt.Errorf("failed to delete roster entry %s: %w", studentID, err)
	}
	return nil
}

// List returns every roster entry sorted by display name, falling back to
// email and then id.
func (r *RosterRepository) List(ctx context.Context) ([]*domain.RosterEntry, error) {
	docs, err := r.store.List(ctx, rosterCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}

	entries := make([]*domain.RosterEntry, 0, len(docs))
	for _, doc := range docs {
		var entry domain.RosterEntry
		if err := fromMap(doc.Data, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode roster entry %s: %w", doc.ID, err)
		}
		entry.StudentID = doc.ID
		entries = append(entries, &entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}
