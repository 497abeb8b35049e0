package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"practice_service/internal/docstore"
	"practice_service/internal/domain"
	"practice_service/internal/repository"
)

func TestAssignmentRepository(t *testing.T) {
	ctx := context.Background()

	task := func(id string) domain.TaskDescriptor {
		return domain.TaskDescriptor{
			TaskID:     id,
			Type:       domain.ModuleDictation,
			Items:      []domain.TaskItem{domain.SentenceItem("the quick brown fox")},
			Rate:       1.0,
			SourceType: domain.SourceSentence,
			AssignedAt: 1700000000000,
		}
	}

	t.Run("Put and Get round-trip", func(t *testing.T) {
		repo := repository.NewAssignmentRepository(docstore.NewMemoryStore())
		doc := &domain.AssignmentDocument{
			Tasks:      []domain.TaskDescriptor{task("20250910_1")},
			Date:       "20250910",
			Status:     domain.AssignmentStatusAssigned,
			AssignedBy: "teacher",
		}
		require.NoError(t, repo.Put(ctx, "u1", "20250910", doc))

		got, err := repo.Get(ctx, "u1", "20250910")
		require.NoError(t, err)
		require.Len(t, got.Tasks, 1)
		require.Equal(t, "20250910_1", got.Tasks[0].TaskID)
		require.Equal(t, "the quick brown fox", got.Tasks[0].Items[0].Sentence)
	})

	t.Run("Get missing returns ErrNotFound", func(t *testing.T) {
		repo := repository.NewAssignmentRepository(docstore.NewMemoryStore())
		_, err := repo.Get(ctx, "u1", "20250910")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Put refuses empty task list", func(t *testing.T) {
		repo := repository.NewAssignmentRepository(docstore.NewMemoryStore())
		err := repo.Put(ctx, "u1", "20250910", &domain.AssignmentDocument{Date: "20250910"})
		require.Error(t, err)
	})

	t.Run("Mutate filtering to empty deletes the document", func(t *testing.T) {
		store := docstore.NewMemoryStore()
		repo := repository.NewAssignmentRepository(store)
		doc := &domain.AssignmentDocument{
			Tasks: []domain.TaskDescriptor{task("20250910_1")},
			Date:  "20250910",
		}
		require.NoError(t, repo.Put(ctx, "u1", "20250910", doc))

		err := repo.Mutate(ctx, "u1", "20250910", func(doc *domain.AssignmentDocument) (*domain.AssignmentDocument, error) {
			doc.Tasks = nil
			return doc, nil
		})
		require.NoError(t, err)

		_, err = repo.Get(ctx, "u1", "20250910")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Mutate on absent document gets nil", func(t *testing.T) {
		repo := repository.NewAssignmentRepository(docstore.NewMemoryStore())
		called := false
		err := repo.Mutate(ctx, "u1", "20250910", func(doc *domain.AssignmentDocument) (*domain.AssignmentDocument, error) {
			called = true
			require.Nil(t, doc)
			return nil, nil
		})
		require.NoError(t, err)
		require.True(t, called)
	})
}

func TestSubmissionRepositoryMergeIsNonDestructive(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSubmissionRepository(docstore.NewMemoryStore())

	require.NoError(t, repo.Merge(ctx, "u1", "20250910_1", domain.ModuleDictation, domain.ModuleRecord{
		SubmittedAt: 1000, ModuleID: domain.ModuleDictation, TaskID: "20250910_1",
	}))
	require.NoError(t, repo.Merge(ctx, "u1", "20250910_1", domain.ModuleReading, domain.ModuleRecord{
		SubmittedAt: 2000, ModuleID: domain.ModuleReading, TaskID: "20250910_1",
	}))

	doc, err := repo.Get(ctx, "u1", "20250910_1")
	require.NoError(t, err)
	require.Len(t, doc.Modules, 2)
	require.EqualValues(t, 1000, doc.Modules[domain.ModuleDictation].SubmittedAt)
	require.EqualValues(t, 2000, doc.Modules[domain.ModuleReading].SubmittedAt)
	require.Equal(t, "20250910_1", doc.TaskID)
}

func TestSubmissionRepositoryDeleteModule(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSubmissionRepository(docstore.NewMemoryStore())

	require.NoError(t, repo.Merge(ctx, "u1", "20250910_1", domain.ModuleDictation, domain.ModuleRecord{
		SubmittedAt: 1000, ModuleID: domain.ModuleDictation,
	}))
	require.NoError(t, repo.Merge(ctx, "u1", "20250910_1", domain.ModuleReading, domain.ModuleRecord{
		SubmittedAt: 2000, ModuleID: domain.ModuleReading,
	}))

	require.NoError(t, repo.DeleteModule(ctx, "u1", "20250910_1", domain.ModuleDictation))
	doc, err := repo.Get(ctx, "u1", "20250910_1")
	require.NoError(t, err)
	require.NotContains(t, doc.Modules, domain.ModuleDictation)
	require.Contains(t, doc.Modules, domain.ModuleReading)

	// Removing the last module record removes the document.
	require.NoError(t, repo.DeleteModule(ctx, "u1", "20250910_1", domain.ModuleReading))
	_, err = repo.Get(ctx, "u1", "20250910_1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// Absent module and absent document are both no-ops.
	require.NoError(t, repo.DeleteModule(ctx, "u1", "20250910_1", domain.ModuleReading))
}

func TestSubmissionRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSubmissionRepository(docstore.NewMemoryStore())

	require.NoError(t, repo.Merge(ctx, "u1", "20250910_1", domain.ModuleDictation, domain.ModuleRecord{SubmittedAt: 1, ModuleID: domain.ModuleDictation}))
	require.NoError(t, repo.Merge(ctx, "u1", "20250911_1", domain.ModuleReading, domain.ModuleRecord{SubmittedAt: 2, ModuleID: domain.ModuleReading}))
	require.NoError(t, repo.Merge(ctx, "u2", "20250910_1", domain.ModuleDictation, domain.ModuleRecord{SubmittedAt: 3, ModuleID: domain.ModuleDictation}))

	subs, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, "20250910_1", subs[0].DocID)
	require.Equal(t, "20250911_1", subs[1].DocID)
}

func TestRosterRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRosterRepository(docstore.NewMemoryStore())

	require.NoError(t, repo.Put(ctx, &domain.RosterEntry{StudentID: "u2", DisplayName: "Minjun", Email: "minjun@id.local", Active: true}))
	require.NoError(t, repo.Put(ctx, &domain.RosterEntry{StudentID: "u1", DisplayName: "Ara", Email: "ara@id.local", Active: true}))
	require.NoError(t, repo.Put(ctx, &domain.RosterEntry{StudentID: "u3", Email: "zoe@id.local", Active: true}))

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "Ara", entries[0].DisplayName)
	require.Equal(t, "Minjun", entries[1].DisplayName)
	require.Equal(t, "u3", entries[2].StudentID) // sorted by email fallback

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.StudentID)
	require.True(t, got.Active)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.Get(ctx, "u1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
