package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"practice_service/internal/domain"
)

func floatPtr(f float64) *float64 { return &f }

func TestSubmissionService_Submit(t *testing.T) {
	const taskID = "20260115_1"

	t.Run("merge keeps the other module's record", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.submissions.Submit(studentCtx(), "s1", taskID, domain.ModuleDictation, SubmitRequest{
			Score:       floatPtr(80),
			CorrectText: "the quick brown fox",
		})
		require.NoError(t, err)

		_, err = env.submissions.Submit(studentCtx(), "s1", taskID, domain.ModuleReading, SubmitRequest{
			ReadingText: "jumps over the lazy dog",
		})
		require.NoError(t, err)

		doc, err := env.subRepo.Get(studentCtx(), "s1", taskID)
		require.NoError(t, err)
		require.Len(t, doc.Modules, 2)
		require.Equal(t, "the quick brown fox", doc.Modules[domain.ModuleDictation].CorrectText)
		require.Equal(t, "jumps over the lazy dog", doc.Modules[domain.ModuleReading].ReadingText)
	})

	t.Run("resubmission replaces only its own module", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.submissions.Submit(studentCtx(), "s1", taskID, domain.ModuleDictation, SubmitRequest{Score: floatPtr(60)})
		require.NoError(t, err)
		_, err = env.submissions.Submit(studentCtx(), "s1", taskID, domain.ModuleDictation, SubmitRequest{Score: floatPtr(95)})
		require.NoError(t, err)

		rec, err := env.submissions.Completion(studentCtx(), "s1", taskID, domain.ModuleDictation)
		require.NoError(t, err)
		require.Equal(t, 95.0, *rec.Score)
	})

	t.Run("legacy path keys the document by date", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.submissions.Submit(studentCtx(), "s1", "", domain.ModuleDictation, SubmitRequest{
			Date:  "20260115",
			Score: floatPtr(70),
		})
		require.NoError(t, err)

		doc, err := env.subRepo.Get(studentCtx(), "s1", "20260115")
		require.NoError(t, err)
		require.Contains(t, doc.Modules, domain.ModuleDictation)
	})

	t.Run("rejects a submission with neither task id nor date", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.submissions.Submit(studentCtx(), "s1", "", domain.ModuleDictation, SubmitRequest{})
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("rejects an unknown module", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.submissions.Submit(studentCtx(), "s1", taskID, "grammar", SubmitRequest{})
		require.ErrorIs(t, err, ErrUnknownModule)
	})
}

func TestSubmissionService_Latest(t *testing.T) {
	const taskID = "20260115_1"

	t.Run("absence yields nil without error", func(t *testing.T) {
		env := newTestEnv(t)

		rec, err := env.submissions.Latest(studentCtx(), "s1", taskID)
		require.NoError(t, err)
		require.Nil(t, rec)
	})

	t.Run("most recent submission wins", func(t *testing.T) {
		env := newTestEnv(t)

		require.NoError(t, env.subRepo.Merge(studentCtx(), "s1", taskID, domain.ModuleDictation, domain.ModuleRecord{
			SubmittedAt: 1000,
			ModuleID:    domain.ModuleDictation,
		}))
		require.NoError(t, env.subRepo.Merge(studentCtx(), "s1", taskID, domain.ModuleReading, domain.ModuleRecord{
			SubmittedAt: 2000,
			ModuleID:    domain.ModuleReading,
		}))

		rec, err := env.submissions.Latest(studentCtx(), "s1", taskID)
		require.NoError(t, err)
		require.Equal(t, domain.ModuleReading, rec.ModuleID)
		require.EqualValues(t, 2000, rec.SubmittedAt)
	})
}

func TestSubmissionService_ClearModuleCompletion(t *testing.T) {
	const taskID = "20260115_1"
	env := newTestEnv(t)

	_, err := env.submissions.Submit(studentCtx(), "s1", taskID, domain.ModuleDictation, SubmitRequest{Score: floatPtr(50)})
	require.NoError(t, err)
	_, err = env.submissions.Submit(studentCtx(), "s1", taskID, domain.ModuleReading, SubmitRequest{})
	require.NoError(t, err)

	require.NoError(t, env.submissions.ClearModuleCompletion(studentCtx(), "s1", taskID, domain.ModuleDictation))

	rec, err := env.submissions.Completion(studentCtx(), "s1", taskID, domain.ModuleDictation)
	require.NoError(t, err)
	require.Nil(t, rec)

	rec, err = env.submissions.Completion(studentCtx(), "s1", taskID, domain.ModuleReading)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Clearing the last module drops the document entirely.
	require.NoError(t, env.submissions.ClearModuleCompletion(studentCtx(), "s1", taskID, domain.ModuleReading))
	doc, err := env.submissions.Latest(studentCtx(), "s1", taskID)
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestSubmissionService_AllForDate(t *testing.T) {
	const date = "20260115"
	env := newTestEnv(t)

	require.NoError(t, env.rosterRepo.Put(studentCtx(), &domain.RosterEntry{StudentID: "s1", DisplayName: "Ara"}))
	require.NoError(t, env.rosterRepo.Put(studentCtx(), &domain.RosterEntry{StudentID: "s2", DisplayName: "Minjun"}))

	_, err := env.submissions.Submit(studentCtx(), "s1", "", domain.ModuleDictation, SubmitRequest{Date: date})
	require.NoError(t, err)

	rows, err := env.submissions.AllForDate(teacherCtx(), date)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "s1", rows[0].Student.StudentID)
	require.True(t, rows[0].HasSubmission)
	require.False(t, rows[1].HasSubmission)
	require.Nil(t, rows[1].Submissions)
}

func TestSubmissionService_CascadeDelete(t *testing.T) {
	const (
		date   = "20260115"
		taskID = date + "_1"
	)

	t.Run("removes submission, assignment entry and cache keys", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{
				sentenceTask(taskID, "one"),
				sentenceTask(date+"_2", "two"),
			},
		})
		require.NoError(t, err)
		_, err = env.submissions.Submit(studentCtx(), "s1", taskID, domain.ModuleDictation, SubmitRequest{
			ImageURL: "https://cdn.example.com/photo.jpg",
		})
		require.NoError(t, err)
		require.NoError(t, env.cache.Set(studentCtx(), "s1", taskID, domain.CompletionEntry{TaskID: taskID}))

		result, err := env.submissions.CascadeDelete(teacherCtx(), "s1", taskID)
		require.NoError(t, err)
		require.True(t, result.SubmissionDeleted)
		require.True(t, result.AssignmentUpdated)
		require.Equal(t, []string{"https://cdn.example.com/photo.jpg"}, result.PreservedImages)
		require.Empty(t, result.Errors)

		doc, err := env.assignments.Get(teacherCtx(), "s1", date)
		require.NoError(t, err)
		require.Equal(t, []string{date + "_2"}, doc.TaskIDs())

		rec, err := env.submissions.Latest(studentCtx(), "s1", taskID)
		require.NoError(t, err)
		require.Nil(t, rec)

		entry, err := env.cache.Get(studentCtx(), "s1", taskID)
		require.NoError(t, err)
		require.Nil(t, entry)
	})

	t.Run("step failures accumulate instead of aborting", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.submissions.Submit(studentCtx(), "s1", taskID, domain.ModuleDictation, SubmitRequest{})
		require.NoError(t, err)

		env.store.FailOn = func(op, path string) error {
			if op == "delete" && path == "users/s1/submissions/"+taskID {
				return errors.New("backend down")
			}
			return nil
		}

		result, err := env.submissions.CascadeDelete(teacherCtx(), "s1", taskID)
		require.NoError(t, err)
		require.False(t, result.SubmissionDeleted)
		require.NotEmpty(t, result.Errors)
		require.Contains(t, result.Errors[0], "backend down")
		// The cache sweep still ran.
		require.Equal(t, 2, result.CacheCleared)
	})

	t.Run("rejects malformed task id", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.submissions.CascadeDelete(teacherCtx(), "s1", "garbage")
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}
