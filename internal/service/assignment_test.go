package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"practice_service/internal/domain"
	"practice_service/internal/service/mocks"
	"practice_service/internal/taskid"
	"practice_service/pkg/logger"
)

func TestAssignmentService_Assign(t *testing.T) {
	const date = "20260115"

	t.Run("fills defaults and generated ids", func(t *testing.T) {
		env := newTestEnv(t)

		doc, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{
				sentenceTask("", "first sentence"),
				sentenceTask("", "second sentence"),
			},
		})
		require.NoError(t, err)
		require.Len(t, doc.Tasks, 2)

		require.Equal(t, date+"_1", doc.Tasks[0].TaskID)
		require.Equal(t, date+"_2", doc.Tasks[1].TaskID)
		require.Equal(t, domain.AssignmentStatusAssigned, doc.Status)
		require.Equal(t, "teacher", doc.AssignedBy)
		for _, task := range doc.Tasks {
			require.Equal(t, 1.0, task.Rate)
			require.Equal(t, domain.SourceSentence, task.SourceType)
			require.NotZero(t, task.AssignedAt)
		}

		stored, err := env.assignments.Get(teacherCtx(), "s1", date)
		require.NoError(t, err)
		require.Equal(t, doc.TaskIDs(), stored.TaskIDs())
	})

	t.Run("generated ids skip explicit ones", func(t *testing.T) {
		env := newTestEnv(t)

		doc, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{
				sentenceTask(date+"_5", "pinned"),
				sentenceTask("", "generated"),
			},
		})
		require.NoError(t, err)
		require.Equal(t, date+"_5", doc.Tasks[0].TaskID)
		require.Equal(t, date+"_6", doc.Tasks[1].TaskID)
	})

	t.Run("empty task list deletes the document", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{sentenceTask("", "one")},
		})
		require.NoError(t, err)

		doc, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{})
		require.NoError(t, err)
		require.Nil(t, doc)

		stored, err := env.assignments.Get(teacherCtx(), "s1", date)
		require.NoError(t, err)
		require.Nil(t, stored)
	})

	t.Run("rejects unknown module", func(t *testing.T) {
		env := newTestEnv(t)

		task := sentenceTask("", "x")
		task.Type = "grammar"
		_, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{task},
		})
		require.ErrorIs(t, err, ErrUnknownModule)
	})

	t.Run("rejects bad date key", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.assignments.Assign(teacherCtx(), "s1", "2026-01-15", AssignRequest{
			Tasks: []domain.TaskDescriptor{sentenceTask("", "x")},
		})
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("students cannot assign", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.assignments.Assign(studentCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{sentenceTask("", "x")},
		})
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("publishes task assigned event", func(t *testing.T) {
		env := newTestEnv(t)
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		producer := mocks.NewMockEventProducer(ctrl)
		producer.EXPECT().
			Send(gomock.Any(), TopicTaskAssigned, "s1", gomock.Any()).
			Return(nil)

		svc := NewAssignmentService(env.asgRepo, domain.DefaultRegistry(), producer, logger.NewNop(), time.UTC)
		_, err := svc.Assign(teacherCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{sentenceTask("", "x")},
		})
		require.NoError(t, err)
	})
}

func TestAssignmentService_RemoveTask(t *testing.T) {
	const date = "20260115"

	t.Run("removes one task and keeps the rest", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{
				sentenceTask("", "one"),
				sentenceTask("", "two"),
			},
		})
		require.NoError(t, err)

		require.NoError(t, env.assignments.RemoveTask(teacherCtx(), "s1", date+"_1"))

		doc, err := env.assignments.Get(teacherCtx(), "s1", date)
		require.NoError(t, err)
		require.Equal(t, []string{date + "_2"}, doc.TaskIDs())
	})

	t.Run("removing the last task deletes the document", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{
			Tasks: []domain.TaskDescriptor{sentenceTask("", "only")},
		})
		require.NoError(t, err)

		require.NoError(t, env.assignments.RemoveTask(teacherCtx(), "s1", date+"_1"))

		doc, err := env.assignments.Get(teacherCtx(), "s1", date)
		require.NoError(t, err)
		require.Nil(t, doc)
	})

	t.Run("absent document is a no-op", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.assignments.RemoveTask(teacherCtx(), "s1", date+"_9"))
	})

	t.Run("rejects malformed task id", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.assignments.RemoveTask(teacherCtx(), "s1", "not-a-task-id")
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestAssignmentService_RemoveTasksByType(t *testing.T) {
	const date = "20260115"
	env := newTestEnv(t)

	reading := sentenceTask("", "read me")
	reading.Type = domain.ModuleReading
	_, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{
		Tasks: []domain.TaskDescriptor{sentenceTask("", "dictate me"), reading},
	})
	require.NoError(t, err)

	require.NoError(t, env.assignments.RemoveTasksByType(teacherCtx(), "s1", date, domain.ModuleReading))

	doc, err := env.assignments.Get(teacherCtx(), "s1", date)
	require.NoError(t, err)
	require.Len(t, doc.Tasks, 1)
	require.Equal(t, domain.ModuleDictation, doc.Tasks[0].Type)
}

func TestAssignmentService_BulkAssign(t *testing.T) {
	t.Run("one bad date does not abort the rest", func(t *testing.T) {
		env := newTestEnv(t)

		result, err := env.assignments.BulkAssign(teacherCtx(), "s1", []DatedAssignment{
			{Date: "20260115", Request: AssignRequest{Tasks: []domain.TaskDescriptor{sentenceTask("", "a")}}},
			{Date: "bad-date", Request: AssignRequest{Tasks: []domain.TaskDescriptor{sentenceTask("", "b")}}},
			{Date: "20260117", Request: AssignRequest{Tasks: []domain.TaskDescriptor{sentenceTask("", "c")}}},
		})
		require.NoError(t, err)
		require.Equal(t, 2, result.Success)
		require.Equal(t, 1, result.Failed)
		require.Len(t, result.Errors, 1)
		require.Equal(t, "bad-date", result.Errors[0].Date)

		doc, err := env.assignments.Get(teacherCtx(), "s1", "20260117")
		require.NoError(t, err)
		require.NotNil(t, doc)
	})

	t.Run("storage failure is reported per date", func(t *testing.T) {
		env := newTestEnv(t)

		env.store.FailOn = func(op, path string) error {
			if op == "set" && path == "users/s1/assignments/20260116" {
				return errors.New("backend down")
			}
			return nil
		}

		result, err := env.assignments.BulkAssign(teacherCtx(), "s1", []DatedAssignment{
			{Date: "20260115", Request: AssignRequest{Tasks: []domain.TaskDescriptor{sentenceTask("", "a")}}},
			{Date: "20260116", Request: AssignRequest{Tasks: []domain.TaskDescriptor{sentenceTask("", "b")}}},
		})
		require.NoError(t, err)
		require.Equal(t, 1, result.Success)
		require.Equal(t, 1, result.Failed)
		require.Contains(t, result.Errors[0].Error, "backend down")
	})
}

func TestAssignmentService_ClearAll(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	seed := func(t *testing.T, env *testEnv, offsetDays int, tasks ...domain.TaskDescriptor) string {
		t.Helper()
		date := taskid.FormatDateKey(time.Now().In(loc).AddDate(0, 0, offsetDays))
		_, err := env.assignments.Assign(teacherCtx(), "s1", date, AssignRequest{Tasks: tasks})
		require.NoError(t, err)
		return date
	}

	t.Run("clears whole documents in the window", func(t *testing.T) {
		env := newTestEnv(t)

		seed(t, env, 0, sentenceTask("", "today"))
		seed(t, env, 3, sentenceTask("", "soon"))
		past := seed(t, env, -1, sentenceTask("", "yesterday"))

		count, err := env.assignments.ClearAll(teacherCtx(), "s1", "")
		require.NoError(t, err)
		require.Equal(t, 2, count)

		// Past dates are outside the forward-only window.
		doc, err := env.assignments.Get(teacherCtx(), "s1", past)
		require.NoError(t, err)
		require.NotNil(t, doc)
	})

	t.Run("clears only the requested module type", func(t *testing.T) {
		env := newTestEnv(t)

		reading := sentenceTask("", "read")
		reading.Type = domain.ModuleReading
		date := seed(t, env, 1, sentenceTask("", "dictate"), reading)

		count, err := env.assignments.ClearAll(teacherCtx(), "s1", domain.ModuleReading)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		doc, err := env.assignments.Get(teacherCtx(), "s1", date)
		require.NoError(t, err)
		require.Len(t, doc.Tasks, 1)
		require.Equal(t, domain.ModuleDictation, doc.Tasks[0].Type)
	})

	t.Run("per date failures are skipped", func(t *testing.T) {
		env := newTestEnv(t)

		broken := seed(t, env, 0, sentenceTask("", "a"))
		seed(t, env, 1, sentenceTask("", "b"))

		env.store.FailOn = func(op, path string) error {
			if op == "delete" && path == fmt.Sprintf("users/s1/assignments/%s", broken) {
				return errors.New("backend down")
			}
			return nil
		}

		count, err := env.assignments.ClearAll(teacherCtx(), "s1", "")
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}
