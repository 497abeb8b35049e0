package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"practice_service/internal/domain"
	"practice_service/internal/repository"
	"practice_service/internal/taskid"
	"practice_service/pkg/ctxdata"
	"practice_service/pkg/logger"
)

// clearWindowDays bounds how far ahead ClearAll walks when sweeping
// assignments: today plus this many days.
const clearWindowDays = 30

type AssignmentService struct {
	repo     *repository.AssignmentRepository
	registry *domain.ModuleRegistry
	producer EventProducer
	logger   *logger.Logger
	location *time.Location
}

func NewAssignmentService(
	repo *repository.AssignmentRepository,
	registry *domain.ModuleRegistry,
	producer EventProducer,
	logger *logger.Logger,
	location *time.Location,
) *AssignmentService {
	return &AssignmentService{
		repo:     repo,
		registry: registry,
		producer: producer,
		logger:   logger,
		location: location,
	}
}

// AssignRequest carries a full replacement of one date's task list plus
// optional metadata overrides.
type AssignRequest struct {
	Tasks      []domain.TaskDescriptor `json:"tasks"`
	Status     string                  `json:"status,omitempty"`
	AssignedBy string                  `json:"assignedBy,omitempty"`
}

// Get returns the assignment for one date. Absence is an expected outcome
// and yields (nil, nil).
func (s *AssignmentService) Get(ctx context.Context, studentID, dateKey string) (*domain.AssignmentDocument, error) {
	if !taskid.ValidDateKey(dateKey) {
		return nil, fmt.Errorf("%w: bad date key %q", ErrInvalidArgument, dateKey)
	}

	doc, err := s.repo.Get(ctx, studentID, dateKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Assign replaces the task list for one date. An empty list deletes the
// document instead of writing it. Tasks without ids get the next free
// sequence for the date; metadata stamps default to now and "teacher".
func (s *AssignmentService) Assign(ctx context.Context, studentID, dateKey string, req AssignRequest) (*domain.AssignmentDocument, error) {
	if err := s.requireTeacher(ctx); err != nil {
		return nil, err
	}
	if !taskid.ValidDateKey(dateKey) {
		return nil, fmt.Errorf("%w: bad date key %q", ErrInvalidArgument, dateKey)
	}

	if len(req.Tasks) == 0 {
		if err := s.repo.Delete(ctx, studentID, dateKey); err != nil {
			return nil, err
		}
		s.logger.Info("assignment cleared",
			zap.String("student_id", studentID),
			zap.String("date", dateKey),
		)
		return nil, nil
	}

	tasks, err := s.prepareTasks(req.Tasks, dateKey)
	if err != nil {
		return nil, err
	}

	now := domain.NowMillis()
	doc := &domain.AssignmentDocument{
		Tasks:       tasks,
		Date:        dateKey,
		Status:      req.Status,
		AssignedBy:  req.AssignedBy,
		AssignedAt:  now,
		LastUpdated: now,
	}
	if doc.Status == "" {
		doc.Status = domain.AssignmentStatusAssigned
	}
	if doc.AssignedBy == "" {
		doc.AssignedBy = "teacher"
	}

	if err := s.repo.Put(ctx, studentID, dateKey, doc); err != nil {
		return nil, err
	}

	s.publish(ctx, TopicTaskAssigned, studentID, map[string]interface{}{
		"studentId": studentID,
		"date":      dateKey,
		"taskIds":   doc.TaskIDs(),
	})

	s.logger.Info("assignment stored",
		zap.String("student_id", studentID),
		zap.String("date", dateKey),
		zap.Int("tasks", len(doc.Tasks)),
	)
	return doc, nil
}

// prepareTasks validates each task and fills in defaults: sequence-derived
// ids, unit playback rate, sentence source type and the assignment stamp.
func (s *AssignmentService) prepareTasks(tasks []domain.TaskDescriptor, dateKey string) ([]domain.TaskDescriptor, error) {
	now := domain.NowMillis()
	existing := make([]string, 0, len(tasks))
	out := make([]domain.TaskDescriptor, len(tasks))

	for i, t := range tasks {
		if !s.registry.IsRegistered(t.Type) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModule, t.Type)
		}
		if len(t.Items) == 0 {
			return nil, fmt.Errorf("%w: task without items", ErrInvalidArgument)
		}
		if t.Rate < 0 {
			return nil, fmt.Errorf("%w: negative playback rate", ErrInvalidArgument)
		}
		if t.Rate == 0 {
			t.Rate = 1.0
		}
		if t.SourceType == "" {
			t.SourceType = domain.SourceSentence
		}
		if !t.SourceType.IsValid() {
			return nil, fmt.Errorf("%w: bad source type %q", ErrInvalidArgument, t.SourceType)
		}
		if t.TaskID == "" {
			id, err := taskid.Generate(dateKey, taskid.NextSequence(existing, dateKey))
			if err != nil {
				return nil, err
			}
			t.TaskID = id
		}
		if t.AssignedAt == 0 {
			t.AssignedAt = now
		}
		existing = append(existing, t.TaskID)
		out[i] = t
	}
	return out, nil
}

// RemoveTask drops one task from its date's assignment under CAS,
// deleting the document when the list empties. Removing from an absent
// document is a no-op.
func (s *AssignmentService) RemoveTask(ctx context.Context, studentID, taskID string) error {
	if err := s.requireTeacher(ctx); err != nil {
		return err
	}

	dateKey, err := taskid.DateOf(taskID)
	if err != nil || !taskid.ValidDateKey(dateKey) {
		return fmt.Errorf("%w: bad task id %q", ErrInvalidArgument, taskID)
	}

	return s.repo.Mutate(ctx, studentID, dateKey, func(doc *domain.AssignmentDocument) (*domain.AssignmentDocument, error) {
		if doc == nil {
			return nil, nil
		}
		filtered := doc.Tasks[:0:0]
		for _, t := range doc.Tasks {
			if t.TaskID != taskID {
				filtered = append(filtered, t)
			}
		}
		doc.Tasks = filtered
		doc.LastUpdated = domain.NowMillis()
		return doc, nil
	})
}

// RemoveTasksByType drops every task of one module type from a date.
func (s *AssignmentService) RemoveTasksByType(ctx context.Context, studentID, dateKey string, module domain.ModuleType) error {
	if err := s.requireTeacher(ctx); err != nil {
		return err
	}

	return s.repo.Mutate(ctx, studentID, dateKey, func(doc *domain.AssignmentDocument) (*domain.AssignmentDocument, error) {
		if doc == nil {
			return nil, nil
		}
		filtered := doc.Tasks[:0:0]
		for _, t := range doc.Tasks {
			if t.Type != module {
				filtered = append(filtered, t)
			}
		}
		doc.Tasks = filtered
		doc.LastUpdated = domain.NowMillis()
		return doc, nil
	})
}

// DatedAssignment is one (date, request) pair in a bulk run.
type DatedAssignment struct {
	Date    string        `json:"date"`
	Request AssignRequest `json:"request"`
}

// BulkResult reports a bulk assignment run; failures never roll back
// earlier successes.
type BulkResult struct {
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
	Errors  []BulkError `json:"errors,omitempty"`
}

type BulkError struct {
	Date  string `json:"date"`
	Error string `json:"error"`
}

// BulkAssign applies Assign per date sequentially; one date's failure does
// not abort the rest.
func (s *AssignmentService) BulkAssign(ctx context.Context, studentID string, assignments []DatedAssignment) (*BulkResult, error) {
	if err := s.requireTeacher(ctx); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, a := range assignments {
		if _, err := s.Assign(ctx, studentID, a.Date, a.Request); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkError{Date: a.Date, Error: err.Error()})
			continue
		}
		result.Success++
	}

	s.logger.Info("bulk assignment finished",
		zap.String("student_id", studentID),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// ClearAll walks today through today+30 days and removes assignments: whole
// documents when module is empty, matching-type tasks otherwise. Per-date
// errors are logged and skipped; the count of touched dates is returned.
func (s *AssignmentService) ClearAll(ctx context.Context, studentID string, module domain.ModuleType) (int, error) {
	if err := s.requireTeacher(ctx); err != nil {
		return 0, err
	}

	deleted := 0
	today := time.Now().In(s.location)
	for i := 0; i <= clearWindowDays; i++ {
		dateKey := taskid.FormatDateKey(today.AddDate(0, 0, i))

		doc, err := s.repo.Get(ctx, studentID, dateKey)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error("failed to read assignment during clear",
				zap.String("student_id", studentID),
				zap.String("date", dateKey),
				zap.Error(err),
			)
			continue
		}

		if module == "" {
			if err := s.repo.Delete(ctx, studentID, dateKey); err != nil {
				s.logger.Error("failed to delete assignment during clear",
					zap.String("student_id", studentID),
					zap.String("date", dateKey),
					zap.Error(err),
				)
				continue
			}
			deleted++
			continue
		}

		if !doc.HasType(module) {
			continue
		}
		if err := s.RemoveTasksByType(ctx, studentID, dateKey, module); err != nil {
			s.logger.Error("failed to filter assignment during clear",
				zap.String("student_id", studentID),
				zap.String("date", dateKey),
				zap.Error(err),
			)
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *AssignmentService) requireTeacher(ctx context.Context) error {
	role, ok := ctxdata.GetUserRole(ctx)
	if !ok || role != string(domain.RoleTeacher) {
		return ErrPermissionDenied
	}
	return nil
}

func (s *AssignmentService) publish(ctx context.Context, topic, key string, message interface{}) {
	if s.producer == nil {
		return
	}
	if err := s.producer.Send(ctx, topic, key, message); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}
