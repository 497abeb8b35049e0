package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"practice_service/internal/cache"
	"practice_service/internal/domain"
	"practice_service/internal/repository"
	"practice_service/internal/taskid"
	"practice_service/pkg/ctxdata"
	"practice_service/pkg/logger"
)

type SubmissionService struct {
	subRepo    *repository.SubmissionRepository
	asgRepo    *repository.AssignmentRepository
	rosterRepo *repository.RosterRepository
	cache      cache.CompletionCache
	registry   *domain.ModuleRegistry
	producer   EventProducer
	logger     *logger.Logger
}

func NewSubmissionService(
	subRepo *repository.SubmissionRepository,
	asgRepo *repository.AssignmentRepository,
	rosterRepo *repository.RosterRepository,
	cache cache.CompletionCache,
	registry *domain.ModuleRegistry,
	producer EventProducer,
	logger *logger.Logger,
) *SubmissionService {
	return &SubmissionService{
		subRepo:    subRepo,
		asgRepo:    asgRepo,
		rosterRepo: rosterRepo,
		cache:      cache,
		registry:   registry,
		producer:   producer,
		logger:     logger,
	}
}

// SubmitRequest is one module's payload for one task. Date is the legacy
// document key used when no task id is supplied.
type SubmitRequest struct {
	Date            string                 `json:"date,omitempty"`
	Score           *float64               `json:"score,omitempty"`
	CorrectText     string                 `json:"correctText,omitempty"`
	ReadingText     string                 `json:"readingText,omitempty"`
	ImageURL        string                 `json:"imageUrl,omitempty"`
	SubmittedPhoto  string                 `json:"submittedPhoto,omitempty"`
	SentenceIndex   *int                   `json:"sentenceIndex,omitempty"`
	PlaybackRate    *float64               `json:"playbackRate,omitempty"`
	MissionProgress map[string]interface{} `json:"missionProgress,omitempty"`
}

// Submit merge-writes one module's record into the submission document for
// taskID, or for the request date on the legacy path. Other modules'
// records on the same document are untouched.
func (s *SubmissionService) Submit(ctx context.Context, studentID, taskID string, module domain.ModuleType, req SubmitRequest) (*domain.ModuleRecord, error) {
	if !s.registry.IsRegistered(module) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}

	docID := taskID
	if docID == "" {
		if !taskid.ValidDateKey(req.Date) {
			return nil, fmt.Errorf("%w: submission needs a task id or a date", ErrInvalidArgument)
		}
		docID = req.Date
	}

	rec := domain.ModuleRecord{
		SubmittedAt:     domain.NowMillis(),
		ModuleID:        module,
		TaskID:          taskID,
		Score:           req.Score,
		CorrectText:     req.CorrectText,
		ReadingText:     req.ReadingText,
		ImageURL:        req.ImageURL,
		SubmittedPhoto:  req.SubmittedPhoto,
		SentenceIndex:   req.SentenceIndex,
		PlaybackRate:    req.PlaybackRate,
		MissionProgress: req.MissionProgress,
	}

	if err := s.subRepo.Merge(ctx, studentID, docID, module, rec); err != nil {
		return nil, err
	}

	s.publish(ctx, TopicTaskSubmitted, studentID, map[string]interface{}{
		"studentId": studentID,
		"taskId":    taskID,
		"module":    module,
	})

	s.logger.Info("submission stored",
		zap.String("student_id", studentID),
		zap.String("doc_id", docID),
		zap.String("module", string(module)),
	)
	return &rec, nil
}

// Latest returns the most recent module record for taskID, or (nil, nil)
// when nothing valid was submitted — absence is not an error.
func (s *SubmissionService) Latest(ctx context.Context, studentID, taskID string) (*domain.ModuleRecord, error) {
	doc, err := s.subRepo.Get(ctx, studentID, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Latest(), nil
}

// Completion is the point lookup of one module's record for taskID;
// (nil, nil) when absent.
func (s *SubmissionService) Completion(ctx context.Context, studentID, taskID string, module domain.ModuleType) (*domain.ModuleRecord, error) {
	doc, err := s.subRepo.Get(ctx, studentID, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Modules[module]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// ClearModuleCompletion deletes one module's record from a date- or
// task-keyed submission document. Absence at any level is a no-op.
func (s *SubmissionService) ClearModuleCompletion(ctx context.Context, studentID, docID string, module domain.ModuleType) error {
	return s.subRepo.DeleteModule(ctx, studentID, docID, module)
}

// StudentSubmissions is one roster row in a date-wide submission report.
type StudentSubmissions struct {
	Student       *domain.RosterEntry        `json:"student"`
	Submissions   *domain.SubmissionDocument `json:"submissions,omitempty"`
	HasSubmission bool                       `json:"hasSubmission"`
}

// AllForDate sweeps the whole roster for one date's legacy-keyed
// submission documents, for the teacher console overview.
func (s *SubmissionService) AllForDate(ctx context.Context, dateKey string) ([]StudentSubmissions, error) {
	if !taskid.ValidDateKey(dateKey) {
		return nil, fmt.Errorf("%w: bad date key %q", ErrInvalidArgument, dateKey)
	}

	roster, err := s.rosterRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]StudentSubmissions, 0, len(roster))
	for _, student := range roster {
		row := StudentSubmissions{Student: student}
		doc, err := s.subRepo.Get(ctx, student.StudentID, dateKey)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			row.Submissions = doc
			row.HasSubmission = true
		}
		out = append(out, row)
	}
	return out, nil
}

// CascadeResult reports a cascade delete. Image blobs are deliberately
// preserved for cost reasons; their URLs are listed so an operator can
// clean them up out of band.
type CascadeResult struct {
	SubmissionDeleted bool     `json:"submissionDeleted"`
	AssignmentUpdated bool     `json:"assignmentUpdated"`
	PreservedImages   []string `json:"preservedImages,omitempty"`
	CacheCleared      int      `json:"cacheCleared"`
	Errors            []string `json:"errors,omitempty"`
}

// CascadeDelete removes a task's submission document, drops the task from
// its date's assignment, and sweeps the completion cache. Step failures
// are accumulated, not fatal.
func (s *SubmissionService) CascadeDelete(ctx context.Context, studentID, taskID string) (*CascadeResult, error) {
	role, ok := ctxdata.GetUserRole(ctx)
	if !ok || role != string(domain.RoleTeacher) {
		return nil, ErrPermissionDenied
	}

	dateKey, err := taskid.DateOf(taskID)
	if err != nil || !taskid.ValidDateKey(dateKey) {
		return nil, fmt.Errorf("%w: bad task id %q", ErrInvalidArgument, taskID)
	}

	result := &CascadeResult{}

	doc, err := s.subRepo.Get(ctx, studentID, taskID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		result.Errors = append(result.Errors, fmt.Sprintf("read submission: %v", err))
	default:
		for _, rec := range doc.Modules {
			if rec.ImageURL != "" {
				result.PreservedImages = append(result.PreservedImages, rec.ImageURL)
			}
		}
		if len(result.PreservedImages) > 0 {
			s.logger.Warn("image blobs preserved on cascade delete",
				zap.String("student_id", studentID),
				zap.String("task_id", taskID),
				zap.Int("images", len(result.PreservedImages)),
			)
		}

		if err := s.subRepo.Delete(ctx, studentID, taskID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete submission: %v", err))
		} else {
			result.SubmissionDeleted = true
		}
	}

	err = s.asgRepo.Mutate(ctx, studentID, dateKey, func(doc *domain.AssignmentDocument) (*domain.AssignmentDocument, error) {
		if doc == nil {
			return nil, nil
		}
		filtered := doc.Tasks[:0:0]
		for _, t := range doc.Tasks {
			if t.TaskID != taskID {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) != len(doc.Tasks) {
			result.AssignmentUpdated = true
		}
		doc.Tasks = filtered
		doc.LastUpdated = domain.NowMillis()
		return doc, nil
	})
	if err != nil {
		result.AssignmentUpdated = false
		result.Errors = append(result.Errors, fmt.Sprintf("update assignment: %v", err))
	}

	if err := s.cache.Delete(ctx, studentID, taskID); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("clear cache: %v", err))
	} else {
		result.CacheCleared++
	}
	if err := s.cache.DeleteLegacy(ctx, studentID, dateKey); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("clear legacy cache: %v", err))
	} else {
		result.CacheCleared++
	}

	s.logger.Info("cascade delete finished",
		zap.String("student_id", studentID),
		zap.String("task_id", taskID),
		zap.Bool("submission_deleted", result.SubmissionDeleted),
		zap.Bool("assignment_updated", result.AssignmentUpdated),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *SubmissionService) publish(ctx context.Context, topic, key string, message interface{}) {
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
