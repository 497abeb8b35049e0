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

// OrphanService finds and removes submission documents whose task no
// longer appears in any live assignment. Roster deletions do not cascade
// by default, so orphans are a recurring, expected condition; this keeps
// their cleanup a first-class operation instead of an ad-hoc script.
type OrphanService struct {
	subRepo     *repository.SubmissionRepository
	asgRepo     *repository.AssignmentRepository
	rosterRepo  *repository.RosterRepository
	submissions *SubmissionService
	logger      *logger.Logger
	location    *time.Location
}

func NewOrphanService(
	subRepo *repository.SubmissionRepository,
	asgRepo *repository.AssignmentRepository,
	rosterRepo *repository.RosterRepository,
	submissions *SubmissionService,
	logger *logger.Logger,
	location *time.Location,
) *OrphanService {
	return &OrphanService{
		subRepo:     subRepo,
		asgRepo:     asgRepo,
		rosterRepo:  rosterRepo,
		submissions: submissions,
		logger:      logger,
		location:    location,
	}
}

// OrphanRecord describes one submission document with no live assignment
// entry.
type OrphanRecord struct {
	StudentID string              `json:"studentId"`
	DocID     string              `json:"docId"`
	TaskID    string              `json:"taskId,omitempty"`
	DateKey   string              `json:"dateKey"`
	Modules   []domain.ModuleType `json:"modules,omitempty"`
	Reason    string              `json:"reason"`
}

// Scan inspects every submission document for one student whose date falls
// within windowDays of today (past and future) and reports the ones not
// backed by a live assignment entry. Nothing is deleted.
func (s *OrphanService) Scan(ctx context.Context, studentID string, windowDays int) ([]OrphanRecord, error) {
	if err := s.requireTeacher(ctx); err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrInvalidArgument)
	}

	stored, err := s.subRepo.List(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var orphans []OrphanRecord
	assignments := make(map[string]*domain.AssignmentDocument)

	for _, sub := range stored {
		dateKey, err := taskid.DateOf(sub.DocID)
		if err != nil {
			// Legacy documents are keyed by a bare date.
			dateKey = sub.DocID
		}
		if !taskid.ValidDateKey(dateKey) || !s.inWindow(dateKey, windowDays) {
			continue
		}

		doc, ok := assignments[dateKey]
		if !ok {
			var err error
			doc, err = s.asgRepo.Get(ctx, studentID, dateKey)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				s.logger.Error("failed to read assignment during orphan scan",
					zap.String("student_id", studentID),
					zap.String("date", dateKey),
					zap.Error(err),
				)
				continue
			}
			assignments[dateKey] = doc
		}

		record := OrphanRecord{
			StudentID: studentID,
			DocID:     sub.DocID,
			DateKey:   dateKey,
		}
		for id := range sub.Document.Modules {
			record.Modules = append(record.Modules, id)
		}
		if sub.DocID != dateKey {
			record.TaskID = sub.DocID
		}

		switch {
		case doc == nil:
			record.Reason = "no assignment document for date"
		case record.TaskID != "" && !doc.HasTask(record.TaskID):
			record.Reason = "task id absent from assignment list"
		default:
			continue
		}
		orphans = append(orphans, record)
	}
	return orphans, nil
}

// CleanupResult reports an orphan cleanup pass.
type CleanupResult struct {
	Scanned int      `json:"scanned"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}

// Cleanup deletes every orphan Scan finds, via the same cascade path a
// manual delete takes. Per-record failures are collected, not fatal.
func (s *OrphanService) Cleanup(ctx context.Context, studentID string, windowDays int) (*CleanupResult, error) {
	orphans, err := s.Scan(ctx, studentID, windowDays)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{Scanned: len(orphans)}
	for _, o := range orphans {
		if o.TaskID != "" {
			if _, err := s.submissions.CascadeDelete(ctx, studentID, o.TaskID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.TaskID, err))
				continue
			}
		} else {
			if err := s.subRepo.Delete(ctx, studentID, o.DocID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.DocID, err))
				continue
			}
		}
		result.Deleted++
	}

	s.logger.Info("orphan cleanup finished",
		zap.String("student_id", studentID),
		zap.Int("scanned", result.Scanned),
		zap.Int("deleted", result.Deleted),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// ScanAll runs Scan over the whole roster; used by the background sweep.
func (s *OrphanService) ScanAll(ctx context.Context, windowDays int) ([]OrphanRecord, error) {
	roster, err := s.rosterRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	var all []OrphanRecord
	for _, student := range roster {
		orphans, err := s.Scan(ctx, student.StudentID, windowDays)
		if err != nil {
			s.logger.Error("orphan scan failed for student",
				zap.String("student_id", student.StudentID),
				zap.Error(err),
			)
			continue
		}
		all = append(all, orphans...)
	}
	return all, nil
}

func (s *OrphanService) inWindow(dateKey string, windowDays int) bool {
	t, err := time.ParseInLocation("20060102", dateKey, s.location)
	if err != nil {
		return false
	}
	now := time.Now().In(s.location)
	diff := now.Sub(t)
	window := time.Duration(windowDays) * 24 * time.Hour
	return diff <= window && diff >= -window
}

func (s *OrphanService) requireTeacher(ctx context.Context) error {
	role, ok := ctxdata.GetUserRole(ctx)
	if !ok || role != string(domain.RoleTeacher) {
		return ErrPermissionDenied
	}
	return nil
}
