package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"practice_service/internal/cache"
	"practice_service/internal/domain"
	"practice_service/internal/identity"
	"practice_service/internal/repository"
	"practice_service/pkg/ctxdata"
	"practice_service/pkg/logger"
)

// RemovePolicy controls what happens to a student's stored work when the
// student is dropped from the roster.
type RemovePolicy string

const (
	// RemovePreserve keeps assignments and submissions; only the roster
	// entry goes away. The default.
	RemovePreserve RemovePolicy = "preserve"
	// RemoveCascade deletes every assignment and submission document for
	// the student along with the roster entry.
	RemoveCascade RemovePolicy = "cascade"
)

func ParseRemovePolicy(raw string) (RemovePolicy, error) {
	switch RemovePolicy(raw) {
	case RemovePreserve, RemoveCascade:
		return RemovePolicy(raw), nil
	case "":
		return RemovePreserve, nil
	}
	return "", fmt.Errorf("%w: unknown remove policy %q", ErrInvalidArgument, raw)
}

type RosterService struct {
	repo     *repository.RosterRepository
	asgRepo  *repository.AssignmentRepository
	subRepo  *repository.SubmissionRepository
	cache    cache.CompletionCache
	resolver *identity.Resolver
	policy   RemovePolicy
	logger   *logger.Logger
}

func NewRosterService(
	repo *repository.RosterRepository,
	asgRepo *repository.AssignmentRepository,
	subRepo *repository.SubmissionRepository,
	cache cache.CompletionCache,
	resolver *identity.Resolver,
	policy RemovePolicy,
	logger *logger.Logger,
) *RosterService {
	return &RosterService{
		repo:     repo,
		asgRepo:  asgRepo,
		subRepo:  subRepo,
		cache:    cache,
		resolver: resolver,
		policy:   policy,
		logger:   logger,
	}
}

type AddStudentRequest struct {
	StudentID   string `json:"studentId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// AddStudent registers a student on the roster. A bare identifier is
// normalized into a full student account email; a missing id gets a fresh
// one. Re-adding an existing student updates the display name in place.
func (s *RosterService) AddStudent(ctx context.Context, req AddStudentRequest) (*domain.RosterEntry, error) {
	if err := s.requireTeacher(ctx); err != nil {
		return nil, err
	}

	email := s.resolver.Normalize(req.Email)
	if email != "" && s.resolver.Resolve(email) != domain.RoleStudent {
		return nil, fmt.Errorf("%w: %q is not a student account", ErrInvalidArgument, email)
	}

	studentID := req.StudentID
	if studentID == "" {
		studentID = uuid.NewString()
	}

	entry := &domain.RosterEntry{
		StudentID:   studentID,
		Email:       email,
		DisplayName: req.DisplayName,
		CreatedAt:   domain.NowMillis(),
		Active:      true,
	}
	if userID, ok := ctxdata.GetUserID(ctx); ok {
		entry.CreatedBy = userID
	}

	if existing, err := s.repo.Get(ctx, studentID); err == nil {
		entry.CreatedAt = existing.CreatedAt
		entry.CreatedBy = existing.CreatedBy
		if entry.Email == "" {
			entry.Email = existing.Email
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if err := s.repo.Put(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("roster entry stored",
		zap.String("student_id", entry.StudentID),
		zap.String("email", entry.Email))
	return entry, nil
}

// ListStudents returns the roster sorted by display name.
func (s *RosterService) ListStudents(ctx context.Context) ([]*domain.RosterEntry, error) {
	if err := s.requireTeacher(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// RemoveResult reports what a roster removal touched.
type RemoveResult struct {
	Policy             RemovePolicy `json:"policy"`
	AssignmentsDeleted int          `json:"assignmentsDeleted"`
	SubmissionsDeleted int          `json:"submissionsDeleted"`
	Errors             []string     `json:"errors,omitempty"`
}

// RemoveStudent drops a student from the roster. Under the cascade policy
// every assignment and submission document for the student is deleted too;
// document failures are accumulated so one bad path cannot strand the rest.
func (s *RosterService) RemoveStudent(ctx context.Context, studentID string) (*RemoveResult, error) {
	if err := s.requireTeacher(ctx); err != nil {
		return nil, err
	}
	if studentID == "" {
		return nil, fmt.Errorf("%w: student id is required", ErrInvalidArgument)
	}

	result := &RemoveResult{Policy: s.policy}

	if s.policy == RemoveCascade {
		s.cascade(ctx, studentID, result)
	}

	if err := s.repo.Delete(ctx, studentID); err != nil {
		return result, err
	}

	s.logger.Info("student removed from roster",
		zap.String("student_id", studentID),
		zap.String("policy", string(s.policy)),
		zap.Int("assignments_deleted", result.AssignmentsDeleted),
		zap.Int("submissions_deleted", result.SubmissionsDeleted))
	return result, nil
}

func (s *RosterService) cascade(ctx context.Context, studentID string, result *RemoveResult) {
	assignments, err := s.asgRepo.List(ctx, studentID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list assignments: %v", err))
	}
	for _, a := range assignments {
		if err := s.asgRepo.Delete(ctx, studentID, a.DateKey); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete assignment %s: %v", a.DateKey, err))
			continue
		}
		result.AssignmentsDeleted++
	}

	submissions, err := s.subRepo.List(ctx, studentID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list submissions: %v", err))
	}
	for _, sub := range submissions {
		if err := s.subRepo.Delete(ctx, studentID, sub.DocID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete submission %s: %v", sub.DocID, err))
			continue
		}
		result.SubmissionsDeleted++
		if err := s.cache.Delete(ctx, studentID, sub.DocID); err != nil {
			s.logger.Warn("failed to clear completion cache",
				zap.String("student_id", studentID),
				zap.String("task_id", sub.DocID),
				zap.Error(err))
		}
	}
}

func (s *RosterService) requireTeacher(ctx context.Context) error {
	role, ok := ctxdata.GetUserRole(ctx)
	if !ok || role != string(domain.RoleTeacher) {
		return ErrPermissionDenied
	}
	return nil
}
