package service

import (
	"context"
	"testing"
	"time"

	"practice_service/internal/cache"
	"practice_service/internal/docstore"
	"practice_service/internal/domain"
	"practice_service/internal/identity"
	"practice_service/internal/repository"
	"practice_service/pkg/ctxdata"
	"practice_service/pkg/logger"
)

// testEnv wires every service over in-memory backends. Producer is nil by
// default; tests that assert on events rebuild the service they need with
// a mock.
type testEnv struct {
	store      *docstore.MemoryStore
	cache      *cache.MemoryCache
	asgRepo    *repository.AssignmentRepository
	subRepo    *repository.SubmissionRepository
	rosterRepo *repository.RosterRepository

	assignments *AssignmentService
	submissions *SubmissionService
	reconciler  *Reconciler
	orphans     *OrphanService
	roster      *RosterService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	env := &testEnv{
		store: docstore.NewMemoryStore(),
		cache: cache.NewMemoryCache(),
	}
	env.asgRepo = repository.NewAssignmentRepository(env.store)
	env.subRepo = repository.NewSubmissionRepository(env.store)
	env.rosterRepo = repository.NewRosterRepository(env.store)

	log := logger.NewNop()
	registry := domain.DefaultRegistry()
	resolver := identity.NewResolver("@id.local", []string{"@naver.com", "@gmail.com"})

	env.assignments = NewAssignmentService(env.asgRepo, registry, nil, log, loc)
	env.submissions = NewSubmissionService(env.subRepo, env.asgRepo, env.rosterRepo, env.cache, registry, nil, log)
	env.reconciler = NewReconciler(env.submissions, env.assignments, env.cache, nil, log)
	env.orphans = NewOrphanService(env.subRepo, env.asgRepo, env.rosterRepo, env.submissions, log, loc)
	env.roster = NewRosterService(env.rosterRepo, env.asgRepo, env.subRepo, env.cache, resolver, RemovePreserve, log)
	return env
}

func teacherCtx() context.Context {
	ctx := ctxdata.WithUserRole(context.Background(), string(domain.RoleTeacher))
	return ctxdata.WithUserID(ctx, "teacher-1")
}

func studentCtx() context.Context {
	ctx := ctxdata.WithUserRole(context.Background(), string(domain.RoleStudent))
	return ctxdata.WithUserID(ctx, "student-1")
}

func sentenceTask(id string, sentences ...string) domain.TaskDescriptor {
	items := make([]domain.TaskItem, 0, len(sentences))
	for _, s := range sentences {
		items = append(items, domain.SentenceItem(s))
	}
	return domain.TaskDescriptor{
		TaskID: id,
		Type:   domain.ModuleDictation,
		Items:  items,
	}
}
