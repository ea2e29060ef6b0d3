package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/repository"
	"github.com/alexanderramin/wbs/internal/testutil"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) last() UseCaseEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

type services struct {
	db       *sql.DB
	projects ProjectService
	trees    TreeService
	alloc    AllocationService
	imports  ImportService
	exports  ExportService
	observer *recordingObserver
}

func setupServices(t *testing.T) *services {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	projectRepo := repository.NewSQLiteProjectRepo(database)
	store := repository.NewSQLiteTreeStore(database)
	obs := &recordingObserver{}
	return &services{
		db:       database,
		projects: NewProjectService(projectRepo, uow, "", obs),
		trees:    NewTreeService(store, uow, obs),
		alloc:    NewAllocationService(store, obs),
		imports:  NewImportService(uow, "", obs),
		exports:  NewExportService(projectRepo, store),
		observer: obs,
	}
}

// createProject creates a project and returns it with its empty root.
func (s *services) createProject(t *testing.T, name, shortID string) (*domain.Project, *domain.TreeNode) {
	t.Helper()
	ctx := context.Background()
	p := &domain.Project{Name: name, ShortID: shortID}
	require.NoError(t, s.projects.Create(ctx, p))
	root, err := s.trees.Tree(ctx, p.ID)
	require.NoError(t, err)
	return p, root
}

func (s *services) add(t *testing.T, projectID, parentID string, in NodeInput) *domain.TreeNode {
	t.Helper()
	n, err := s.trees.AddChild(context.Background(), projectID, parentID, in)
	require.NoError(t, err)
	return n
}

func datePtr(s string) *time.Time {
	return testutil.DatePtr(s)
}

func ptr[T any](v T) *T { return &v }
