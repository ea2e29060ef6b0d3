package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/db"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/repository"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/google/uuid"
)

// DefaultCurrency is used for projects created without one.
const DefaultCurrency = "USD"

type projectService struct {
	projects repository.ProjectRepo
	uow      db.UnitOfWork
	currency string
	observer UseCaseObserver
}

// NewProjectService creates projects together with their level-1 root node.
// An empty currency falls back to DefaultCurrency.
func NewProjectService(projects repository.ProjectRepo, uow db.UnitOfWork, currency string, observers ...UseCaseObserver) ProjectService {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &projectService{
		projects: projects,
		uow:      uow,
		currency: currency,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *projectService) Create(ctx context.Context, p *domain.Project) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"short_id": p.ShortID}
	defer func() { observe(ctx, s.observer, "create-project", startedAt, fields, err) }()

	if err = prepareProject(p, s.currency, startedAt); err != nil {
		return err
	}
	root := domain.NewRoot(p.ID, p.Name, startedAt)
	rollup.ProcessCompleteNode(root)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteProjectRepo(tx).Create(ctx, p); err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		return repository.NewSQLiteTreeStore(tx).Save(ctx, p.ID, root)
	})
	if err != nil {
		return err
	}
	p.RootID = root.ID
	fields["project_id"] = p.ID
	return nil
}

// prepareProject normalizes and validates a project before its first write.
func prepareProject(p *domain.Project, currency string, now time.Time) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	p.ShortID = strings.ToUpper(strings.TrimSpace(p.ShortID))
	if err := p.ValidateShortID(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Currency == "" {
		p.Currency = currency
	}
	p.Currency = strings.ToUpper(p.Currency)
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *projectService) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *projectService) GetByShortID(ctx context.Context, shortID string) (*domain.Project, error) {
	return s.projects.GetByShortID(ctx, shortID)
}

func (s *projectService) Resolve(ctx context.Context, ref string) (*domain.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: project reference is required", ErrInvalidInput)
	}
	p, err := s.projects.GetByShortID(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	p, err = s.projects.GetByID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", ref, repository.ErrNotFound)
	}
	return p, nil
}

func (s *projectService) List(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx)
}

// Rename changes the project name and the root node's name with it.
func (s *projectService) Rename(ctx context.Context, id, name string) (err error) {
	startedAt := time.Now().UTC()
	defer func() { observe(ctx, s.observer, "rename-project", startedAt, map[string]any{"project_id": id}, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		projects := repository.NewSQLiteProjectRepo(tx)
		store := repository.NewSQLiteTreeStore(tx)

		p, err := projects.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p.Name = name
		p.UpdatedAt = startedAt
		if err := projects.Update(ctx, p); err != nil {
			return err
		}

		root, err := store.Load(ctx, id)
		if err != nil {
			return err
		}
		root.Name = name
		root.UpdatedAt = startedAt
		return store.Save(ctx, id, root)
	})
}

func (s *projectService) Delete(ctx context.Context, id string) (err error) {
	startedAt := time.Now().UTC()
	defer func() { observe(ctx, s.observer, "delete-project", startedAt, map[string]any{"project_id": id}, err) }()

	return s.projects.Delete(ctx, id)
}
