package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alexanderramin/wbs/internal/db"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/importer"
	"github.com/alexanderramin/wbs/internal/repository"
	"github.com/alexanderramin/wbs/internal/rollup"
)

type importService struct {
	uow      db.UnitOfWork
	currency string
	observer UseCaseObserver
}

// NewImportService stores decoded documents as project trees.
func NewImportService(uow db.UnitOfWork, currency string, observers ...UseCaseObserver) ImportService {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &importService{
		uow:      uow,
		currency: currency,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *importService) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	doc, _, err := importer.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.ImportDocument(ctx, doc, opts)
}

func (s *importService) ImportDocument(ctx context.Context, doc *importer.Document, opts ImportOptions) (result *ImportResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"project_id": opts.ProjectID}
	defer func() { observe(ctx, s.observer, "import-document", startedAt, fields, err) }()

	if errs := importer.Validate(doc); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, &importer.ValidationError{Errs: errs})
	}

	result = &ImportResult{}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		projects := repository.NewSQLiteProjectRepo(tx)
		store := repository.NewSQLiteTreeStore(tx)

		var project *domain.Project
		if opts.ProjectID != "" {
			p, err := projects.GetByID(ctx, opts.ProjectID)
			if err != nil {
				return err
			}
			project = p
			result.Replaced = true
		} else {
			p, err := s.newProject(doc, opts, startedAt)
			if err != nil {
				return err
			}
			if err := projects.Create(ctx, p); err != nil {
				return fmt.Errorf("creating project: %w", err)
			}
			project = p
		}

		root, err := importer.ToTree(doc, project.ID, startedAt)
		if err != nil {
			return fmt.Errorf("converting document: %w", err)
		}
		taken, err := idsTakenElsewhere(ctx, repository.NewSQLiteNodeRepo(tx), project.ID, root)
		if err != nil {
			return err
		}
		if taken {
			importer.RenumberIDs(root)
		}
		rollup.ProcessCompleteNode(root)
		if err := store.Save(ctx, project.ID, root); err != nil {
			return err
		}
		project.RootID = root.ID
		result.Project = project
		result.Root = root
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Root.Walk(func(n *domain.TreeNode) bool {
		result.NodeCount++
		result.DependencyCount += len(n.Dependencies)
		return true
	})
	fields["project_id"] = result.Project.ID
	fields["nodes"] = result.NodeCount
	fields["dependencies"] = result.DependencyCount
	fields["replaced"] = result.Replaced
	return result, nil
}

// idsTakenElsewhere reports whether any node id in root already belongs to
// another project, as happens when an export is imported a second time.
func idsTakenElsewhere(ctx context.Context, nodes repository.NodeRepo, projectID string, root *domain.TreeNode) (bool, error) {
	var taken bool
	var lookupErr error
	root.Walk(func(n *domain.TreeNode) bool {
		existing, err := nodes.GetByID(ctx, n.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return true
		case err != nil:
			lookupErr = err
			return false
		case existing.ProjectID != projectID:
			taken = true
			return false
		}
		return true
	})
	return taken, lookupErr
}

func (s *importService) newProject(doc *importer.Document, opts ImportOptions, now time.Time) (*domain.Project, error) {
	p := &domain.Project{
		ShortID:  domain.CoalesceStr(opts.ShortID, doc.Project.ShortID),
		Name:     domain.CoalesceStr(opts.Name, doc.Project.Name, doc.Root.Name),
		Currency: doc.Project.Currency,
	}
	if err := prepareProject(p, s.currency, now); err != nil {
		return nil, err
	}
	return p, nil
}

type exportService struct {
	projects repository.ProjectRepo
	store    repository.TreeStore
}

// NewExportService renders stored projects as documents.
func NewExportService(projects repository.ProjectRepo, store repository.TreeStore) ExportService {
	return &exportService{projects: projects, store: store}
}

func (s *exportService) Document(ctx context.Context, projectID string) (*importer.Document, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	root, err := s.store.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return importer.FromTree(p, root), nil
}

func (s *exportService) Export(ctx context.Context, projectID string, format importer.Format, w io.Writer) error {
	doc, err := s.Document(ctx, projectID)
	if err != nil {
		return err
	}
	if err := importer.Encode(format, w, doc); err != nil {
		if errors.Is(err, importer.ErrUnknownFormat) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return nil
}
