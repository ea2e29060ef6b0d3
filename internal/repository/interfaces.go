package repository

import (
	"context"

	"github.com/alexanderramin/wbs/internal/domain"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetByShortID(ctx context.Context, shortID string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id string) error
}

// NodeRepo stores tree nodes as flat rows. Children and Dependencies are
// not persisted by it; TreeStore reassembles them.
type NodeRepo interface {
	Create(ctx context.Context, n *domain.TreeNode) error
	GetByID(ctx context.Context, id string) (*domain.TreeNode, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.TreeNode, error)
	DeleteByProject(ctx context.Context, projectID string) error
}

type DependencyRepo interface {
	Create(ctx context.Context, nodeID, dependsOnID string, position int) error
	// ListByProject maps node id to its ordered dependency ids.
	ListByProject(ctx context.Context, projectID string) (map[string][]string, error)
	DeleteByProject(ctx context.Context, projectID string) error
}

// TreeStore loads and replaces a project's whole tree. Save writes the tree
// as given; callers run the rollup pipeline before saving.
type TreeStore interface {
	Load(ctx context.Context, projectID string) (*domain.TreeNode, error)
	Save(ctx context.Context, projectID string, root *domain.TreeNode) error
}
