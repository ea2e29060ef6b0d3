package service

import (
	"context"
	"io"
	"time"

	"github.com/alexanderramin/wbs/internal/budget"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/importer"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/alexanderramin/wbs/internal/scheduler"
)

type ProjectService interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetByShortID(ctx context.Context, shortID string) (*domain.Project, error)
	// Resolve accepts a short id or a full project id.
	Resolve(ctx context.Context, ref string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type TreeService interface {
	Tree(ctx context.Context, projectID string) (*domain.TreeNode, error)
	Node(ctx context.Context, projectID, nodeID string) (*domain.TreeNode, error)
	Summary(ctx context.Context, projectID string) (rollup.Summary, error)
	Progress(ctx context.Context, projectID, nodeID string) (int, error)
	AddChild(ctx context.Context, projectID, parentID string, in NodeInput) (*domain.TreeNode, error)
	UpdateNode(ctx context.Context, projectID, nodeID string, patch NodePatch) (*domain.TreeNode, error)
	DeleteNode(ctx context.Context, projectID, nodeID string) error
	ValidateSchedule(ctx context.Context, projectID string, in scheduler.ValidateInput) (scheduler.ValidationResult, error)
	CheckDependencies(ctx context.Context, projectID, nodeID string, dependencyIDs []string) ([]error, error)
	Recompute(ctx context.Context, projectID string) (*domain.TreeNode, error)
}

type AllocationService interface {
	Allocate(ctx context.Context, projectID string, req budget.Request) (*budget.Allocation, error)
}

// ImportOptions controls where an imported document lands. With ProjectID
// set the project's tree is replaced; otherwise a new project is created.
type ImportOptions struct {
	ProjectID string
	ShortID   string
	Name      string
}

// ImportResult holds the outcome of a document import.
type ImportResult struct {
	Project         *domain.Project
	Root            *domain.TreeNode
	NodeCount       int
	DependencyCount int
	Replaced        bool
}

type ImportService interface {
	ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error)
	ImportDocument(ctx context.Context, doc *importer.Document, opts ImportOptions) (*ImportResult, error)
}

type ExportService interface {
	Document(ctx context.Context, projectID string) (*importer.Document, error)
	Export(ctx context.Context, projectID string, format importer.Format, w io.Writer) error
}

// NodeInput describes a new child node.
type NodeInput struct {
	Name         string
	Cost         float64
	Start        *time.Time
	End          *time.Time
	DurationDays *int
	Status       domain.Status
	Responsible  string
	Description  string
	Dependencies []string
	TRL          *int
	// Override stores the node even when its schedule conflicts with its
	// dependencies.
	Override bool
}

// DateValue is a patch value for an explicit date; a nil Date clears it.
type DateValue struct {
	Date *time.Time
}

// NodePatch lists the fields to change on a node. Nil fields stay as they
// are. A negative DurationDays and a zero TRL clear the value.
type NodePatch struct {
	Name         *string
	Cost         *float64
	Start        *DateValue
	End          *DateValue
	DurationDays *int
	Status       *domain.Status
	Responsible  *string
	Description  *string
	Dependencies *[]string
	TRL          *int
	Override     bool
}

// touchesSchedule reports whether the patch can change the outcome of the
// dependency validator.
func (p NodePatch) touchesSchedule() bool {
	return p.Start != nil || p.End != nil || p.Dependencies != nil
}
