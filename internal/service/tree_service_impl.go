package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/db"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/repository"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/alexanderramin/wbs/internal/scheduler"
)

type treeService struct {
	store    repository.TreeStore
	uow      db.UnitOfWork
	observer UseCaseObserver
	now      func() time.Time
}

// NewTreeService edits project trees. Every mutation loads the tree, applies
// the change, reruns the rollup pipeline and saves the result in one
// transaction.
func NewTreeService(store repository.TreeStore, uow db.UnitOfWork, observers ...UseCaseObserver) TreeService {
	return &treeService{
		store:    store,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *treeService) Tree(ctx context.Context, projectID string) (*domain.TreeNode, error) {
	return s.store.Load(ctx, projectID)
}

func (s *treeService) Node(ctx context.Context, projectID, nodeID string) (*domain.TreeNode, error) {
	root, err := s.store.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return findNode(root, nodeID)
}

func (s *treeService) Summary(ctx context.Context, projectID string) (rollup.Summary, error) {
	root, err := s.store.Load(ctx, projectID)
	if err != nil {
		return rollup.Summary{}, err
	}
	return rollup.Summarize(root), nil
}

func (s *treeService) Progress(ctx context.Context, projectID, nodeID string) (int, error) {
	n, err := s.Node(ctx, projectID, nodeID)
	if err != nil {
		return 0, err
	}
	return rollup.PercentComplete(n), nil
}

func (s *treeService) AddChild(ctx context.Context, projectID, parentID string, in NodeInput) (*domain.TreeNode, error) {
	fields := map[string]any{"project_id": projectID, "parent_id": parentID}
	var child *domain.TreeNode
	_, err := s.mutate(ctx, "add-node", projectID, fields, func(root *domain.TreeNode, now time.Time) error {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return fmt.Errorf("%w: node name is required", ErrInvalidInput)
		}
		parent, err := findNode(root, parentID)
		if err != nil {
			return err
		}
		child, err = domain.NewChild(parent, name, now)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		fields["node_id"] = child.ID
		child.Cost = in.Cost
		child.DurationDays = copyInt(in.DurationDays)
		child.Responsible = in.Responsible
		child.Description = in.Description
		child.TRL = copyInt(in.TRL)
		if in.Status != "" {
			child.Status = in.Status
		}
		if in.Start != nil {
			child.Start = domain.Explicit(*in.Start)
		}
		if in.End != nil {
			child.End = domain.Explicit(*in.End)
		}
		if err := child.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if len(in.Dependencies) > 0 {
			if err := assignDependencies(root, child, in.Dependencies); err != nil {
				return err
			}
		}
		if in.Start != nil || in.End != nil || len(in.Dependencies) > 0 {
			return checkSchedule(root, child, in.Override)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return child.Clone(), nil
}

func (s *treeService) UpdateNode(ctx context.Context, projectID, nodeID string, patch NodePatch) (*domain.TreeNode, error) {
	fields := map[string]any{"project_id": projectID, "node_id": nodeID, "override": patch.Override}
	var node *domain.TreeNode
	_, err := s.mutate(ctx, "update-node", projectID, fields, func(root *domain.TreeNode, now time.Time) error {
		var err error
		node, err = findNode(root, nodeID)
		if err != nil {
			return err
		}
		if err := applyPatch(node, patch); err != nil {
			return err
		}
		if patch.Dependencies != nil {
			if err := assignDependencies(root, node, *patch.Dependencies); err != nil {
				return err
			}
		}
		node.UpdatedAt = now
		if patch.touchesSchedule() {
			return checkSchedule(root, node, patch.Override)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node.Clone(), nil
}

// DeleteNode removes the node's subtree and strips references to removed
// nodes from the remaining dependencies. The root cannot be removed; it is
// reset to an empty project instead.
func (s *treeService) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	fields := map[string]any{"project_id": projectID, "node_id": nodeID}
	_, err := s.mutate(ctx, "delete-node", projectID, fields, func(root *domain.TreeNode, now time.Time) error {
		if root.ID == nodeID {
			domain.ResetRoot(root, now)
			fields["reset_root"] = true
			return nil
		}
		idx := domain.NewIndex(root)
		target := idx.Get(nodeID)
		if target == nil {
			return fmt.Errorf("node %s: %w", nodeID, repository.ErrNotFound)
		}
		removed := make(map[string]bool)
		target.Walk(func(n *domain.TreeNode) bool {
			removed[n.ID] = true
			return true
		})
		parent := idx.Parent(nodeID)
		domain.RemoveChild(parent, nodeID)
		parent.UpdatedAt = now

		root.Walk(func(n *domain.TreeNode) bool {
			n.Dependencies = stripDependencies(n.Dependencies, removed)
			return true
		})
		fields["removed"] = len(removed)
		return nil
	})
	return err
}

func (s *treeService) ValidateSchedule(ctx context.Context, projectID string, in scheduler.ValidateInput) (scheduler.ValidationResult, error) {
	root, err := s.store.Load(ctx, projectID)
	if err != nil {
		return scheduler.ValidationResult{}, err
	}
	return scheduler.Validate(root, in), nil
}

func (s *treeService) CheckDependencies(ctx context.Context, projectID, nodeID string, dependencyIDs []string) ([]error, error) {
	root, err := s.store.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := findNode(root, nodeID); err != nil {
		return nil, err
	}
	return scheduler.CheckDependencies(root, nodeID, dependencyIDs), nil
}

// Recompute reruns the rollup pipeline over the stored tree and saves it.
func (s *treeService) Recompute(ctx context.Context, projectID string) (*domain.TreeNode, error) {
	return s.mutate(ctx, "recompute", projectID, map[string]any{"project_id": projectID},
		func(*domain.TreeNode, time.Time) error { return nil })
}

// mutate runs fn against the stored tree inside a transaction, then derives
// costs and dates and saves the tree. Nothing is written when fn fails.
func (s *treeService) mutate(
	ctx context.Context,
	name, projectID string,
	fields map[string]any,
	fn func(root *domain.TreeNode, now time.Time) error,
) (root *domain.TreeNode, err error) {
	startedAt := s.now()
	defer func() { observe(ctx, s.observer, name, startedAt, fields, err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		store := repository.NewSQLiteTreeStore(tx)
		loaded, err := store.Load(ctx, projectID)
		if err != nil {
			return err
		}
		if err := fn(loaded, startedAt); err != nil {
			return err
		}
		rollup.ProcessCompleteNode(loaded)
		if err := store.Save(ctx, projectID, loaded); err != nil {
			return err
		}
		root = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["nodes"] = domain.NewIndex(root).Len()
	return root, nil
}

func findNode(root *domain.TreeNode, id string) (*domain.TreeNode, error) {
	n := domain.Find(root, id)
	if n == nil {
		return nil, fmt.Errorf("node %s: %w", id, repository.ErrNotFound)
	}
	return n, nil
}

func applyPatch(n *domain.TreeNode, p NodePatch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return fmt.Errorf("%w: node name is required", ErrInvalidInput)
		}
		n.Name = name
	}
	if p.Cost != nil {
		n.Cost = *p.Cost
	}
	if p.Start != nil {
		n.Start.Explicit = truncatedCopy(p.Start.Date)
	}
	if p.End != nil {
		n.End.Explicit = truncatedCopy(p.End.Date)
	}
	switch {
	case p.DurationDays != nil && *p.DurationDays < 0:
		n.DurationDays = nil
	case p.DurationDays != nil:
		n.DurationDays = copyInt(p.DurationDays)
	case p.Start != nil || p.End != nil:
		// Dates moved without a new duration: derive it again.
		n.DurationDays = nil
	}
	if p.Status != nil {
		n.Status = *p.Status
	}
	if p.Responsible != nil {
		n.Responsible = *p.Responsible
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.TRL != nil {
		if *p.TRL == 0 {
			n.TRL = nil
		} else {
			n.TRL = copyInt(p.TRL)
		}
	}
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// assignDependencies replaces n's dependencies after a structural check on
// the whole tree. All problems are reported together.
func assignDependencies(root, n *domain.TreeNode, ids []string) error {
	if errs := scheduler.CheckDependencies(root, n.ID, ids); len(errs) > 0 {
		return &DependencyError{NodeID: n.ID, Errs: errs}
	}
	if len(ids) == 0 {
		n.Dependencies = nil
		return nil
	}
	n.Dependencies = append([]string(nil), ids...)
	return nil
}

// checkSchedule runs the dependency validator on n's effective dates.
func checkSchedule(root, n *domain.TreeNode, override bool) error {
	if override {
		return nil
	}
	res := scheduler.Validate(root, scheduler.ValidateInput{
		NodeID:        n.ID,
		Start:         n.StartDate(),
		End:           n.EndDate(),
		DependencyIDs: n.Dependencies,
	})
	if !res.IsValid {
		return &ScheduleConflictError{NodeID: n.ID, Result: res}
	}
	return nil
}

func stripDependencies(deps []string, removed map[string]bool) []string {
	if len(deps) == 0 {
		return deps
	}
	var kept []string
	for _, d := range deps {
		if !removed[d] {
			kept = append(kept, d)
		}
	}
	return kept
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func truncatedCopy(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.TruncateDay(*t)
	return &d
}
