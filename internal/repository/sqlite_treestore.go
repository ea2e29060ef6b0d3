package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/wbs/internal/db"
	"github.com/alexanderramin/wbs/internal/domain"
)

// SQLiteTreeStore assembles trees from wbs_nodes and node_dependencies.
// Save issues several statements; run it inside a UnitOfWork so that a
// failed save leaves the previous tree in place.
type SQLiteTreeStore struct {
	db    db.DBTX
	nodes *SQLiteNodeRepo
	deps  *SQLiteDependencyRepo
}

// NewSQLiteTreeStore creates a tree store over conn, typically a tx.
func NewSQLiteTreeStore(conn db.DBTX) *SQLiteTreeStore {
	return &SQLiteTreeStore{
		db:    conn,
		nodes: NewSQLiteNodeRepo(conn),
		deps:  NewSQLiteDependencyRepo(conn),
	}
}

func (s *SQLiteTreeStore) Load(ctx context.Context, projectID string) (*domain.TreeNode, error) {
	nodes, err := s.nodes.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	deps, err := s.deps.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.TreeNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var root *domain.TreeNode
	for _, n := range nodes {
		n.Dependencies = deps[n.ID]
		if n.ParentID == nil {
			if root != nil {
				return nil, fmt.Errorf("project %s has more than one root node", projectID)
			}
			root = n
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			return nil, fmt.Errorf("node %s references missing parent %s", n.ID, *n.ParentID)
		}
		parent.Children = append(parent.Children, n)
	}
	if root == nil {
		return nil, fmt.Errorf("tree of project %s: %w", projectID, ErrNotFound)
	}
	return root, nil
}

// Save replaces every stored node of the project with the given tree. Parent
// links and sibling order are taken from the tree structure itself.
func (s *SQLiteTreeStore) Save(ctx context.Context, projectID string, root *domain.TreeNode) error {
	if root == nil {
		return fmt.Errorf("saving tree of project %s: nil root", projectID)
	}
	var all []*domain.TreeNode
	ids := make(map[string]bool)
	root.Walk(func(n *domain.TreeNode) bool {
		all = append(all, n)
		ids[n.ID] = true
		return true
	})

	if err := s.deps.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.nodes.DeleteByProject(ctx, projectID); err != nil {
		return err
	}

	if err := s.insertSubtree(ctx, projectID, root, nil, 0); err != nil {
		return err
	}

	for _, n := range all {
		for i, dep := range n.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("node %q depends on %s, which is not in the tree", n.Name, dep)
			}
			if err := s.deps.Create(ctx, n.ID, dep, i); err != nil {
				return err
			}
		}
	}

	query := `UPDATE projects SET root_id = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, root.ID, projectID); err != nil {
		return fmt.Errorf("updating project root: %w", err)
	}
	return nil
}

func (s *SQLiteTreeStore) insertSubtree(ctx context.Context, projectID string, n *domain.TreeNode, parentID *string, order int) error {
	row := *n
	row.ProjectID = projectID
	row.ParentID = parentID
	row.OrderIndex = order
	if err := s.nodes.Create(ctx, &row); err != nil {
		return err
	}
	id := n.ID
	for i, c := range n.Children {
		if err := s.insertSubtree(ctx, projectID, c, &id, i); err != nil {
			return err
		}
	}
	return nil
}
