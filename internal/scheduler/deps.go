package scheduler

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/wbs/internal/domain"
)

// ErrDuplicateDependency is returned when the same id is listed twice.
var ErrDuplicateDependency = errors.New("duplicate dependency")

// BuildGraph loads every node of the tree and its dependency edges. Edges
// that reference unknown nodes or would close a cycle are skipped, so a
// damaged stored tree still yields a usable acyclic graph.
func BuildGraph(root *domain.TreeNode) *DependencyGraph {
	g := NewDependencyGraph()
	root.Walk(func(n *domain.TreeNode) bool {
		g.AddNode(n.ID)
		return true
	})
	root.Walk(func(n *domain.TreeNode) bool {
		for _, dep := range n.Dependencies {
			_ = g.AddEdge(n.ID, dep)
		}
		return true
	})
	return g
}

// CheckDependencies reports every structural problem with assigning
// dependencyIDs to nodeID: self references, unknown ids, duplicates and
// cycles through the rest of the tree. It returns nil when the assignment
// can be stored. Nothing is corrected.
func CheckDependencies(root *domain.TreeNode, nodeID string, dependencyIDs []string) []error {
	if root == nil {
		return []error{fmt.Errorf("%w: %s", ErrUnknownDependency, nodeID)}
	}
	g := BuildGraph(root)
	if !g.Has(nodeID) {
		return []error{fmt.Errorf("node %s: %w", nodeID, ErrUnknownDependency)}
	}
	g.RemoveEdges(nodeID)

	idx := domain.NewIndex(root)
	var errs []error
	seen := make(map[string]bool, len(dependencyIDs))
	for _, id := range dependencyIDs {
		if seen[id] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateDependency, label(idx, id)))
			continue
		}
		seen[id] = true

		if err := g.AddEdge(nodeID, id); err != nil {
			switch {
			case errors.Is(err, ErrSelfDependency):
				errs = append(errs, fmt.Errorf("%w: %s", ErrSelfDependency, label(idx, id)))
			case errors.Is(err, ErrUnknownDependency):
				errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownDependency, id))
			default:
				errs = append(errs, fmt.Errorf("%w: %s already depends on %s",
					ErrDependencyCycle, label(idx, id), label(idx, nodeID)))
			}
		}
	}
	return errs
}

func label(idx *domain.Index, id string) string {
	if n := idx.Get(id); n != nil {
		return fmt.Sprintf("%q", n.Name)
	}
	return id
}
