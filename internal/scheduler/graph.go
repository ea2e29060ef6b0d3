package scheduler

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDependencyCycle is returned when a dependency assignment would close a
// cycle, directly (A↔B) or through other nodes.
var ErrDependencyCycle = errors.New("dependency cycle")

// ErrSelfDependency is returned when a node lists itself as a dependency.
var ErrSelfDependency = errors.New("node cannot depend on itself")

// ErrUnknownDependency is returned when a dependency id resolves to no node.
var ErrUnknownDependency = errors.New("unknown dependency")

// DependencyGraph is a directed graph of "must finish before" constraints.
// An edge from → to means from depends on to (to is a predecessor).
type DependencyGraph struct {
	nodes map[string]bool
	// deps maps nodeID → set of predecessor ids (forward edges).
	deps map[string]map[string]bool
	// dependents maps nodeID → set of successor ids (backward edges).
	dependents map[string]map[string]bool
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:      make(map[string]bool),
		deps:       make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// AddNode registers id. Adding an existing id is a no-op.
func (g *DependencyGraph) AddNode(id string) {
	if g.nodes[id] {
		return
	}
	g.nodes[id] = true
	g.deps[id] = make(map[string]bool)
	g.dependents[id] = make(map[string]bool)
}

// Has reports whether id is a node of the graph.
func (g *DependencyGraph) Has(id string) bool {
	return g.nodes[id]
}

// AddEdge records that from depends on to. Both nodes must exist. The edge
// is refused when it is a self-loop or when to already (transitively)
// depends on from, since adding it would close a cycle.
func (g *DependencyGraph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfDependency, from)
	}
	if !g.nodes[from] {
		return fmt.Errorf("%w: %s", ErrUnknownDependency, from)
	}
	if !g.nodes[to] {
		return fmt.Errorf("%w: %s", ErrUnknownDependency, to)
	}
	if g.deps[from][to] {
		return nil
	}
	if g.HasPath(to, from) {
		return fmt.Errorf("%w: %s → %s", ErrDependencyCycle, from, to)
	}
	g.deps[from][to] = true
	g.dependents[to][from] = true
	return nil
}

// RemoveEdges drops every outgoing edge of id, keeping the node.
func (g *DependencyGraph) RemoveEdges(id string) {
	for dep := range g.deps[id] {
		delete(g.dependents[dep], id)
	}
	g.deps[id] = make(map[string]bool)
}

// HasPath reports whether from reaches to by following dependency edges.
func (g *DependencyGraph) HasPath(from, to string) bool {
	visited := make(map[string]bool)
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for next := range g.deps[cur] {
			stack = append(stack, next)
		}
	}
	return false
}

// Predecessors returns the direct dependencies of id, sorted.
func (g *DependencyGraph) Predecessors(id string) []string {
	return sortedKeys(g.deps[id])
}

// Successors returns the nodes that directly depend on id, sorted.
func (g *DependencyGraph) Successors(id string) []string {
	return sortedKeys(g.dependents[id])
}

// TopologicalOrder returns node ids with every predecessor before its
// dependents; ties are broken alphabetically. The graph never holds a cycle
// because AddEdge refuses them.
func (g *DependencyGraph) TopologicalOrder() []string {
	inDegree := make(map[string]int, len(g.nodes))
	var queue []string
	for id := range g.nodes {
		inDegree[id] = len(g.deps[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var freed []string
		for dependent := range g.dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
	}
	return order
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
