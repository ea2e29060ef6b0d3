package scheduler

import (
	"github.com/alexanderramin/wbs/internal/domain"
)

// CriticalPath returns the ids of the longest dependency chain, ordered from
// the first predecessor to the last dependent. Chain length is the sum of
// node durations in days. Only nodes that take part in at least one
// dependency edge are considered; a tree without dependencies yields nil.
// Ties are broken by the smaller id.
func CriticalPath(root *domain.TreeNode) []string {
	if root == nil {
		return nil
	}
	g := BuildGraph(root)
	idx := domain.NewIndex(root)

	finish := make(map[string]int)
	via := make(map[string]string)
	for _, id := range g.TopologicalOrder() {
		if len(g.deps[id]) == 0 && len(g.dependents[id]) == 0 {
			continue
		}
		best, bestPred := 0, ""
		for i, pred := range g.Predecessors(id) {
			if f := finish[pred]; i == 0 || f > best {
				best, bestPred = f, pred
			}
		}
		finish[id] = best + durationOf(idx.Get(id))
		if bestPred != "" {
			via[id] = bestPred
		}
	}
	if len(finish) == 0 {
		return nil
	}

	end := ""
	for id, f := range finish {
		if end == "" || f > finish[end] || (f == finish[end] && id < end) {
			end = id
		}
	}

	var chain []string
	for id := end; id != ""; id = via[id] {
		chain = append(chain, id)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func durationOf(n *domain.TreeNode) int {
	if n == nil {
		return 0
	}
	if n.DurationDays != nil {
		return *n.DurationDays
	}
	start, end := n.StartDate(), n.EndDate()
	if start == nil || end == nil {
		return 0
	}
	return domain.DaysBetween(*start, *end)
}
