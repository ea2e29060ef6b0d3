// Package rollup derives the aggregate fields of a breakdown tree: total
// cost, inherited date ranges, durations and completion percentages.
// Every function here is pure tree arithmetic with no I/O.
package rollup

import "github.com/alexanderramin/wbs/internal/domain"

// RecomputeCost sets TotalCost on every node of the tree to the node's own
// cost plus the TotalCost of each child, children first. Negative or
// non-finite costs count as zero. Calling it twice gives the same result.
func RecomputeCost(root *domain.TreeNode) {
	if root == nil {
		return
	}
	recomputeCost(root)
}

func recomputeCost(n *domain.TreeNode) float64 {
	total := n.OwnCost()
	for _, c := range n.Children {
		total += recomputeCost(c)
	}
	n.TotalCost = total
	return total
}

// SubtreeCost sums own costs under n without touching TotalCost.
func SubtreeCost(n *domain.TreeNode) float64 {
	var total float64
	n.Walk(func(c *domain.TreeNode) bool {
		total += c.OwnCost()
		return true
	})
	return total
}
