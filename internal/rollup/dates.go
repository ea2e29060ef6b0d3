package rollup

import (
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
)

// ApplyInheritance resolves the inherited start and end of every node with
// children, bottom-up, so a parent reads its children's already-resolved
// effective dates.
//
// A parent's inherited start is the earliest effective start among its
// children and its inherited end the latest effective end. Explicit values
// stay untouched; the effective date is the wider of the two, so inheritance
// widens a user-set range to cover the children and never narrows it. A
// parent without any dated child loses its inherited values and keeps only
// what the user set.
func ApplyInheritance(root *domain.TreeNode) {
	if root == nil {
		return
	}
	applyInheritance(root)
}

func applyInheritance(n *domain.TreeNode) {
	if n.IsLeaf() {
		n.Start.Inherited = nil
		n.End.Inherited = nil
		if n.DurationDays == nil {
			setDuration(n)
		}
		return
	}

	var earliest, latest *time.Time
	for _, c := range n.Children {
		applyInheritance(c)
		if s := c.StartDate(); s != nil && (earliest == nil || s.Before(*earliest)) {
			earliest = s
		}
		if e := c.EndDate(); e != nil && (latest == nil || e.After(*latest)) {
			latest = e
		}
	}

	n.Start.Inherited = earliest
	n.End.Inherited = latest
	setDuration(n)
}

// setDuration derives DurationDays from the effective dates when both exist
// and clears it otherwise.
func setDuration(n *domain.TreeNode) {
	start, end := n.StartDate(), n.EndDate()
	if start == nil || end == nil {
		n.DurationDays = nil
		return
	}
	d := domain.DaysBetween(*start, *end)
	n.DurationDays = &d
}

// ProcessCompleteNode runs the full derivation pipeline on a tree: cost
// rollup followed by date inheritance. Every mutation, import and save path
// runs it before the tree is treated as consistent.
func ProcessCompleteNode(root *domain.TreeNode) *domain.TreeNode {
	RecomputeCost(root)
	ApplyInheritance(root)
	return root
}

// Span returns the earliest effective start and latest effective end found
// anywhere in the tree. Either may be nil when no node carries that date.
func Span(root *domain.TreeNode) (start, end *time.Time) {
	root.Walk(func(n *domain.TreeNode) bool {
		if s := n.StartDate(); s != nil && (start == nil || s.Before(*start)) {
			start = s
		}
		if e := n.EndDate(); e != nil && (end == nil || e.After(*end)) {
			end = e
		}
		return true
	})
	return start, end
}
