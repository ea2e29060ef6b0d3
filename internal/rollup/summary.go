package rollup

import (
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
)

// Summary holds read-side totals for a whole tree.
type Summary struct {
	NodesByLevel  map[domain.Level]int
	LeafCount     int
	Completed     int
	InProgress    int
	NotStarted    int
	ProgressPct   int
	TotalCost     float64
	Start         *time.Time
	End           *time.Time
	DurationDays  int
	TRLHistogram  map[int]int
	Unscheduled   int // leaves without both dates
	WithDependsOn int
}

// Summarize walks a processed tree and collects its totals. It reads
// TotalCost from the root, so call ProcessCompleteNode first.
func Summarize(root *domain.TreeNode) Summary {
	s := Summary{
		NodesByLevel: make(map[domain.Level]int),
		TRLHistogram: make(map[int]int),
	}
	if root == nil {
		return s
	}

	root.Walk(func(n *domain.TreeNode) bool {
		s.NodesByLevel[n.Level]++
		if n.TRL != nil {
			s.TRLHistogram[*n.TRL]++
		}
		if len(n.Dependencies) > 0 {
			s.WithDependsOn++
		}
		if !n.IsLeaf() {
			return true
		}
		s.LeafCount++
		switch n.Status {
		case domain.StatusCompleted:
			s.Completed++
		case domain.StatusInProgress:
			s.InProgress++
		default:
			s.NotStarted++
		}
		if n.StartDate() == nil || n.EndDate() == nil {
			s.Unscheduled++
		}
		return true
	})

	s.ProgressPct = PercentComplete(root)
	s.TotalCost = root.TotalCost
	s.Start, s.End = Span(root)
	if s.Start != nil && s.End != nil {
		s.DurationDays = domain.DaysBetween(*s.Start, *s.End)
	}
	return s
}
