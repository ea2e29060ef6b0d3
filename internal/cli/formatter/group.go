package formatter

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
)

var ErrInvalidGroup = errors.New("invalid phase group")

// PhaseGroup is a display-only heading over sibling phases. It is not part
// of the tree: its cost, dates and progress are recomputed from the member
// phases and nothing is written back.
type PhaseGroup struct {
	Label     string
	PhaseIDs  []string
	TotalCost float64
	Start     *time.Time
	End       *time.Time
	Progress  int
}

// GroupPhases builds a PhaseGroup over the given phases of a processed
// tree. Every id must name a distinct phase directly under root.
func GroupPhases(root *domain.TreeNode, label string, phaseIDs []string) (PhaseGroup, error) {
	g := PhaseGroup{Label: label}
	if label == "" {
		return g, fmt.Errorf("%w: label is required", ErrInvalidGroup)
	}
	if len(phaseIDs) == 0 {
		return g, fmt.Errorf("%w: %q has no phases", ErrInvalidGroup, label)
	}

	phases := make(map[string]*domain.TreeNode, len(root.Children))
	for _, c := range root.Children {
		phases[c.ID] = c
	}

	seen := make(map[string]bool, len(phaseIDs))
	var weights float64
	var leaves int
	for _, id := range phaseIDs {
		phase, ok := phases[id]
		if !ok {
			return g, fmt.Errorf("%w: %q is not a phase of %q", ErrInvalidGroup, id, root.Name)
		}
		if seen[id] {
			return g, fmt.Errorf("%w: phase %q listed twice", ErrInvalidGroup, phase.Name)
		}
		seen[id] = true
		g.PhaseIDs = append(g.PhaseIDs, id)

		g.TotalCost += phase.TotalCost
		g.Start = earlier(g.Start, phase.StartDate())
		g.End = later(g.End, phase.EndDate())
		for _, leaf := range domain.Leaves(phase) {
			weights += leaf.Status.Weight()
			leaves++
		}
	}
	if leaves > 0 {
		g.Progress = int(math.Round(100 * weights / float64(leaves)))
	}
	return g, nil
}

func earlier(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.Before(*a)) {
		return b
	}
	return a
}

func later(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.After(*a)) {
		return b
	}
	return a
}

type treeEntry struct {
	node    *domain.TreeNode
	group   *PhaseGroup
	members []*domain.TreeNode
}

// groupEntries lists the root's children with grouped phases folded into
// one entry at the position of the group's first member.
func groupEntries(root *domain.TreeNode, groups []PhaseGroup) []treeEntry {
	owner := make(map[string]int)
	for gi, g := range groups {
		for _, id := range g.PhaseIDs {
			if _, taken := owner[id]; !taken {
				owner[id] = gi
			}
		}
	}

	var entries []treeEntry
	placed := make(map[int]int)
	for _, c := range root.Children {
		gi, grouped := owner[c.ID]
		if !grouped {
			entries = append(entries, treeEntry{node: c})
			continue
		}
		if at, ok := placed[gi]; ok {
			entries[at].members = append(entries[at].members, c)
			continue
		}
		placed[gi] = len(entries)
		entries = append(entries, treeEntry{group: &groups[gi], members: []*domain.TreeNode{c}})
	}
	return entries
}
