package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMaxDepth is returned when a child would be added below an activity.
var ErrMaxDepth = errors.New("activities cannot have children")

// TreeNode is one element of a work breakdown structure. Children are owned
// through the Children slice; ParentID is only a lookup key into an Index.
type TreeNode struct {
	ID           string
	ProjectID    string
	ParentID     *string
	Name         string
	Level        Level
	OrderIndex   int
	Cost         float64
	TotalCost    float64 // derived by rollup.RecomputeCost
	Children     []*TreeNode
	Start        ScheduleDate
	End          ScheduleDate
	DurationDays *int
	Status       Status
	Responsible  string
	Description  string
	Dependencies []string
	TRL          *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsLeaf reports whether the node has no children.
func (n *TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// StartDate returns the effective start date, or nil when none is known.
func (n *TreeNode) StartDate() *time.Time {
	return n.Start.EffectiveStart()
}

// EndDate returns the effective end date, or nil when none is known.
func (n *TreeNode) EndDate() *time.Time {
	return n.End.EffectiveEnd()
}

// OwnCost returns the node's own cost with negative and non-finite values
// treated as zero.
func (n *TreeNode) OwnCost() float64 {
	if math.IsNaN(n.Cost) || math.IsInf(n.Cost, 0) || n.Cost < 0 {
		return 0
	}
	return n.Cost
}

// DependsOn reports whether id is listed in the node's dependencies.
func (n *TreeNode) DependsOn(id string) bool {
	for _, d := range n.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// Validate checks the node's own fields. It does not descend into children.
func (n *TreeNode) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("node %s: name is required", n.ID)
	}
	if !n.Level.Valid() {
		return fmt.Errorf("node %q: level %d out of range (1-3)", n.Name, n.Level)
	}
	if n.Status != "" && !n.Status.Valid() {
		return fmt.Errorf("node %q: invalid status %q", n.Name, n.Status)
	}
	if n.TRL != nil {
		if n.Level != LevelPhase {
			return fmt.Errorf("node %q: TRL is only allowed on phases", n.Name)
		}
		if *n.TRL < 1 || *n.TRL > 9 {
			return fmt.Errorf("node %q: TRL %d out of range (1-9)", n.Name, *n.TRL)
		}
	}
	return nil
}

// Walk visits n and all of its descendants in pre-order. Returning false from
// fn skips the node's children.
func (n *TreeNode) Walk(fn func(node *TreeNode) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *TreeNode) Clone() *TreeNode {
	if n == nil {
		return nil
	}
	cp := *n
	if n.ParentID != nil {
		pid := *n.ParentID
		cp.ParentID = &pid
	}
	cp.Start = n.Start.clone()
	cp.End = n.End.clone()
	if n.DurationDays != nil {
		d := *n.DurationDays
		cp.DurationDays = &d
	}
	if n.TRL != nil {
		t := *n.TRL
		cp.TRL = &t
	}
	if n.Dependencies != nil {
		cp.Dependencies = append([]string(nil), n.Dependencies...)
	}
	cp.Children = nil
	for _, c := range n.Children {
		cp.Children = append(cp.Children, c.Clone())
	}
	return &cp
}

// NewRoot creates an empty level-1 project node.
func NewRoot(projectID, name string, now time.Time) *TreeNode {
	return &TreeNode{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		Level:     LevelProject,
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewChild appends a fresh child to parent and returns it. The child gets a
// new id, level parent.Level+1 and zero cost.
func NewChild(parent *TreeNode, name string, now time.Time) (*TreeNode, error) {
	if parent.Level >= LevelActivity {
		return nil, fmt.Errorf("adding %q under %q: %w", name, parent.Name, ErrMaxDepth)
	}
	pid := parent.ID
	child := &TreeNode{
		ID:         uuid.New().String(),
		ProjectID:  parent.ProjectID,
		ParentID:   &pid,
		Name:       name,
		Level:      parent.Level + 1,
		OrderIndex: len(parent.Children),
		Status:     StatusNotStarted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	parent.Children = append(parent.Children, child)
	return child, nil
}

// ResetRoot clears a project root back to its empty default. The id, name and
// project association are kept.
func ResetRoot(root *TreeNode, now time.Time) {
	root.Children = nil
	root.Cost = 0
	root.TotalCost = 0
	root.Start = ScheduleDate{}
	root.End = ScheduleDate{}
	root.DurationDays = nil
	root.Status = StatusNotStarted
	root.Responsible = ""
	root.Description = ""
	root.Dependencies = nil
	root.TRL = nil
	root.UpdatedAt = now
}
