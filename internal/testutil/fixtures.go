package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/google/uuid"
)

var testShortIDCounter atomic.Int64

// FixedNow is the reference clock used by fixtures.
var FixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

// Date parses a YYYY-MM-DD literal and panics on bad input.
func Date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(fmt.Sprintf("testutil.Date(%q): %v", s, err))
	}
	return t
}

// DatePtr is Date returning a pointer.
func DatePtr(s string) *time.Time {
	t := Date(s)
	return &t
}

// Project options
type ProjectOption func(*domain.Project)

func WithShortID(id string) ProjectOption {
	return func(p *domain.Project) {
		p.ShortID = id
	}
}

func WithProjectID(id string) ProjectOption {
	return func(p *domain.Project) {
		p.ID = id
	}
}

func WithCurrency(c string) ProjectOption {
	return func(p *domain.Project) {
		p.Currency = c
	}
}

func defaultShortID(name string) string {
	upper := strings.ToUpper(name)
	var letters []byte
	for i := 0; i < len(upper) && len(letters) < 3; i++ {
		if upper[i] >= 'A' && upper[i] <= 'Z' {
			letters = append(letters, upper[i])
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}
	n := testShortIDCounter.Add(1)
	return fmt.Sprintf("%s%02d", string(letters), n)
}

func NewTestProject(name string, opts ...ProjectOption) *domain.Project {
	now := time.Now().UTC()
	p := &domain.Project{
		ID:        uuid.New().String(),
		ShortID:   defaultShortID(name),
		Name:      name,
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TreeNode options
type NodeOption func(*domain.TreeNode)

func WithID(id string) NodeOption {
	return func(n *domain.TreeNode) {
		n.ID = id
	}
}

func WithCost(c float64) NodeOption {
	return func(n *domain.TreeNode) {
		n.Cost = c
	}
}

// WithDates sets explicit start and end dates; an empty string leaves that
// side unset.
func WithDates(start, end string) NodeOption {
	return func(n *domain.TreeNode) {
		if start != "" {
			n.Start = domain.Explicit(Date(start))
		}
		if end != "" {
			n.End = domain.Explicit(Date(end))
		}
	}
}

func WithStatus(s domain.Status) NodeOption {
	return func(n *domain.TreeNode) {
		n.Status = s
	}
}

func WithDependencies(ids ...string) NodeOption {
	return func(n *domain.TreeNode) {
		n.Dependencies = append([]string(nil), ids...)
	}
}

func WithTRL(level int) NodeOption {
	return func(n *domain.TreeNode) {
		n.TRL = &level
	}
}

func WithResponsible(who string) NodeOption {
	return func(n *domain.TreeNode) {
		n.Responsible = who
	}
}

// NewTestTree returns a level-1 root for a fresh project id.
func NewTestTree(name string, opts ...NodeOption) *domain.TreeNode {
	root := domain.NewRoot(uuid.New().String(), name, FixedNow)
	for _, opt := range opts {
		opt(root)
	}
	return root
}

// AddNode appends a child to parent and applies opts. It panics when the
// parent is an activity, which is a fixture bug.
func AddNode(parent *domain.TreeNode, name string, opts ...NodeOption) *domain.TreeNode {
	child, err := domain.NewChild(parent, name, FixedNow)
	if err != nil {
		panic(err)
	}
	for _, opt := range opts {
		opt(child)
	}
	return child
}

// RandomTree builds a three-level tree with random costs, dates and statuses.
// Dates fall in 2024; some nodes are left undated on purpose.
func RandomTree(rng *rand.Rand, maxPhases, maxActivities int) *domain.TreeNode {
	base := Date("2024-01-01")
	root := NewTestTree("Random", WithCost(float64(rng.Intn(3))*100))
	statuses := []domain.Status{domain.StatusNotStarted, domain.StatusInProgress, domain.StatusCompleted, ""}

	randomDates := func(n *domain.TreeNode) {
		if rng.Intn(4) == 0 {
			return
		}
		start := base.AddDate(0, 0, rng.Intn(300))
		end := start.AddDate(0, 0, rng.Intn(60))
		n.Start = domain.Explicit(start)
		n.End = domain.Explicit(end)
	}

	phases := rng.Intn(maxPhases) + 1
	for i := 0; i < phases; i++ {
		p := AddNode(root, fmt.Sprintf("Phase %d", i+1),
			WithCost(float64(rng.Intn(1000))),
			WithStatus(statuses[rng.Intn(len(statuses))]))
		if rng.Intn(3) == 0 {
			randomDates(p)
		}
		acts := rng.Intn(maxActivities + 1)
		for j := 0; j < acts; j++ {
			a := AddNode(p, fmt.Sprintf("Activity %d.%d", i+1, j+1),
				WithCost(float64(rng.Intn(5000))-100),
				WithStatus(statuses[rng.Intn(len(statuses))]))
			randomDates(a)
		}
	}
	return root
}
