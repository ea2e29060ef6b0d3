package budget

import (
	"fmt"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
)

const defaultHorizonDays = 365

// Mode selects how bucket values are grouped.
type Mode string

const (
	// ModeByLevel sums every selected level across the whole tree.
	ModeByLevel Mode = "by-level"
	// ModeByPhase keeps one series per phase.
	ModeByPhase Mode = "by-phase"
)

// ParseMode accepts by-level and by-phase; empty means by-level.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeByLevel:
		return ModeByLevel, nil
	case ModeByPhase:
		return ModeByPhase, nil
	}
	return "", fmt.Errorf("%w: %q (want by-level or by-phase)", ErrInvalidMode, s)
}

// Request describes one allocation query. Empty Levels selects every level.
// Now anchors the fallback interval when neither Range nor any node date is
// available.
type Request struct {
	Period PeriodType
	Range  *DateRange
	Levels []domain.Level
	Mode   Mode
	Now    time.Time
}

// Series identifies one column of an allocation.
type Series struct {
	Key    string       `json:"key"`
	Label  string       `json:"label"`
	Level  domain.Level `json:"level"`
	NodeID string       `json:"nodeId,omitempty"`
}

// Bucket holds the per-series values for one period.
type Bucket struct {
	Period
	Values map[string]float64 `json:"values"`
	Total  float64            `json:"total"`
}

// Allocation is the result of Allocate. Buckets are in calendar order.
// Range echoes the requested range; the edge buckets still span whole
// calendar periods beyond it.
type Allocation struct {
	Period  PeriodType `json:"period"`
	Mode    Mode       `json:"mode"`
	From    time.Time  `json:"from"`
	To      time.Time  `json:"to"`
	Range   *DateRange `json:"range,omitempty"`
	Series  []Series   `json:"series"`
	Buckets []Bucket   `json:"buckets"`
}

// Totals returns the grand total of each bucket.
func (a *Allocation) Totals() []float64 {
	out := make([]float64, len(a.Buckets))
	for i, b := range a.Buckets {
		out[i] = b.Total
	}
	return out
}

// Allocate buckets the own cost of every node on a selected level into the
// request's calendar periods. Only invalid request input is an error.
func Allocate(root *domain.TreeNode, req Request) (*Allocation, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	if !req.Period.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, req.Period)
	}
	selected, err := levelSet(req.Levels)
	if err != nil {
		return nil, err
	}

	from, to, err := overallInterval(root, req)
	if err != nil {
		return nil, err
	}
	periods, err := Periods(req.Period, from, to)
	if err != nil {
		return nil, err
	}

	alloc := &Allocation{Period: req.Period, Mode: mode, From: from, To: to}
	if req.Range != nil {
		r := *req.Range
		alloc.Range = &r
	}
	alloc.Buckets = make([]Bucket, len(periods))
	for i, p := range periods {
		alloc.Buckets[i] = Bucket{Period: p, Values: make(map[string]float64)}
	}

	add := func(key string, n *domain.TreeNode) {
		for i, v := range NodeAllocation(n, periods) {
			alloc.Buckets[i].Values[key] += v
			alloc.Buckets[i].Total += v
		}
	}

	switch mode {
	case ModeByPhase:
		alloc.Series = phaseSeries(root, selected, add)
	default:
		alloc.Series = levelSeries(root, selected, add)
	}

	for i := range alloc.Buckets {
		for _, s := range alloc.Series {
			if _, ok := alloc.Buckets[i].Values[s.Key]; !ok {
				alloc.Buckets[i].Values[s.Key] = 0
			}
		}
	}
	return alloc, nil
}

func levelSeries(root *domain.TreeNode, selected map[domain.Level]bool, add func(string, *domain.TreeNode)) []Series {
	var series []Series
	for _, lvl := range domain.AllLevels {
		if selected[lvl] {
			series = append(series, Series{Key: levelKey(lvl), Label: lvl.String(), Level: lvl})
		}
	}
	root.Walk(func(n *domain.TreeNode) bool {
		if selected[n.Level] {
			add(levelKey(n.Level), n)
		}
		return true
	})
	return series
}

func phaseSeries(root *domain.TreeNode, selected map[domain.Level]bool, add func(string, *domain.TreeNode)) []Series {
	var series []Series
	if root == nil {
		return series
	}
	if selected[domain.LevelProject] {
		series = append(series, Series{Key: levelKey(domain.LevelProject), Label: root.Name, Level: domain.LevelProject, NodeID: root.ID})
		add(levelKey(domain.LevelProject), root)
	}
	if !selected[domain.LevelPhase] && !selected[domain.LevelActivity] {
		return series
	}
	for _, phase := range root.Children {
		series = append(series, Series{Key: phase.ID, Label: phase.Name, Level: domain.LevelPhase, NodeID: phase.ID})
		if selected[domain.LevelPhase] {
			add(phase.ID, phase)
		}
		if selected[domain.LevelActivity] {
			for _, act := range phase.Children {
				add(phase.ID, act)
			}
		}
	}
	return series
}

func levelKey(l domain.Level) string {
	return fmt.Sprintf("L%d", l)
}

func levelSet(levels []domain.Level) (map[domain.Level]bool, error) {
	set := make(map[domain.Level]bool, len(domain.AllLevels))
	if len(levels) == 0 {
		for _, l := range domain.AllLevels {
			set[l] = true
		}
		return set, nil
	}
	for _, l := range levels {
		if !l.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, l)
		}
		set[l] = true
	}
	return set, nil
}

func overallInterval(root *domain.TreeNode, req Request) (time.Time, time.Time, error) {
	if req.Range != nil {
		if err := req.Range.Validate(); err != nil {
			return time.Time{}, time.Time{}, err
		}
		return domain.TruncateDay(req.Range.From), domain.TruncateDay(req.Range.To), nil
	}
	if start, end := datedSpan(root); start != nil && end != nil {
		return *start, *end, nil
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	now = domain.TruncateDay(now)
	return now, domain.AddDays(now, defaultHorizonDays), nil
}

// datedSpan is the earliest and latest date of any node, using whichever
// side a node has. A tree with a single dated side still gets a span.
func datedSpan(root *domain.TreeNode) (*time.Time, *time.Time) {
	start, end := rollup.Span(root)
	var lo, hi *time.Time
	consider := func(t *time.Time) {
		if t == nil {
			return
		}
		if lo == nil || t.Before(*lo) {
			v := *t
			lo = &v
		}
		if hi == nil || t.After(*hi) {
			v := *t
			hi = &v
		}
	}
	consider(start)
	consider(end)
	return lo, hi
}

// NodeAllocation splits n's own cost across periods by day overlap. The
// node covers [start of its first day, end of its last day). Nodes without
// both dates or with a non-positive span contribute nothing.
func NodeAllocation(n *domain.TreeNode, periods []Period) []float64 {
	out := make([]float64, len(periods))
	cost := n.OwnCost()
	if cost == 0 {
		return out
	}
	start, end := n.StartDate(), n.EndDate()
	if start == nil || end == nil {
		return out
	}
	nodeStart := domain.TruncateDay(*start)
	nodeEnd := domain.AddDays(domain.TruncateDay(*end), 1)
	duration := nodeEnd.Sub(nodeStart)
	if duration <= 0 {
		return out
	}
	for i, p := range periods {
		if ov := overlap(nodeStart, nodeEnd, p.Start, p.End); ov > 0 {
			out[i] = cost * float64(ov) / float64(duration)
		}
	}
	return out
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	lo := aStart
	if bStart.After(lo) {
		lo = bStart
	}
	hi := aEnd
	if bEnd.Before(hi) {
		hi = bEnd
	}
	if !lo.Before(hi) {
		return 0
	}
	return hi.Sub(lo)
}

// Cumulative returns the running sum of bucket totals.
func Cumulative(buckets []Bucket) []float64 {
	out := make([]float64, len(buckets))
	var sum float64
	for i, b := range buckets {
		sum += b.Total
		out[i] = sum
	}
	return out
}
