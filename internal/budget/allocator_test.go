package budget

import (
	"math/rand"
	"testing"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriods_Month(t *testing.T) {
	periods, err := Periods(PeriodMonth, testutil.Date("2024-01-15"), testutil.Date("2024-03-01"))
	require.NoError(t, err)

	require.Len(t, periods, 3)
	assert.Equal(t, "2024-01", periods[0].Label)
	assert.Equal(t, testutil.Date("2024-01-01"), periods[0].Start)
	assert.Equal(t, testutil.Date("2024-02-01"), periods[0].End)
	assert.Equal(t, "2024-03", periods[2].Label)
	assert.Equal(t, testutil.Date("2024-04-01"), periods[2].End)
}

func TestPeriods_QuarterAndYear(t *testing.T) {
	q, err := Periods(PeriodQuarter, testutil.Date("2023-11-20"), testutil.Date("2024-04-01"))
	require.NoError(t, err)
	labels := make([]string, len(q))
	for i, p := range q {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"2023-Q4", "2024-Q1", "2024-Q2"}, labels)
	assert.Equal(t, testutil.Date("2023-10-01"), q[0].Start)

	y, err := Periods(PeriodYear, testutil.Date("2023-12-31"), testutil.Date("2024-01-01"))
	require.NoError(t, err)
	require.Len(t, y, 2)
	assert.Equal(t, "2023", y[0].Label)
	assert.Equal(t, "2024", y[1].Label)
}

func TestPeriods_SingleDay(t *testing.T) {
	periods, err := Periods(PeriodMonth, testutil.Date("2024-05-31"), testutil.Date("2024-05-31"))
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "2024-05", periods[0].Label)
}

func TestPeriods_Errors(t *testing.T) {
	_, err := Periods("week", testutil.Date("2024-01-01"), testutil.Date("2024-02-01"))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = Periods(PeriodMonth, testutil.Date("2024-02-01"), testutil.Date("2024-01-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestParsePeriodType(t *testing.T) {
	p, err := ParsePeriodType(" Quarter ")
	require.NoError(t, err)
	assert.Equal(t, PeriodQuarter, p)

	_, err = ParsePeriodType("fortnight")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

// A 300 cost spread over Jan-Mar 2024 splits by days in month (31/29/31).
func TestAllocate_SplitsByDaysInMonth(t *testing.T) {
	root := testutil.NewTestTree("Probe")
	testutil.AddNode(root, "P1", testutil.WithCost(300), testutil.WithDates("2024-01-01", "2024-03-31"))

	alloc, err := Allocate(root, Request{
		Period: PeriodMonth,
		Range:  &DateRange{From: testutil.Date("2024-01-01"), To: testutil.Date("2024-03-31")},
		Levels: []domain.Level{domain.LevelPhase},
	})
	require.NoError(t, err)

	require.Len(t, alloc.Buckets, 3)
	assert.InDelta(t, 300.0*31/91, alloc.Buckets[0].Total, 1e-9)
	assert.InDelta(t, 300.0*29/91, alloc.Buckets[1].Total, 1e-9)
	assert.InDelta(t, 300.0*31/91, alloc.Buckets[2].Total, 1e-9)
	assert.InDelta(t, 300.0, alloc.Buckets[0].Total+alloc.Buckets[1].Total+alloc.Buckets[2].Total, 1e-6)
	assert.InDelta(t, alloc.Buckets[0].Total, alloc.Buckets[0].Values["L2"], 1e-12)
}

func TestAllocate_DefaultsToTreeSpan(t *testing.T) {
	root := testutil.NewTestTree("Probe")
	testutil.AddNode(root, "P1", testutil.WithCost(100), testutil.WithDates("2024-02-10", "2024-05-03"))

	alloc, err := Allocate(root, Request{Period: PeriodQuarter})
	require.NoError(t, err)

	assert.Equal(t, testutil.Date("2024-02-10"), alloc.From)
	assert.Equal(t, testutil.Date("2024-05-03"), alloc.To)
	require.Len(t, alloc.Buckets, 2)
	assert.Equal(t, "2024-Q1", alloc.Buckets[0].Label)
	assert.InDelta(t, 100.0, alloc.Buckets[0].Total+alloc.Buckets[1].Total, 1e-9)
}

func TestAllocate_NoDatesFallsBackToNow(t *testing.T) {
	root := testutil.NewTestTree("Probe")
	testutil.AddNode(root, "P1", testutil.WithCost(100))

	alloc, err := Allocate(root, Request{Period: PeriodYear, Now: testutil.FixedNow})
	require.NoError(t, err)

	assert.Equal(t, testutil.Date("2024-06-15"), alloc.From)
	assert.Equal(t, testutil.Date("2025-06-15"), alloc.To)
	require.Len(t, alloc.Buckets, 2)
	assert.Equal(t, []float64{0, 0}, alloc.Totals(), "undated cost has no span to spread")
}

func TestAllocate_ByLevelSumsOwnCostPerLevel(t *testing.T) {
	root := testutil.NewTestTree("Probe")
	p1 := testutil.AddNode(root, "P1", testutil.WithCost(90), testutil.WithDates("2024-01-01", "2024-01-31"))
	testutil.AddNode(p1, "A1", testutil.WithCost(10), testutil.WithDates("2024-01-01", "2024-01-31"))
	testutil.AddNode(p1, "A2", testutil.WithCost(20), testutil.WithDates("2024-01-10", "2024-01-20"))

	alloc, err := Allocate(root, Request{Period: PeriodMonth})
	require.NoError(t, err)

	require.Len(t, alloc.Buckets, 1)
	b := alloc.Buckets[0]
	assert.InDelta(t, 0.0, b.Values["L1"], 1e-9)
	assert.InDelta(t, 90.0, b.Values["L2"], 1e-9)
	assert.InDelta(t, 30.0, b.Values["L3"], 1e-9)
	assert.InDelta(t, 120.0, b.Total, 1e-9)
	require.Len(t, alloc.Series, 3)
	assert.Equal(t, "phase", alloc.Series[1].Label)
}

func TestAllocate_ByPhase(t *testing.T) {
	root := testutil.NewTestTree("Probe")
	p1 := testutil.AddNode(root, "Design", testutil.WithCost(100), testutil.WithDates("2024-01-01", "2024-01-31"))
	testutil.AddNode(p1, "Sketch", testutil.WithCost(50), testutil.WithDates("2024-01-01", "2024-01-31"))
	p2 := testutil.AddNode(root, "Build", testutil.WithCost(10), testutil.WithDates("2024-02-01", "2024-02-29"))

	alloc, err := Allocate(root, Request{
		Period: PeriodMonth,
		Mode:   ModeByPhase,
		Levels: []domain.Level{domain.LevelPhase, domain.LevelActivity},
	})
	require.NoError(t, err)

	require.Len(t, alloc.Series, 2)
	assert.Equal(t, "Design", alloc.Series[0].Label)
	require.Len(t, alloc.Buckets, 2)
	assert.InDelta(t, 150.0, alloc.Buckets[0].Values[p1.ID], 1e-9)
	assert.InDelta(t, 0.0, alloc.Buckets[0].Values[p2.ID], 1e-9)
	assert.InDelta(t, 10.0, alloc.Buckets[1].Values[p2.ID], 1e-9)

	phaseOnly, err := Allocate(root, Request{Period: PeriodMonth, Mode: ModeByPhase, Levels: []domain.Level{domain.LevelPhase}})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, phaseOnly.Buckets[0].Values[p1.ID], 1e-9, "activities excluded")
}

func TestAllocate_ByPhaseActivitiesOnly(t *testing.T) {
	root := testutil.NewTestTree("Probe")
	p1 := testutil.AddNode(root, "Design", testutil.WithCost(100), testutil.WithDates("2024-01-01", "2024-01-31"))
	testutil.AddNode(p1, "Sketch", testutil.WithCost(50), testutil.WithDates("2024-01-01", "2024-01-31"))
	p2 := testutil.AddNode(root, "Build", testutil.WithCost(10), testutil.WithDates("2024-02-01", "2024-02-29"))
	testutil.AddNode(p2, "Weld", testutil.WithCost(20), testutil.WithDates("2024-02-01", "2024-02-29"))

	alloc, err := Allocate(root, Request{Period: PeriodMonth, Mode: ModeByPhase, Levels: []domain.Level{domain.LevelActivity}})
	require.NoError(t, err)

	require.Len(t, alloc.Series, 2)
	assert.Equal(t, p1.ID, alloc.Series[0].Key)
	assert.Equal(t, domain.LevelPhase, alloc.Series[0].Level)
	assert.Equal(t, "Build", alloc.Series[1].Label)
	require.Len(t, alloc.Buckets, 2)
	assert.InDelta(t, 50.0, alloc.Buckets[0].Values[p1.ID], 1e-9, "phase own cost excluded")
	assert.InDelta(t, 0.0, alloc.Buckets[0].Values[p2.ID], 1e-9)
	assert.InDelta(t, 50.0, alloc.Buckets[0].Total, 1e-9)
	assert.InDelta(t, 20.0, alloc.Buckets[1].Values[p2.ID], 1e-9)
	assert.InDelta(t, 20.0, alloc.Buckets[1].Total, 1e-9)
}

func TestAllocate_ByPhaseWithProjectSeries(t *testing.T) {
	root := testutil.NewTestTree("Probe", testutil.WithCost(60), testutil.WithDates("2024-01-01", "2024-02-29"))
	p1 := testutil.AddNode(root, "Design", testutil.WithCost(100), testutil.WithDates("2024-01-01", "2024-01-31"))
	testutil.AddNode(p1, "Sketch", testutil.WithCost(50), testutil.WithDates("2024-01-01", "2024-01-31"))
	p2 := testutil.AddNode(root, "Build", testutil.WithCost(10), testutil.WithDates("2024-02-01", "2024-02-29"))

	alloc, err := Allocate(root, Request{
		Period: PeriodMonth,
		Mode:   ModeByPhase,
		Levels: []domain.Level{domain.LevelProject, domain.LevelPhase},
	})
	require.NoError(t, err)

	require.Len(t, alloc.Series, 3)
	project := alloc.Series[0]
	assert.Equal(t, "L1", project.Key)
	assert.Equal(t, "Probe", project.Label)
	assert.Equal(t, domain.LevelProject, project.Level)
	assert.Equal(t, root.ID, project.NodeID)
	assert.Equal(t, "Design", alloc.Series[1].Label)

	require.Len(t, alloc.Buckets, 2)
	jan, feb := alloc.Buckets[0], alloc.Buckets[1]
	assert.InDelta(t, 31.0, jan.Values["L1"], 1e-9)
	assert.InDelta(t, 29.0, feb.Values["L1"], 1e-9)
	assert.InDelta(t, 100.0, jan.Values[p1.ID], 1e-9, "activities excluded")
	assert.InDelta(t, 10.0, feb.Values[p2.ID], 1e-9)
	assert.InDelta(t, 131.0, jan.Total, 1e-9)
	assert.InDelta(t, 39.0, feb.Total, 1e-9)
}

func TestAllocate_EchoesRequestedRange(t *testing.T) {
	root := testutil.NewTestTree("Probe")
	testutil.AddNode(root, "P1", testutil.WithCost(10), testutil.WithDates("2024-01-01", "2024-03-31"))
	rng := &DateRange{From: testutil.Date("2024-01-15"), To: testutil.Date("2024-02-10")}

	alloc, err := Allocate(root, Request{Period: PeriodMonth, Range: rng})
	require.NoError(t, err)

	require.NotNil(t, alloc.Range)
	assert.Equal(t, *rng, *alloc.Range)
	assert.NotSame(t, rng, alloc.Range)
	require.Len(t, alloc.Buckets, 2)
	assert.Equal(t, testutil.Date("2024-01-01"), alloc.Buckets[0].Start, "edge bucket is the whole month")

	unbounded, err := Allocate(root, Request{Period: PeriodMonth})
	require.NoError(t, err)
	assert.Nil(t, unbounded.Range)
}

func TestAllocate_InvalidRequest(t *testing.T) {
	root := testutil.NewTestTree("Probe")

	_, err := Allocate(root, Request{Period: "daily"})
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = Allocate(root, Request{Period: PeriodMonth, Levels: []domain.Level{4}})
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = Allocate(root, Request{Period: PeriodMonth, Mode: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = Allocate(root, Request{Period: PeriodMonth, Range: &DateRange{
		From: testutil.Date("2024-03-01"), To: testutil.Date("2024-01-01"),
	}})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNodeAllocation_DegenerateSpans(t *testing.T) {
	periods, err := Periods(PeriodMonth, testutil.Date("2024-01-01"), testutil.Date("2024-12-31"))
	require.NoError(t, err)
	root := testutil.NewTestTree("Probe")

	reversed := testutil.AddNode(root, "Reversed", testutil.WithCost(100), testutil.WithDates("2024-03-10", "2024-03-01"))
	undated := testutil.AddNode(root, "Undated", testutil.WithCost(100))
	oneDay := testutil.AddNode(root, "OneDay", testutil.WithCost(100), testutil.WithDates("2024-03-10", "2024-03-10"))
	outside := testutil.AddNode(root, "Outside", testutil.WithCost(100), testutil.WithDates("2025-03-10", "2025-04-10"))

	assert.InDelta(t, 0.0, sum(NodeAllocation(reversed, periods)), 1e-12)
	assert.InDelta(t, 0.0, sum(NodeAllocation(undated, periods)), 1e-12)
	assert.InDelta(t, 100.0, NodeAllocation(oneDay, periods)[2], 1e-12)
	assert.InDelta(t, 0.0, sum(NodeAllocation(outside, periods)), 1e-12)
}

func TestNodeAllocation_UsesInheritedDates(t *testing.T) {
	periods, err := Periods(PeriodMonth, testutil.Date("2024-01-01"), testutil.Date("2024-02-29"))
	require.NoError(t, err)
	n := &domain.TreeNode{
		Cost:  60,
		Start: domain.ScheduleDate{Inherited: testutil.DatePtr("2024-01-01")},
		End:   domain.ScheduleDate{Inherited: testutil.DatePtr("2024-02-29")},
	}

	got := NodeAllocation(n, periods)

	assert.InDelta(t, 60.0*31/60, got[0], 1e-9)
	assert.InDelta(t, 60.0*29/60, got[1], 1e-9)
}

func TestCumulative(t *testing.T) {
	buckets := []Bucket{{Total: 10}, {Total: 0}, {Total: 5.5}}
	assert.Equal(t, []float64{10, 10, 15.5}, Cumulative(buckets))
	assert.Empty(t, Cumulative(nil))
}

// A node fully inside the queried interval is allocated exactly its cost.
func TestNodeAllocation_SumEqualsCost(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := testutil.Date("2023-01-01")
	types := []PeriodType{PeriodMonth, PeriodQuarter, PeriodYear}

	for trial := 0; trial < 200; trial++ {
		start := base.AddDate(0, 0, rng.Intn(900))
		end := start.AddDate(0, 0, rng.Intn(400))
		cost := rng.Float64() * 1e6
		n := &domain.TreeNode{Cost: cost, Start: domain.Explicit(start), End: domain.Explicit(end)}

		from := start.AddDate(0, 0, -rng.Intn(60))
		to := end.AddDate(0, 0, rng.Intn(60))
		pt := types[rng.Intn(len(types))]
		periods, err := Periods(pt, from, to)
		require.NoError(t, err)

		assert.InDelta(t, cost, sum(NodeAllocation(n, periods)), 1e-6,
			"trial %d: %s %s..%s", trial, pt, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}
}

func TestAllocate_TotalsMatchOwnCosts(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 100; trial++ {
		root := testutil.RandomTree(rng, 5, 6)

		var want float64
		root.Walk(func(n *domain.TreeNode) bool {
			if n.StartDate() != nil && n.EndDate() != nil && !n.EndDate().Before(*n.StartDate()) {
				want += n.OwnCost()
			}
			return true
		})

		alloc, err := Allocate(root, Request{Period: PeriodMonth, Mode: ModeByLevel})
		require.NoError(t, err)
		assert.InDelta(t, want, sum(alloc.Totals()), 1e-6, "trial %d", trial)

		cum := Cumulative(alloc.Buckets)
		if len(cum) > 0 {
			assert.InDelta(t, want, cum[len(cum)-1], 1e-6, "trial %d", trial)
		}
	}
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
