package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/repository"
	"github.com/alexanderramin/wbs/internal/scheduler"
	"github.com/alexanderramin/wbs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeService_AddChildRollsUpCost(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")

	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1", Cost: 100})
	assert.Equal(t, domain.LevelPhase, p1.Level)
	assert.Equal(t, 100.0, p1.TotalCost)

	tree, err := s.trees.Tree(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, tree.TotalCost)

	ev := s.observer.last()
	assert.Equal(t, "add-node", ev.Name)
	assert.Equal(t, p1.ID, ev.Fields["node_id"])
	assert.Equal(t, 2, ev.Fields["nodes"])
}

func TestTreeService_InheritsDatesFromActivities(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")

	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1", Cost: 100})
	s.add(t, p.ID, p1.ID, NodeInput{Name: "A1", Cost: 50,
		Start: datePtr("2024-01-01"), End: datePtr("2024-01-10")})
	s.add(t, p.ID, p1.ID, NodeInput{Name: "A2", Cost: 30,
		Start: datePtr("2024-01-05"), End: datePtr("2024-01-20")})

	phase, err := s.trees.Node(ctx, p.ID, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2024-01-01"), *phase.StartDate())
	assert.Equal(t, testutil.Date("2024-01-20"), *phase.EndDate())
	assert.True(t, phase.Start.IsInherited())
	assert.Equal(t, 180.0, phase.TotalCost)
	require.NotNil(t, phase.DurationDays)
	assert.Equal(t, 19, *phase.DurationDays)
}

func TestTreeService_AddChildRejects(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1"})
	a1 := s.add(t, p.ID, p1.ID, NodeInput{Name: "A1"})

	_, err := s.trees.AddChild(ctx, p.ID, a1.ID, NodeInput{Name: "Too deep"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.trees.AddChild(ctx, p.ID, p1.ID, NodeInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.trees.AddChild(ctx, p.ID, "missing", NodeInput{Name: "X"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.trees.AddChild(ctx, p.ID, p1.ID, NodeInput{Name: "X", TRL: ptr(3)})
	assert.ErrorIs(t, err, ErrInvalidInput, "TRL is for phases only")

	tree, err := s.trees.Tree(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, tree.Children[0].Children, 1, "rejected adds leave the tree alone")
}

func TestTreeService_ScheduleConflictBlocksUpdate(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1"})
	y := s.add(t, p.ID, p1.ID, NodeInput{Name: "Y", Start: datePtr("2024-03-01"), End: datePtr("2024-03-15")})
	x := s.add(t, p.ID, p1.ID, NodeInput{Name: "X", Start: datePtr("2024-03-20"), End: datePtr("2024-03-25"),
		Dependencies: []string{y.ID}})

	_, err := s.trees.UpdateNode(ctx, p.ID, x.ID, NodePatch{Start: &DateValue{Date: datePtr("2024-03-10")}})
	require.Error(t, err)

	var conflict *ScheduleConflictError
	require.True(t, errors.As(err, &conflict))
	assert.False(t, conflict.Result.IsValid)
	require.Len(t, conflict.Result.Conflicts, 1)
	assert.Equal(t, y.ID, conflict.Result.Conflicts[0].ID)
	assert.Equal(t, testutil.Date("2024-03-16"), *conflict.Result.SuggestedStartDate)

	stored, err := s.trees.Node(ctx, p.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2024-03-20"), *stored.StartDate(), "rejected update is not saved")
}

func TestTreeService_OverrideStoresConflictingSchedule(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1"})
	y := s.add(t, p.ID, p1.ID, NodeInput{Name: "Y", Start: datePtr("2024-03-01"), End: datePtr("2024-03-15")})

	x, err := s.trees.AddChild(ctx, p.ID, p1.ID, NodeInput{Name: "X",
		Start: datePtr("2024-03-10"), End: datePtr("2024-03-12"),
		Dependencies: []string{y.ID}, Override: true})
	require.NoError(t, err)
	assert.Equal(t, []string{y.ID}, x.Dependencies)
	assert.Equal(t, testutil.Date("2024-03-10"), *x.StartDate())
}

func TestTreeService_DateRangeErrorBlocksUpdate(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1"})

	_, err := s.trees.UpdateNode(ctx, p.ID, p1.ID, NodePatch{
		Start: &DateValue{Date: datePtr("2024-02-01")},
		End:   &DateValue{Date: datePtr("2024-01-31")},
	})
	var conflict *ScheduleConflictError
	require.True(t, errors.As(err, &conflict))
	assert.True(t, conflict.Result.HasDateRangeError)
	assert.Equal(t, testutil.Date("2024-02-08"), *conflict.Result.SuggestedEndDate)
}

func TestTreeService_DependencyErrors(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	a := s.add(t, p.ID, root.ID, NodeInput{Name: "A"})
	b := s.add(t, p.ID, root.ID, NodeInput{Name: "B", Dependencies: []string{a.ID}})

	tests := []struct {
		name   string
		nodeID string
		deps   []string
		want   error
	}{
		{"self", a.ID, []string{a.ID}, scheduler.ErrSelfDependency},
		{"mutual cycle", a.ID, []string{b.ID}, scheduler.ErrDependencyCycle},
		{"unknown", a.ID, []string{"ghost"}, scheduler.ErrUnknownDependency},
		{"duplicate", b.ID, []string{a.ID, a.ID}, scheduler.ErrDuplicateDependency},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.trees.UpdateNode(ctx, p.ID, tc.nodeID, NodePatch{Dependencies: &tc.deps})
			var depErr *DependencyError
			require.True(t, errors.As(err, &depErr), "got %v", err)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	stored, err := s.trees.Node(ctx, p.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Dependencies, "rejected assignments are never applied")
}

func TestTreeService_ClearDependencies(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	a := s.add(t, p.ID, root.ID, NodeInput{Name: "A"})
	b := s.add(t, p.ID, root.ID, NodeInput{Name: "B", Dependencies: []string{a.ID}})

	updated, err := s.trees.UpdateNode(ctx, p.ID, b.ID, NodePatch{Dependencies: &[]string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Dependencies)
}

func TestTreeService_UpdateFields(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1", TRL: ptr(2)})
	a1 := s.add(t, p.ID, p1.ID, NodeInput{Name: "A1", Cost: 10,
		Start: datePtr("2024-01-01"), End: datePtr("2024-01-05")})
	require.NotNil(t, a1.DurationDays)
	assert.Equal(t, 4, *a1.DurationDays)

	status := domain.StatusInProgress
	updated, err := s.trees.UpdateNode(ctx, p.ID, a1.ID, NodePatch{
		Name:        ptr("Assemble"),
		Cost:        ptr(25.0),
		End:         &DateValue{Date: datePtr("2024-01-11")},
		Status:      &status,
		Responsible: ptr("Ana"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Assemble", updated.Name)
	assert.Equal(t, "Ana", updated.Responsible)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	require.NotNil(t, updated.DurationDays)
	assert.Equal(t, 10, *updated.DurationDays, "duration follows the new dates")

	tree, err := s.trees.Tree(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, tree.TotalCost)

	phase, err := s.trees.UpdateNode(ctx, p.ID, p1.ID, NodePatch{TRL: ptr(0)})
	require.NoError(t, err)
	assert.Nil(t, phase.TRL)

	cleared, err := s.trees.UpdateNode(ctx, p.ID, a1.ID, NodePatch{Start: &DateValue{}, End: &DateValue{}})
	require.NoError(t, err)
	assert.Nil(t, cleared.StartDate())
	assert.Nil(t, cleared.DurationDays)

	_, err = s.trees.UpdateNode(ctx, p.ID, a1.ID, NodePatch{Status: ptr(domain.Status("blocked"))})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.trees.UpdateNode(ctx, p.ID, "missing", NodePatch{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTreeService_DeleteStripsDanglingDependencies(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1", Cost: 10})
	a1 := s.add(t, p.ID, p1.ID, NodeInput{Name: "A1", Cost: 5})
	p2 := s.add(t, p.ID, root.ID, NodeInput{Name: "P2", Cost: 20, Dependencies: []string{a1.ID}})
	p3 := s.add(t, p.ID, root.ID, NodeInput{Name: "P3", Dependencies: []string{p1.ID, p2.ID}})

	require.NoError(t, s.trees.DeleteNode(ctx, p.ID, p1.ID))

	tree, err := s.trees.Tree(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, 20.0, tree.TotalCost)
	assert.Empty(t, tree.Children[0].Dependencies)
	assert.Equal(t, []string{p2.ID}, tree.Children[1].Dependencies)
	assert.Equal(t, p3.ID, tree.Children[1].ID)
	assert.Equal(t, 0, tree.Children[0].OrderIndex)
	assert.Equal(t, 2, s.observer.last().Fields["removed"])

	assert.ErrorIs(t, s.trees.DeleteNode(ctx, p.ID, p1.ID), repository.ErrNotFound)
}

func TestTreeService_DeleteLastActivityClearsPhaseDuration(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1"})
	a1 := s.add(t, p.ID, p1.ID, NodeInput{Name: "A1",
		Start: datePtr("2024-01-01"), End: datePtr("2024-03-01")})

	phase, err := s.trees.Node(ctx, p.ID, p1.ID)
	require.NoError(t, err)
	require.NotNil(t, phase.DurationDays)
	assert.Equal(t, 60, *phase.DurationDays)

	require.NoError(t, s.trees.DeleteNode(ctx, p.ID, a1.ID))

	phase, err = s.trees.Node(ctx, p.ID, p1.ID)
	require.NoError(t, err)
	assert.True(t, phase.IsLeaf())
	assert.Nil(t, phase.StartDate())
	assert.Nil(t, phase.DurationDays)
}

func TestTreeService_DeleteRootResets(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	s.add(t, p.ID, root.ID, NodeInput{Name: "P1", Cost: 10})
	_, err := s.trees.UpdateNode(ctx, p.ID, root.ID, NodePatch{Cost: ptr(5.0), Description: ptr("x")})
	require.NoError(t, err)

	require.NoError(t, s.trees.DeleteNode(ctx, p.ID, root.ID))

	tree, err := s.trees.Tree(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, tree.ID)
	assert.Equal(t, "Probe", tree.Name)
	assert.Empty(t, tree.Children)
	assert.Zero(t, tree.TotalCost)
	assert.Empty(t, tree.Description)
}

func TestTreeService_ValidateScheduleAndCheckDependencies(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	y := s.add(t, p.ID, root.ID, NodeInput{Name: "Y", Start: datePtr("2024-03-01"), End: datePtr("2024-03-15")})
	x := s.add(t, p.ID, root.ID, NodeInput{Name: "X"})

	res, err := s.trees.ValidateSchedule(ctx, p.ID, scheduler.ValidateInput{
		NodeID: x.ID, Start: datePtr("2024-03-10"), DependencyIDs: []string{y.ID},
	})
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, testutil.Date("2024-03-16"), *res.SuggestedStartDate)

	errs, err := s.trees.CheckDependencies(ctx, p.ID, x.ID, []string{x.ID, y.ID})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], scheduler.ErrSelfDependency)

	_, err = s.trees.CheckDependencies(ctx, p.ID, "missing", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTreeService_ProgressAndSummary(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	p1 := s.add(t, p.ID, root.ID, NodeInput{Name: "P1", TRL: ptr(4)})
	for _, st := range []domain.Status{domain.StatusCompleted, domain.StatusCompleted, domain.StatusInProgress, domain.StatusNotStarted} {
		s.add(t, p.ID, p1.ID, NodeInput{Name: string(st), Status: st})
	}

	pct, err := s.trees.Progress(ctx, p.ID, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 63, pct)

	sum, err := s.trees.Summary(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.LeafCount)
	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 63, sum.ProgressPct)
	assert.Equal(t, 1, sum.TRLHistogram[4])
}

func TestTreeService_RecomputeRepairsStoredTotals(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	p, root := s.createProject(t, "Probe", "PRB01")
	s.add(t, p.ID, root.ID, NodeInput{Name: "P1", Cost: 40})

	_, err := s.db.Exec(`UPDATE wbs_nodes SET total_cost = 999 WHERE project_id = ?`, p.ID)
	require.NoError(t, err)

	fixed, err := s.trees.Recompute(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, fixed.TotalCost)

	tree, err := s.trees.Tree(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, tree.TotalCost)
	assert.Equal(t, 40.0, tree.Children[0].TotalCost)
}
