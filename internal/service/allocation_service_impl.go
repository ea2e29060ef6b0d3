package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/wbs/internal/budget"
	"github.com/alexanderramin/wbs/internal/repository"
)

type allocationService struct {
	store    repository.TreeStore
	observer UseCaseObserver
	now      func() time.Time
}

// NewAllocationService spreads a project's costs over calendar periods.
func NewAllocationService(store repository.TreeStore, observers ...UseCaseObserver) AllocationService {
	return &allocationService{
		store:    store,
		observer: useCaseObserverOrNoop(observers),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *allocationService) Allocate(ctx context.Context, projectID string, req budget.Request) (alloc *budget.Allocation, err error) {
	startedAt := s.now()
	fields := map[string]any{"project_id": projectID, "period": string(req.Period), "mode": string(req.Mode)}
	defer func() { observe(ctx, s.observer, "allocate-budget", startedAt, fields, err) }()

	root, err := s.store.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if req.Now.IsZero() {
		req.Now = startedAt
	}
	alloc, err = budget.Allocate(root, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fields["buckets"] = len(alloc.Buckets)
	return alloc, nil
}
