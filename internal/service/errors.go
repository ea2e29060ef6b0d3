package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/wbs/internal/scheduler"
)

// ErrInvalidInput marks requests rejected before any state is touched.
var ErrInvalidInput = errors.New("invalid input")

// DependencyError lists every structural problem with a dependency
// assignment: self references, unknown ids, duplicates and cycles.
type DependencyError struct {
	NodeID string
	Errs   []error
}

func (e *DependencyError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid dependencies for node %s: %s", e.NodeID, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is.
func (e *DependencyError) Unwrap() []error {
	return e.Errs
}

// ScheduleConflictError is returned when a node's dates clash with its
// dependencies and the caller did not ask to override. Result carries the
// conflicts and suggested dates.
type ScheduleConflictError struct {
	NodeID string
	Result scheduler.ValidationResult
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("schedule conflict for node %s: %s", e.NodeID, e.Result.Message)
}
