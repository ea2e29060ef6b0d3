// Package scheduler checks a node's proposed schedule against its own date
// ordering and its dependency list, and holds the dependency graph used to
// refuse self references and cycles.
package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
)

const suggestedMinDurationDays = 7

// ValidateInput is a candidate schedule for one node.
type ValidateInput struct {
	NodeID        string
	Start         *time.Time
	End           *time.Time
	DependencyIDs []string
}

// Conflict is a dependency that has not finished before the candidate start.
type Conflict struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	EndDate time.Time `json:"endDate"`
}

// ValidationResult is the outcome of Validate. Suggested dates are set only
// for the error kind they fix.
type ValidationResult struct {
	IsValid            bool       `json:"isValid"`
	Message            string     `json:"message"`
	Conflicts          []Conflict `json:"conflictingDependencies"`
	HasDateRangeError  bool       `json:"hasDateRangeError"`
	SuggestedStartDate *time.Time `json:"suggestedStartDate,omitempty"`
	SuggestedEndDate   *time.Time `json:"suggestedEndDate,omitempty"`
}

// Validate runs the range check and the dependency check independently and
// combines them. Dependencies are resolved from root by id; ids that resolve
// to nothing are skipped here, CheckDependencies reports them. Dependency
// checking needs a start date and is skipped without one.
func Validate(root *domain.TreeNode, in ValidateInput) ValidationResult {
	var res ValidationResult

	if in.Start != nil && in.End != nil {
		start := domain.TruncateDay(*in.Start)
		end := domain.TruncateDay(*in.End)
		if !end.After(start) {
			res.HasDateRangeError = true
			suggested := domain.AddDays(start, suggestedMinDurationDays)
			res.SuggestedEndDate = &suggested
		}
	}

	if in.Start != nil && root != nil {
		start := domain.TruncateDay(*in.Start)
		idx := domain.NewIndex(root)
		seen := make(map[string]bool, len(in.DependencyIDs))
		var latest *time.Time
		for _, id := range in.DependencyIDs {
			if seen[id] || id == in.NodeID {
				continue
			}
			seen[id] = true
			dep := idx.Get(id)
			if dep == nil {
				continue
			}
			depEnd := dep.EndDate()
			if depEnd == nil || start.After(*depEnd) {
				continue
			}
			res.Conflicts = append(res.Conflicts, Conflict{ID: dep.ID, Name: dep.Name, EndDate: *depEnd})
			if latest == nil || depEnd.After(*latest) {
				latest = depEnd
			}
		}
		if latest != nil {
			suggested := domain.AddDays(*latest, 1)
			res.SuggestedStartDate = &suggested
		}
	}

	res.IsValid = !res.HasDateRangeError && len(res.Conflicts) == 0
	res.Message = composeMessage(res)
	return res
}

func composeMessage(res ValidationResult) string {
	var parts []string
	if res.HasDateRangeError {
		parts = append(parts, fmt.Sprintf("end date must be after start date (suggested end %s)",
			res.SuggestedEndDate.Format(domain.DateLayout)))
	}
	if len(res.Conflicts) > 0 {
		names := make([]string, len(res.Conflicts))
		for i, c := range res.Conflicts {
			names[i] = fmt.Sprintf("%s (ends %s)", c.Name, c.EndDate.Format(domain.DateLayout))
		}
		parts = append(parts, fmt.Sprintf("starts before dependencies finish: %s (suggested start %s)",
			strings.Join(names, ", "), res.SuggestedStartDate.Format(domain.DateLayout)))
	}
	if len(parts) == 0 {
		return "schedule is valid"
	}
	return strings.Join(parts, "; ")
}
