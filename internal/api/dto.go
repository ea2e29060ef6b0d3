package api

import (
	"fmt"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/alexanderramin/wbs/internal/service"
)

type projectDTO struct {
	ID        string    `json:"id"`
	ShortID   string    `json:"shortId"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	RootID    string    `json:"rootId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toProjectDTO(p *domain.Project) projectDTO {
	return projectDTO{
		ID:        p.ID,
		ShortID:   p.ShortID,
		Name:      p.Name,
		Currency:  p.Currency,
		RootID:    p.RootID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type createProjectRequest struct {
	Name     string `json:"name" binding:"required"`
	ShortID  string `json:"shortId" binding:"required"`
	Currency string `json:"currency"`
}

// nodeDTO is the wire form of a processed node. Start and End are the
// effective dates; the explicit values are reported separately so an
// editor can tell typed dates from inherited ones.
type nodeDTO struct {
	ID            string     `json:"id"`
	ParentID      *string    `json:"parentId"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Level         int        `json:"level"`
	Cost          float64    `json:"cost"`
	TotalCost     float64    `json:"totalCost"`
	Start         string     `json:"start,omitempty"`
	End           string     `json:"end,omitempty"`
	StartExplicit string     `json:"startExplicit,omitempty"`
	EndExplicit   string     `json:"endExplicit,omitempty"`
	DurationDays  *int       `json:"durationDays,omitempty"`
	Status        string     `json:"status,omitempty"`
	Responsible   string     `json:"responsible,omitempty"`
	Description   string     `json:"description,omitempty"`
	Dependencies  []string   `json:"dependencies"`
	TRL           *int       `json:"trl,omitempty"`
	Progress      int        `json:"progress"`
	Children      []*nodeDTO `json:"children,omitempty"`
}

func toNodeDTO(n *domain.TreeNode, codes map[string]string) *nodeDTO {
	deps := n.Dependencies
	if deps == nil {
		deps = []string{}
	}
	dto := &nodeDTO{
		ID:            n.ID,
		ParentID:      n.ParentID,
		Code:          codes[n.ID],
		Name:          n.Name,
		Level:         int(n.Level),
		Cost:          n.Cost,
		TotalCost:     n.TotalCost,
		Start:         domain.FormatOptionalDate(n.StartDate()),
		End:           domain.FormatOptionalDate(n.EndDate()),
		StartExplicit: domain.FormatOptionalDate(n.Start.Explicit),
		EndExplicit:   domain.FormatOptionalDate(n.End.Explicit),
		DurationDays:  n.DurationDays,
		Status:        string(n.Status),
		Responsible:   n.Responsible,
		Description:   n.Description,
		Dependencies:  deps,
		TRL:           n.TRL,
		Progress:      rollup.PercentComplete(n),
	}
	for _, c := range n.Children {
		dto.Children = append(dto.Children, toNodeDTO(c, codes))
	}
	return dto
}

// nodeRequest creates a child node. Dates are YYYY-MM-DD.
type nodeRequest struct {
	Name         string   `json:"name" binding:"required"`
	Cost         float64  `json:"cost"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	DurationDays *int     `json:"durationDays"`
	Status       string   `json:"status"`
	Responsible  string   `json:"responsible"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
	TRL          *int     `json:"trl"`
	Override     bool     `json:"override"`
}

func (r nodeRequest) toInput() (service.NodeInput, error) {
	in := service.NodeInput{
		Name:         r.Name,
		Cost:         r.Cost,
		DurationDays: r.DurationDays,
		Responsible:  r.Responsible,
		Description:  r.Description,
		Dependencies: r.Dependencies,
		TRL:          r.TRL,
		Override:     r.Override,
	}
	var err error
	if in.Start, err = parseDate("start", r.Start); err != nil {
		return in, err
	}
	if in.End, err = parseDate("end", r.End); err != nil {
		return in, err
	}
	if in.Status, err = domain.ParseStatus(r.Status); err != nil {
		return in, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	return in, nil
}

// patchRequest updates a node. Absent fields are left alone; an empty
// start or end string clears that explicit date.
type patchRequest struct {
	Name         *string   `json:"name"`
	Cost         *float64  `json:"cost"`
	Start        *string   `json:"start"`
	End          *string   `json:"end"`
	DurationDays *int      `json:"durationDays"`
	Status       *string   `json:"status"`
	Responsible  *string   `json:"responsible"`
	Description  *string   `json:"description"`
	Dependencies *[]string `json:"dependencies"`
	TRL          *int      `json:"trl"`
	Override     bool      `json:"override"`
}

func (r patchRequest) toPatch() (service.NodePatch, error) {
	patch := service.NodePatch{
		Name:         r.Name,
		Cost:         r.Cost,
		DurationDays: r.DurationDays,
		Responsible:  r.Responsible,
		Description:  r.Description,
		Dependencies: r.Dependencies,
		TRL:          r.TRL,
		Override:     r.Override,
	}
	if r.Start != nil {
		t, err := parseDate("start", *r.Start)
		if err != nil {
			return patch, err
		}
		patch.Start = &service.DateValue{Date: t}
	}
	if r.End != nil {
		t, err := parseDate("end", *r.End)
		if err != nil {
			return patch, err
		}
		patch.End = &service.DateValue{Date: t}
	}
	if r.Status != nil {
		s, err := domain.ParseStatus(*r.Status)
		if err != nil {
			return patch, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		patch.Status = &s
	}
	return patch, nil
}

// validateRequest asks whether a candidate schedule fits a node's
// dependencies without saving anything.
type validateRequest struct {
	NodeID       string   `json:"nodeId"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Dependencies []string `json:"dependencies"`
}

type summaryDTO struct {
	Phases       int            `json:"phases"`
	Activities   int            `json:"activities"`
	Leaves       int            `json:"leaves"`
	Completed    int            `json:"completed"`
	InProgress   int            `json:"inProgress"`
	NotStarted   int            `json:"notStarted"`
	Progress     int            `json:"progress"`
	TotalCost    float64        `json:"totalCost"`
	Start        string         `json:"start,omitempty"`
	End          string         `json:"end,omitempty"`
	DurationDays int            `json:"durationDays"`
	TRL          map[string]int `json:"trl"`
	Unscheduled  int            `json:"unscheduled"`
}

func toSummaryDTO(s rollup.Summary) summaryDTO {
	trl := make(map[string]int, len(s.TRLHistogram))
	for lvl, n := range s.TRLHistogram {
		trl[fmt.Sprintf("%d", lvl)] = n
	}
	return summaryDTO{
		Phases:       s.NodesByLevel[domain.LevelPhase],
		Activities:   s.NodesByLevel[domain.LevelActivity],
		Leaves:       s.LeafCount,
		Completed:    s.Completed,
		InProgress:   s.InProgress,
		NotStarted:   s.NotStarted,
		Progress:     s.ProgressPct,
		TotalCost:    s.TotalCost,
		Start:        domain.FormatOptionalDate(s.Start),
		End:          domain.FormatOptionalDate(s.End),
		DurationDays: s.DurationDays,
		TRL:          trl,
		Unscheduled:  s.Unscheduled,
	}
}

func parseDate(field, s string) (*time.Time, error) {
	t, err := domain.ParseOptionalDate(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s date %q: use YYYY-MM-DD", service.ErrInvalidInput, field, s)
	}
	return t, nil
}
