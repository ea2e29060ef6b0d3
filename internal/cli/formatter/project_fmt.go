package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/alexanderramin/wbs/internal/scheduler"
)

// FormatProjectList renders a styled project list inside a bordered box.
func FormatProjectList(projects []*domain.Project) string {
	if len(projects) == 0 {
		return Dim("No projects yet. Create one with: wbs project create NAME --id SHORTID") + "\n"
	}
	headers := []string{"ID", "NAME", "CURRENCY", "UPDATED"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			p.DisplayID(),
			Bold(p.Name),
			p.Currency,
			Dim(p.UpdatedAt.Format(domain.DateLayout)),
		})
	}
	return RenderBox("Projects", RenderTable(headers, rows))
}

// FormatNode renders the detail card for one node. names resolves
// dependency ids to display labels; unresolved ids are shown as-is.
func FormatNode(n *domain.TreeNode, code, currency string, names map[string]string) string {
	var b strings.Builder
	field := func(label, value string) {
		b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render(fmt.Sprintf("%-11s", label)), value))
	}

	b.WriteString(Dim(code) + " " + Bold(n.Name) + "  " + LevelBadge(n.Level) + "\n\n")
	field("ID", n.ID)
	field("COST", FormatMoney(n.OwnCost(), currency))
	field("TOTAL", Bold(FormatMoney(n.TotalCost, currency)))
	field("START", StartCell(n))
	field("END", EndCell(n))
	field("DURATION", FormatDays(n.DurationDays))
	if n.IsLeaf() {
		field("STATUS", StatusPill(n.Status))
	}
	field("PROGRESS", RenderProgress(rollup.PercentComplete(n), 10))
	if n.Responsible != "" {
		field("RESPONSIBLE", n.Responsible)
	}
	if n.Level == domain.LevelPhase {
		field("TRL", FormatTRL(n.TRL))
	}
	if len(n.Dependencies) > 0 {
		labels := make([]string, len(n.Dependencies))
		for i, id := range n.Dependencies {
			labels[i] = id
			if name, ok := names[id]; ok {
				labels[i] = name
			}
		}
		field("DEPENDS ON", strings.Join(labels, ", "))
	}
	if n.Description != "" {
		b.WriteString("\n" + n.Description + "\n")
	}
	return RenderBox("", b.String())
}

// NodeLabels maps every node id to "code name" for messages and pickers.
func NodeLabels(root *domain.TreeNode) map[string]string {
	codes := domain.WBSCodes(root)
	labels := make(map[string]string, len(codes))
	root.Walk(func(n *domain.TreeNode) bool {
		labels[n.ID] = codes[n.ID] + " " + n.Name
		return true
	})
	return labels
}

// FormatValidation renders a schedule check result with its conflicts and
// suggested dates.
func FormatValidation(res scheduler.ValidationResult) string {
	if res.IsValid {
		return StyleGreen.Render("✔ "+res.Message) + "\n"
	}
	var b strings.Builder
	b.WriteString(StyleRed.Render("✖ "+res.Message) + "\n")
	if res.HasDateRangeError {
		b.WriteString("  " + StyleYellow.Render("end date must be after start date") + "\n")
	}
	for _, c := range res.Conflicts {
		b.WriteString(fmt.Sprintf("  %s %s %s\n", StyleRed.Render("•"), c.Name,
			Dim("ends "+c.EndDate.Format(domain.DateLayout))))
	}
	if res.SuggestedStartDate != nil {
		b.WriteString(fmt.Sprintf("  suggested start: %s\n", Bold(FormatDate(res.SuggestedStartDate))))
	}
	if res.SuggestedEndDate != nil {
		b.WriteString(fmt.Sprintf("  suggested end:   %s\n", Bold(FormatDate(res.SuggestedEndDate))))
	}
	return b.String()
}

// FormatErrors renders a list of validation errors, one per line.
func FormatErrors(title string, errs []error) string {
	var b strings.Builder
	b.WriteString(StyleRed.Render(fmt.Sprintf("✖ %s (%d)", title, len(errs))) + "\n")
	for _, err := range errs {
		b.WriteString("  " + StyleRed.Render("•") + " " + err.Error() + "\n")
	}
	return b.String()
}
