package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
)

const statusProgressBarWidth = 20

// FormatStatus renders a project summary dashboard: progress, cost, the
// overall date span, node counts and the TRL histogram of its phases.
func FormatStatus(p *domain.Project, s rollup.Summary, now time.Time) string {
	var b strings.Builder

	b.WriteString(Bold(p.Name) + "  " + Dim(p.DisplayID()) + "\n\n")

	b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("PROGRESS"), RenderProgress(s.ProgressPct, statusProgressBarWidth)))
	b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("COST    "), Bold(FormatMoney(s.TotalCost, p.Currency))))

	span := Dim("unscheduled")
	if s.Start != nil && s.End != nil {
		span = fmt.Sprintf("%s → %s  %s", FormatDate(s.Start), FormatDate(s.End),
			Dim(fmt.Sprintf("(%dd, ends %s)", s.DurationDays, strings.ToLower(RelativeDateFrom(*s.End, now)))))
	}
	b.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("DATES   "), span))

	b.WriteString(fmt.Sprintf("%s  %d phases, %d activities\n", StyleDim.Render("NODES   "),
		s.NodesByLevel[domain.LevelPhase], s.NodesByLevel[domain.LevelActivity]))
	b.WriteString(fmt.Sprintf("%s  %s, %s, %s\n", StyleDim.Render("LEAVES  "),
		StyleGreen.Render(fmt.Sprintf("%d completed", s.Completed)),
		StyleYellow.Render(fmt.Sprintf("%d in progress", s.InProgress)),
		StyleBlue.Render(fmt.Sprintf("%d not started", s.NotStarted))))

	if len(s.TRLHistogram) > 0 {
		b.WriteString("\n" + Header("TRL") + "\n")
		levels := make([]int, 0, len(s.TRLHistogram))
		for lvl := range s.TRLHistogram {
			levels = append(levels, lvl)
		}
		sort.Ints(levels)
		for _, lvl := range levels {
			n := s.TRLHistogram[lvl]
			b.WriteString(fmt.Sprintf("TRL %d  %s %d\n", lvl, StylePurple.Render(strings.Repeat(filledBlock, n)), n))
		}
	}

	if s.Unscheduled > 0 {
		b.WriteString("\n" + StyleYellow.Render(fmt.Sprintf("  WARNING: %d leaf nodes have no complete date range", s.Unscheduled)) + "\n")
	}

	return RenderBox("Status", b.String())
}
