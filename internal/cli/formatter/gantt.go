package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultGanttWidth = 40
	summaryBlock      = "▓"
	criticalMark      = "!"
)

// GanttOptions controls FormatGantt.
type GanttOptions struct {
	// Width is the number of bar columns; zero uses a default.
	Width int
	// Critical lists node ids drawn as the critical chain.
	Critical []string
}

// FormatGantt draws one bar per node over the project's overall span. Leaf
// bars use solid blocks, parent bars a lighter shade, and nodes on the
// critical chain are marked with "!". Undated nodes get an empty track.
func FormatGantt(root *domain.TreeNode, opts GanttOptions) string {
	if root == nil {
		return ""
	}
	from, to := rollup.Span(root)
	if from == nil || to == nil {
		return Dim("No dated nodes to chart.") + "\n"
	}

	width := opts.Width
	if width <= 0 {
		width = defaultGanttWidth
	}
	totalDays := domain.DaysBetween(*from, *to) + 1
	critical := make(map[string]bool, len(opts.Critical))
	for _, id := range opts.Critical {
		critical[id] = true
	}
	codes := domain.WBSCodes(root)

	type row struct {
		label string
		node  *domain.TreeNode
	}
	var rows []row
	labelWidth := 0
	root.Walk(func(n *domain.TreeNode) bool {
		label := strings.Repeat("  ", int(n.Level-domain.LevelProject)) + codes[n.ID] + " " + n.Name
		if w := lipgloss.Width(label); w > labelWidth {
			labelWidth = w
		}
		rows = append(rows, row{label: label, node: n})
		return true
	})

	var b strings.Builder
	header := fmt.Sprintf("%s → %s (%d days)", from.Format(domain.DateLayout), to.Format(domain.DateLayout), totalDays)
	b.WriteString(StyleHeader.Render(header) + "\n")
	for _, r := range rows {
		mark := " "
		if critical[r.node.ID] {
			mark = StyleRed.Render(criticalMark)
		}
		pad := strings.Repeat(" ", labelWidth-lipgloss.Width(r.label))
		bar := ganttBar(r.node, *from, totalDays, width, critical[r.node.ID])
		b.WriteString(mark + " " + r.label + pad + " " + Dim("│") + bar + Dim("│") + "\n")
	}
	return b.String()
}

// ganttBar maps the node's inclusive day range onto width columns. A dated
// node always covers at least one column.
func ganttBar(n *domain.TreeNode, from time.Time, totalDays, width int, critical bool) string {
	start, end := n.StartDate(), n.EndDate()
	if start == nil || end == nil {
		return strings.Repeat(" ", width)
	}
	first := domain.DaysBetween(from, *start)
	last := domain.DaysBetween(from, *end) + 1

	c0 := first * width / totalDays
	c1 := (last*width + totalDays - 1) / totalDays
	if c1 <= c0 {
		c1 = c0 + 1
	}
	if c1 > width {
		c1 = width
	}

	block := filledBlock
	if !n.IsLeaf() {
		block = summaryBlock
	}
	style := StyleBlue
	if critical {
		style = StyleRed
	}
	return strings.Repeat(" ", c0) + style.Render(strings.Repeat(block, c1-c0)) + strings.Repeat(" ", width-c1)
}
