package formatter

import (
	"strings"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
)

var nodeTableHeaders = []string{"CODE", "NAME", "LEVEL", "COST", "TOTAL", "START", "END", "DAYS", "STATUS", "DONE", "RESPONSIBLE"}

var nodeTableAlign = []Align{
	AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight,
	AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignRight, AlignLeft,
}

// FormatNodeTable renders every node of a processed tree as one table row in
// outline order. Names are indented by depth.
func FormatNodeTable(root *domain.TreeNode) string {
	if root == nil {
		return ""
	}
	codes := domain.WBSCodes(root)

	var rows [][]string
	root.Walk(func(n *domain.TreeNode) bool {
		status := Dim("--")
		if n.IsLeaf() && n.Status != "" {
			status = StatusColor(n.Status).Render(string(n.Status))
		}
		responsible := n.Responsible
		if responsible == "" {
			responsible = Dim("--")
		}
		rows = append(rows, []string{
			codes[n.ID],
			strings.Repeat("  ", int(n.Level-domain.LevelProject)) + n.Name,
			n.Level.String(),
			FormatMoney(n.OwnCost(), ""),
			FormatMoney(n.TotalCost, ""),
			StartCell(n),
			EndCell(n),
			FormatDays(n.DurationDays),
			status,
			ProgressBadge(rollup.PercentComplete(n)),
			responsible,
		})
		return true
	})
	return RenderAlignedTable(nodeTableHeaders, rows, nodeTableAlign)
}
