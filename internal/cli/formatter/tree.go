package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/rollup"
	"github.com/charmbracelet/lipgloss"
)

// TreeItem represents a single line in a tree display.
type TreeItem struct {
	Title string
	Code  string // outline code shown before the title; empty hides it
	// Level is the depth below the top item. Guides holds one entry per
	// ancestor between the top item and this one: true draws a vertical
	// connector for an ancestor that still has siblings below.
	Level  int
	Guides []bool
	IsLast bool
	Status domain.Status
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeSpace  = "   "
	detailSep  = " | "
)

// RenderTree renders TreeItems as an indented tree using box-drawing
// connectors. Completed items get a green ✔ prefix, in-progress items an
// amber ▶ prefix, and details are aligned in a column after the widest title.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	contents := make([]string, len(items))
	maxContentWidth := 0

	// Pass 1: build each line's content and track max visible width.
	for idx, item := range items {
		var prefix strings.Builder
		if item.Level > 0 {
			for _, open := range item.Guides {
				if open {
					prefix.WriteString(treePipe)
				} else {
					prefix.WriteString(treeSpace)
				}
			}
			if item.IsLast {
				prefix.WriteString(treeCorner)
			} else {
				prefix.WriteString(treeBranch)
			}
		}

		title := item.Title
		statusPrefix := ""
		switch item.Status {
		case domain.StatusCompleted:
			statusPrefix = StyleGreen.Render("✔ ")
			title = Dim(title)
		case domain.StatusInProgress:
			statusPrefix = StyleYellowBold.Render("▶ ")
			title = StyleYellowBold.Render(title)
		}
		if item.Code != "" {
			title = Dim(item.Code) + " " + title
		}

		contents[idx] = prefix.String() + statusPrefix + title
		if w := lipgloss.Width(contents[idx]); w > maxContentWidth {
			maxContentWidth = w
		}
	}

	// Pass 2: render with aligned details.
	var b strings.Builder
	for idx, content := range contents {
		if items[idx].Detail == "" {
			b.WriteString(content + "\n")
			continue
		}
		pad := maxContentWidth - lipgloss.Width(content)
		b.WriteString(content + strings.Repeat(" ", pad) + "  " + items[idx].Detail + "\n")
	}
	return b.String()
}

// TreeOptions controls FormatTree.
type TreeOptions struct {
	Currency string
	// Groups collapse sibling phases under a display-only heading.
	Groups []PhaseGroup
}

// FormatTree renders a processed tree with outline codes, total cost, the
// effective date range and percent complete on every line.
func FormatTree(root *domain.TreeNode, opts TreeOptions) string {
	if root == nil {
		return ""
	}
	codes := domain.WBSCodes(root)

	items := []TreeItem{{
		Title:  Bold(root.Name),
		Code:   codes[root.ID],
		Detail: nodeDetail(root, opts.Currency),
	}}

	entries := groupEntries(root, opts.Groups)
	for i, e := range entries {
		last := i == len(entries)-1
		if e.group == nil {
			items = appendSubtree(items, e.node, codes, opts.Currency, nil, last)
			continue
		}
		items = append(items, TreeItem{
			Title:  StylePurple.Render(e.group.Label),
			Level:  1,
			IsLast: last,
			Detail: groupDetail(e.group, opts.Currency),
		})
		for j, phase := range e.members {
			items = appendSubtree(items, phase, codes, opts.Currency, []bool{!last}, j == len(e.members)-1)
		}
	}
	return RenderTree(items)
}

func appendSubtree(items []TreeItem, n *domain.TreeNode, codes map[string]string, currency string, guides []bool, last bool) []TreeItem {
	item := TreeItem{
		Title:  n.Name,
		Code:   codes[n.ID],
		Level:  len(guides) + 1,
		Guides: guides,
		IsLast: last,
		Detail: nodeDetail(n, currency),
	}
	if n.IsLeaf() {
		item.Status = n.Status
	}
	items = append(items, item)

	childGuides := make([]bool, len(guides), len(guides)+1)
	copy(childGuides, guides)
	childGuides = append(childGuides, !last)
	for i, c := range n.Children {
		items = appendSubtree(items, c, codes, currency, childGuides, i == len(n.Children)-1)
	}
	return items
}

func nodeDetail(n *domain.TreeNode, currency string) string {
	return strings.Join([]string{
		FormatMoney(n.TotalCost, currency),
		fmt.Sprintf("%s → %s", StartCell(n), EndCell(n)),
		ProgressBadge(rollup.PercentComplete(n)),
	}, Dim(detailSep))
}

func groupDetail(g *PhaseGroup, currency string) string {
	dates := fmt.Sprintf("%s → %s", FormatDate(g.Start), FormatDate(g.End))
	return strings.Join([]string{
		FormatMoney(g.TotalCost, currency),
		dates,
		ProgressBadge(g.Progress),
	}, Dim(detailSep))
}
