package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// InheritedMark follows a date that came from the node's children rather
// than from the user.
const InheritedMark = "*"

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		inner := titleRendered + "\n\n" + content
		return boxStyle.Render(inner)
	}

	return boxStyle.Render(content)
}

// RelativeDateFrom returns a human-friendly relative date string from a reference time.
func RelativeDateFrom(t time.Time, now time.Time) string {
	diff := t.Sub(now)
	days := int(math.Round(diff.Hours() / 24))

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 0 && days < 14:
		return fmt.Sprintf("In %dd", days)
	case days > 0 && days < 60:
		return fmt.Sprintf("In %dw", days/7)
	case days > 0:
		return fmt.Sprintf("In %dmo", days/30)
	case days < 0 && days > -14:
		return fmt.Sprintf("%dd ago", -days)
	case days < 0 && days > -60:
		return fmt.Sprintf("%dw ago", -days/7)
	default:
		return fmt.Sprintf("%dmo ago", -days/30)
	}
}

// FormatDate renders an optional date as YYYY-MM-DD, or "--".
func FormatDate(t *time.Time) string {
	if t == nil {
		return "--"
	}
	return t.Format(domain.DateLayout)
}

// StartCell renders a node's effective start, marking values that came from
// its children.
func StartCell(n *domain.TreeNode) string {
	return dateCell(n.StartDate(), n.Start.Explicit)
}

// EndCell renders a node's effective end, marking values that came from its
// children.
func EndCell(n *domain.TreeNode) string {
	return dateCell(n.EndDate(), n.End.Explicit)
}

func dateCell(effective, explicit *time.Time) string {
	if effective == nil {
		return Dim("--")
	}
	s := effective.Format(domain.DateLayout)
	if explicit == nil || !explicit.Equal(*effective) {
		return s + Dim(InheritedMark)
	}
	return s
}

// FormatMoney renders an amount with thousands separators and two decimals,
// followed by the currency code when one is given.
func FormatMoney(amount float64, currency string) string {
	s := humanize.FormatFloat("#,###.##", amount)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// FormatDays renders a day count such as "12d", or "--" for nil.
func FormatDays(days *int) string {
	if days == nil {
		return "--"
	}
	return fmt.Sprintf("%dd", *days)
}

// FormatTRL renders an optional technology readiness level.
func FormatTRL(trl *int) string {
	if trl == nil {
		return "--"
	}
	return fmt.Sprintf("TRL %d", *trl)
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}
