package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a completion percentage as a bar like
// [████░░░░]  45%. The bar is green from 66%, yellow from 33%, red below.
func RenderProgress(pct int, width int) string {
	pct = clampPct(pct)
	if width < 2 {
		width = 2
	}

	filled := pct * width / 100
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)
	return fmt.Sprintf("[%s] %3d%%", progressStyle(pct).Render(bar), pct)
}

// ProgressBadge renders a percentage alone, colored like RenderProgress.
func ProgressBadge(pct int) string {
	pct = clampPct(pct)
	return progressStyle(pct).Render(fmt.Sprintf("%d%%", pct))
}

func progressStyle(pct int) lipgloss.Style {
	switch {
	case pct < 33:
		return StyleRed
	case pct < 66:
		return StyleYellow
	default:
		return StyleGreen
	}
}

func clampPct(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
