package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderProgress(t *testing.T) {
	tests := []struct {
		name  string
		pct   int
		width int
		want  string
	}{
		{"empty", 0, 4, "[░░░░]   0%"},
		{"half", 50, 4, "[██░░]  50%"},
		{"full", 100, 4, "[████] 100%"},
		{"rounds down", 63, 10, "[██████░░░░]  63%"},
		{"over 100 clamps", 150, 4, "[████] 100%"},
		{"negative clamps", -5, 4, "[░░░░]   0%"},
		{"tiny width clamps to 2", 50, 1, "[█░]  50%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripANSI(RenderProgress(tt.pct, tt.width)))
		})
	}
}

func TestProgressBadge(t *testing.T) {
	assert.Equal(t, "63%", stripANSI(ProgressBadge(63)))
	assert.Equal(t, "100%", stripANSI(ProgressBadge(120)))
}
