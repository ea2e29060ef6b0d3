package rollup

import (
	"math"

	"github.com/alexanderramin/wbs/internal/domain"
)

// PercentComplete returns the completion percentage of a node in [0, 100].
// A leaf maps its status directly (completed 100, in-progress 50, otherwise
// 0). A parent averages the status weights of its leaf descendants only;
// intermediate nodes do not count.
func PercentComplete(n *domain.TreeNode) int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return int(math.Round(n.Status.Weight() * 100))
	}
	leaves := domain.Leaves(n)
	if len(leaves) == 0 {
		return 0
	}
	var sum float64
	for _, l := range leaves {
		sum += l.Status.Weight()
	}
	return int(math.Round(100 * sum / float64(len(leaves))))
}
