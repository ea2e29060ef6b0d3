package importer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
)

const maxDepth = int(domain.LevelActivity)

// Validate checks a decoded document before conversion and returns every
// problem found. An empty result means ToTree will succeed.
func Validate(doc *Document) []error {
	var errs []error

	if doc.Version > CurrentVersion {
		errs = append(errs, fmt.Errorf("version %d is newer than supported version %d", doc.Version, CurrentVersion))
	}
	if strings.TrimSpace(doc.Root.Name) == "" {
		errs = append(errs, fmt.Errorf("root.name is required"))
	}

	refs := make(map[string]string) // id or code -> outline code
	walkDocs(&doc.Root, func(n *NodeDoc, depth int, code string) {
		prefix := "node " + code
		errs = append(errs, validateNode(prefix, n, depth)...)

		if n.ID != "" {
			if _, dup := refs[n.ID]; dup {
				errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", prefix, n.ID))
			} else {
				refs[n.ID] = code
			}
		}
		ref := n.Code
		if ref == "" {
			ref = code
		}
		if other, dup := refs[ref]; dup && other != code {
			errs = append(errs, fmt.Errorf("%s.code: duplicate code %q", prefix, ref))
		} else {
			refs[ref] = code
		}
	})

	graph := make(map[string][]string)
	walkDocs(&doc.Root, func(n *NodeDoc, _ int, code string) {
		prefix := "node " + code
		seen := make(map[string]bool)
		for _, dep := range n.Dependencies {
			target, ok := refs[dep]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("%s.dependencies: ref %q not found", prefix, dep))
			case target == code:
				errs = append(errs, fmt.Errorf("%s.dependencies: self-dependency %q", prefix, dep))
			case seen[target]:
				errs = append(errs, fmt.Errorf("%s.dependencies: duplicate ref %q", prefix, dep))
			default:
				seen[target] = true
				graph[code] = append(graph[code], target)
			}
		}
	})
	errs = append(errs, detectCycles(graph)...)

	return errs
}

func validateNode(prefix string, n *NodeDoc, depth int) []error {
	var errs []error

	if depth > 1 && strings.TrimSpace(n.Name) == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
	}
	if depth > maxDepth {
		errs = append(errs, fmt.Errorf("%s: nesting deeper than %d levels", prefix, maxDepth))
	} else if n.Level != 0 && n.Level != depth {
		errs = append(errs, fmt.Errorf("%s.level: got %d, position implies %d", prefix, n.Level, depth))
	}
	if n.Cost < 0 || math.IsNaN(n.Cost) || math.IsInf(n.Cost, 0) {
		errs = append(errs, fmt.Errorf("%s.cost: must be a non-negative number, got %v", prefix, n.Cost))
	}
	if n.DurationDays != nil && *n.DurationDays < 0 {
		errs = append(errs, fmt.Errorf("%s.duration_days: must not be negative", prefix))
	}
	if _, err := domain.ParseStatus(n.Status); err != nil {
		errs = append(errs, fmt.Errorf("%s.status: %w", prefix, err))
	}
	if n.TRL != nil {
		if depth != int(domain.LevelPhase) {
			errs = append(errs, fmt.Errorf("%s.trl: only phases carry a TRL", prefix))
		} else if *n.TRL < 1 || *n.TRL > 9 {
			errs = append(errs, fmt.Errorf("%s.trl: %d out of range (1-9)", prefix, *n.TRL))
		}
	}

	start, startErr := validateOptionalDate(prefix+".start", n.Start)
	end, endErr := validateOptionalDate(prefix+".end", n.End)
	errs = append(errs, startErr...)
	errs = append(errs, endErr...)
	if start != nil && end != nil && end.Before(*start) {
		errs = append(errs, fmt.Errorf("%s.end %q is before start %q", prefix, n.End, n.Start))
	}

	return errs
}

// detectCycles walks the dependency graph depth first and reports one error
// per back edge found.
func detectCycles(graph map[string][]string) []error {
	const (
		white = 0 // unvisited
		gray  = 1 // in current path
		black = 2 // fully processed
	)

	color := make(map[string]int)
	var errs []error

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		for _, next := range graph[node] {
			switch color[next] {
			case gray:
				errs = append(errs, fmt.Errorf("circular dependency detected involving %q and %q", node, next))
			case white:
				visit(next)
			}
		}
		color[node] = black
	}

	for _, node := range sortedKeys(graph) {
		if color[node] == white {
			visit(node)
		}
	}
	return errs
}

func validateOptionalDate(field, s string) (*time.Time, []error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, []error{fmt.Errorf("%s: invalid date format %q (expected YYYY-MM-DD)", field, s)}
	}
	return &t, nil
}
