package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/google/uuid"
)

// ToTree converts a validated document into a raw tree for projectID. Nodes
// keep a supplied id when it is a valid uuid and get a fresh one otherwise;
// dependency refs are resolved to the final ids. The tree is not processed:
// run rollup.ProcessCompleteNode before treating it as consistent.
func ToTree(doc *Document, projectID string, now time.Time) (*domain.TreeNode, error) {
	if errs := Validate(doc); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	ids := make(map[string]string) // id or code -> final id
	walkDocs(&doc.Root, func(n *NodeDoc, _ int, code string) {
		id := n.ID
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		if n.ID != "" {
			ids[n.ID] = id
		}
		if n.Code != "" {
			ids[n.Code] = id
		} else {
			ids[code] = id
		}
	})
	resolve := func(n *NodeDoc, code string) string {
		if n.ID != "" {
			return ids[n.ID]
		}
		if n.Code != "" {
			return ids[n.Code]
		}
		return ids[code]
	}

	var build func(n *NodeDoc, depth int, code string, parentID *string, order int) (*domain.TreeNode, error)
	build = func(n *NodeDoc, depth int, code string, parentID *string, order int) (*domain.TreeNode, error) {
		status, err := domain.ParseStatus(n.Status)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", code, err)
		}
		node := &domain.TreeNode{
			ID:          resolve(n, code),
			ProjectID:   projectID,
			ParentID:    parentID,
			Name:        strings.TrimSpace(n.Name),
			Level:       domain.Level(depth),
			OrderIndex:  order,
			Cost:        n.Cost,
			Status:      status,
			Responsible: n.Responsible,
			Description: n.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if node.Start, err = explicitDate(n.Start); err != nil {
			return nil, fmt.Errorf("node %s start: %w", code, err)
		}
		if node.End, err = explicitDate(n.End); err != nil {
			return nil, fmt.Errorf("node %s end: %w", code, err)
		}
		if n.DurationDays != nil {
			d := *n.DurationDays
			node.DurationDays = &d
		}
		if n.TRL != nil {
			t := *n.TRL
			node.TRL = &t
		}
		for _, dep := range n.Dependencies {
			node.Dependencies = append(node.Dependencies, ids[dep])
		}

		pid := node.ID
		for i := range n.Children {
			child, err := build(&n.Children[i], depth+1, fmt.Sprintf("%s.%d", code, i+1), &pid, i)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
		return node, nil
	}

	return build(&doc.Root, 1, "1", nil, 0)
}

// RenumberIDs gives every node in the tree a fresh id and rewrites parent
// and dependency references to match.
func RenumberIDs(root *domain.TreeNode) {
	ids := make(map[string]string)
	root.Walk(func(n *domain.TreeNode) bool {
		ids[n.ID] = uuid.New().String()
		return true
	})
	root.Walk(func(n *domain.TreeNode) bool {
		n.ID = ids[n.ID]
		if n.ParentID != nil {
			pid := ids[*n.ParentID]
			n.ParentID = &pid
		}
		for i, dep := range n.Dependencies {
			if id, ok := ids[dep]; ok {
				n.Dependencies[i] = id
			}
		}
		return true
	})
}

// FromTree converts a processed tree into a document. Codes are positional,
// and derived values (total cost, effective dates) are included for readers.
func FromTree(project *domain.Project, root *domain.TreeNode) *Document {
	doc := &Document{Version: CurrentVersion}
	if project != nil {
		doc.Project = ProjectDoc{
			ShortID:  project.ShortID,
			Name:     project.Name,
			Currency: project.Currency,
		}
	}
	if root == nil {
		return doc
	}

	codes := domain.WBSCodes(root)
	var convert func(n *domain.TreeNode) NodeDoc
	convert = func(n *domain.TreeNode) NodeDoc {
		d := NodeDoc{
			ID:             n.ID,
			Code:           codes[n.ID],
			Name:           n.Name,
			Level:          int(n.Level),
			Cost:           n.Cost,
			TotalCost:      n.TotalCost,
			Start:          domain.FormatOptionalDate(n.Start.Explicit),
			End:            domain.FormatOptionalDate(n.End.Explicit),
			EffectiveStart: domain.FormatOptionalDate(n.StartDate()),
			EffectiveEnd:   domain.FormatOptionalDate(n.EndDate()),
			Status:         string(n.Status),
			Responsible:    n.Responsible,
			Description:    n.Description,
		}
		if n.DurationDays != nil {
			v := *n.DurationDays
			d.DurationDays = &v
		}
		if n.TRL != nil {
			v := *n.TRL
			d.TRL = &v
		}
		if len(n.Dependencies) > 0 {
			d.Dependencies = append([]string(nil), n.Dependencies...)
		}
		for _, c := range n.Children {
			d.Children = append(d.Children, convert(c))
		}
		return d
	}
	doc.Root = convert(root)
	return doc
}

func explicitDate(s string) (domain.ScheduleDate, error) {
	t, err := domain.ParseOptionalDate(s)
	if err != nil || t == nil {
		return domain.ScheduleDate{}, err
	}
	return domain.Explicit(*t), nil
}

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = "  - " + err.Error()
	}
	return fmt.Sprintf("import validation failed (%d errors):\n%s", len(e.Errs), strings.Join(msgs, "\n"))
}

func formatValidationErrors(errs []error) error {
	return &ValidationError{Errs: errs}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
