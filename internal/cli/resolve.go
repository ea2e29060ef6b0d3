package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/spf13/cobra"
)

// resolveProjectID resolves a project reference which can be a short ID
// (case-insensitive), a full UUID or a unique UUID prefix.
func resolveProjectID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("project is required (use --project)")
	}

	projects, err := app.Projects.List(ctx)
	if err != nil {
		return "", err
	}

	for _, p := range projects {
		if strings.EqualFold(p.ShortID, input) || p.ID == input {
			return p.ID, nil
		}
	}

	var matches []string
	for _, p := range projects {
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("project not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("project ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveNode finds a node in root by reference, which can be:
//   - A WBS code ("1", "1.2", "1.2.3")
//   - A full node UUID
//   - A unique UUID prefix
func resolveNode(root *domain.TreeNode, input string) (*domain.TreeNode, error) {
	if input == "" {
		return nil, fmt.Errorf("node reference is required")
	}

	codes := domain.WBSCodes(root)
	var byCode, byID *domain.TreeNode
	var prefix []*domain.TreeNode
	root.Walk(func(n *domain.TreeNode) bool {
		switch {
		case codes[n.ID] == input:
			byCode = n
		case n.ID == input:
			byID = n
		case strings.HasPrefix(n.ID, input):
			prefix = append(prefix, n)
		}
		return true
	})

	switch {
	case byCode != nil:
		return byCode, nil
	case byID != nil:
		return byID, nil
	case len(prefix) == 1:
		return prefix[0], nil
	case len(prefix) > 1:
		return nil, fmt.Errorf("node ID prefix %q is ambiguous (%d matches)", input, len(prefix))
	}
	return nil, fmt.Errorf("node not found: %q", input)
}

// resolveNodeIDs maps a list of node references to ids.
func resolveNodeIDs(root *domain.TreeNode, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		n, err := resolveNode(root, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, n.ID)
	}
	return ids, nil
}

// projectFlag registers the --project flag shared by tree-scoped commands.
func projectFlag(cmd *cobra.Command, value *string) {
	cmd.Flags().StringVarP(value, "project", "p", "", "Project short ID or UUID")
	_ = cmd.MarkFlagRequired("project")
}

// loadTree resolves the project flag and loads its processed tree.
func loadTree(ctx context.Context, app *App, projectRef string) (*domain.Project, *domain.TreeNode, error) {
	projectID, err := resolveProjectID(ctx, app, projectRef)
	if err != nil {
		return nil, nil, err
	}
	p, err := app.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	root, err := app.Trees.Tree(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return p, root, nil
}
