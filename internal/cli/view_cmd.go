package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/wbs/internal/cli/formatter"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/scheduler"
	"github.com/spf13/cobra"
)

func newTreeCmd(app *App) *cobra.Command {
	var projectRef string
	var groups []string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the breakdown tree with rolled-up cost, dates and progress",
		Long: "Show the breakdown tree. Dates marked * are inherited from children.\n" +
			"--group \"Label=1.1,1.2\" shows several phases under one combined heading; the stored tree is unchanged.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, root, err := loadTree(cmd.Context(), app, projectRef)
			if err != nil {
				return err
			}
			opts := formatter.TreeOptions{Currency: p.Currency}
			for _, spec := range groups {
				g, err := parseGroup(root, spec)
				if err != nil {
					return err
				}
				opts.Groups = append(opts.Groups, g)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTree(root, opts))
			return nil
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().StringArrayVar(&groups, "group", nil, "Group phases for display: LABEL=REF,REF (repeatable)")

	return cmd
}

// parseGroup turns "Label=1.1,1.2" into a phase group over root.
func parseGroup(root *domain.TreeNode, spec string) (formatter.PhaseGroup, error) {
	label, refs, ok := strings.Cut(spec, "=")
	if !ok {
		return formatter.PhaseGroup{}, fmt.Errorf("invalid group %q: want LABEL=REF,REF", spec)
	}
	ids, err := resolveNodeIDs(root, strings.Split(refs, ","))
	if err != nil {
		return formatter.PhaseGroup{}, fmt.Errorf("group %q: %w", label, err)
	}
	return formatter.GroupPhases(root, strings.TrimSpace(label), ids)
}

func newTableCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Show every node as a table row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, root, err := loadTree(cmd.Context(), app, projectRef)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatNodeTable(root))
			return nil
		},
	}

	projectFlag(cmd, &projectRef)

	return cmd
}

func newGanttCmd(app *App) *cobra.Command {
	var projectRef string
	var width int
	var noCritical bool

	cmd := &cobra.Command{
		Use:   "gantt",
		Short: "Show a text Gantt chart over the project span",
		Long:  "Show a text Gantt chart. Rows marked ! lie on the longest dependency chain.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, root, err := loadTree(cmd.Context(), app, projectRef)
			if err != nil {
				return err
			}
			opts := formatter.GanttOptions{Width: width}
			if !noCritical {
				opts.Critical = scheduler.CriticalPath(root)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatGantt(root, opts))
			return nil
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().IntVar(&width, "width", 0, "Chart width in columns (default 40)")
	cmd.Flags().BoolVar(&noCritical, "no-critical", false, "Do not mark the critical chain")

	return cmd
}

func newStatusCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a project's progress, cost and schedule summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd, app, projectRef)
		},
	}

	projectFlag(cmd, &projectRef)

	return cmd
}

func printStatus(cmd *cobra.Command, app *App, projectRef string) error {
	ctx := cmd.Context()
	projectID, err := resolveProjectID(ctx, app, projectRef)
	if err != nil {
		return err
	}
	p, err := app.Projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	summary, err := app.Trees.Summary(ctx, projectID)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatStatus(p, summary, app.now()))
	return nil
}
