package cli

import (
	"fmt"

	"github.com/alexanderramin/wbs/internal/cli/formatter"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/scheduler"
	"github.com/alexanderramin/wbs/internal/service"
	"github.com/spf13/cobra"
)

func newDepCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage node dependencies",
	}

	cmd.AddCommand(
		newDepSetCmd(app),
		newDepCheckCmd(app),
		newDepClearCmd(app),
	)

	return cmd
}

func newDepSetCmd(app *App) *cobra.Command {
	var projectRef string
	var override bool

	cmd := &cobra.Command{
		Use:   "set NODE DEP...",
		Short: "Replace a node's dependencies",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, root, err := loadTree(ctx, app, projectRef)
			if err != nil {
				return err
			}
			n, err := resolveNode(root, args[0])
			if err != nil {
				return err
			}
			ids, err := resolveNodeIDs(root, args[1:])
			if err != nil {
				return err
			}

			patch := service.NodePatch{Dependencies: &ids, Override: override}
			var updated *domain.TreeNode
			err = retryOnConflict(cmd, app, func(fix *scheduler.ValidationResult, override bool) error {
				if fix != nil {
					if fix.SuggestedStartDate != nil {
						patch.Start = &service.DateValue{Date: fix.SuggestedStartDate}
					}
					if fix.SuggestedEndDate != nil {
						patch.End = &service.DateValue{Date: fix.SuggestedEndDate}
					}
				}
				patch.Override = patch.Override || override
				var err error
				updated, err = app.Trees.UpdateNode(ctx, p.ID, n.ID, patch)
				return err
			})
			if err != nil || updated == nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now depends on %d node(s)\n",
				formatter.NodeLabels(root)[n.ID], len(updated.Dependencies))
			return nil
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().BoolVar(&override, "override", false, "Save even when the schedule conflicts with dependencies")

	return cmd
}

func newDepCheckCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "check NODE [DEP...]",
		Short: "Check dependencies and schedule without saving",
		Long: "Check a proposed dependency list for the node (or its current one when no DEP is given): " +
			"self references, unknown nodes, duplicates and cycles, then the node's dates against each dependency's end.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, root, err := loadTree(ctx, app, projectRef)
			if err != nil {
				return err
			}
			n, err := resolveNode(root, args[0])
			if err != nil {
				return err
			}
			ids := n.Dependencies
			if len(args) > 1 {
				// Unknown references are reported by the structural check below.
				ids = make([]string, 0, len(args)-1)
				for _, ref := range args[1:] {
					if dep, err := resolveNode(root, ref); err == nil {
						ids = append(ids, dep.ID)
					} else {
						ids = append(ids, ref)
					}
				}
			}

			out := cmd.OutOrStdout()
			errs, err := app.Trees.CheckDependencies(ctx, p.ID, n.ID, ids)
			if err != nil {
				return err
			}
			if len(errs) > 0 {
				fmt.Fprint(out, formatter.FormatErrors("invalid dependencies", errs))
				return fmt.Errorf("%d dependency problem(s)", len(errs))
			}

			res, err := app.Trees.ValidateSchedule(ctx, p.ID, scheduler.ValidateInput{
				NodeID:        n.ID,
				Start:         n.StartDate(),
				End:           n.EndDate(),
				DependencyIDs: ids,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatValidation(res))
			return nil
		},
	}

	projectFlag(cmd, &projectRef)

	return cmd
}

func newDepClearCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "clear NODE",
		Short: "Remove all dependencies of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, root, err := loadTree(ctx, app, projectRef)
			if err != nil {
				return err
			}
			n, err := resolveNode(root, args[0])
			if err != nil {
				return err
			}
			none := []string{}
			if _, err := app.Trees.UpdateNode(ctx, p.ID, n.ID, service.NodePatch{Dependencies: &none}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared dependencies of %s\n", formatter.NodeLabels(root)[n.ID])
			return nil
		},
	}

	projectFlag(cmd, &projectRef)

	return cmd
}
