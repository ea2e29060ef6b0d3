package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/wbs/internal/cli/formatter"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/alexanderramin/wbs/internal/scheduler"
	"github.com/alexanderramin/wbs/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const maxConflictRounds = 3

func newNodeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage breakdown nodes",
	}

	cmd.AddCommand(
		newNodeAddCmd(app),
		newNodeShowCmd(app),
		newNodeUpdateCmd(app),
		newNodeRemoveCmd(app),
		newNodeResetCmd(app),
	)

	return cmd
}

// nodeFlags holds the field flags shared by node add and node update.
type nodeFlags struct {
	name, start, end, status, responsible, description string
	cost                                                float64
	duration, trl                                       int
	deps                                                []string
	override                                            bool
}

func (f *nodeFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.cost, "cost", 0, "Own cost")
	fs.StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD, \"none\" to clear)")
	fs.StringVar(&f.end, "end", "", "End date (YYYY-MM-DD, \"none\" to clear)")
	fs.IntVar(&f.duration, "duration", 0, "Duration in days (negative to clear)")
	fs.StringVar(&f.status, "status", "", "Status: not-started|in-progress|completed")
	fs.StringVar(&f.responsible, "responsible", "", "Responsible party")
	fs.StringVar(&f.description, "description", "", "Description")
	fs.StringSliceVar(&f.deps, "deps", nil, "Dependencies as WBS codes or IDs (comma-separated)")
	fs.IntVar(&f.trl, "trl", 0, "Technology readiness level 1-9 (phases only, 0 to clear)")
	fs.BoolVar(&f.override, "override", false, "Save even when the schedule conflicts with dependencies")
}

func newNodeAddCmd(app *App) *cobra.Command {
	var projectRef, parentRef string
	var f nodeFlags

	cmd := &cobra.Command{
		Use:   "add [NAME]",
		Short: "Add a child node",
		Long:  "Add a phase under the project root, or an activity under a phase. Without NAME an interactive form is shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, root, err := loadTree(ctx, app, projectRef)
			if err != nil {
				return err
			}
			parent := root
			if parentRef != "" {
				if parent, err = resolveNode(root, parentRef); err != nil {
					return err
				}
			}

			in := service.NodeInput{
				Name:        strings.Join(args, " "),
				Cost:        f.cost,
				Responsible: f.responsible,
				Description: f.description,
				Override:    f.override,
			}
			if in.Name == "" {
				if !app.interactive() {
					return fmt.Errorf("node name is required")
				}
				if err := runNodeForm(formatter.NodeLabels(root)[parent.ID], &in); err != nil {
					return err
				}
			}
			if err := f.applyToInput(cmd.Flags(), root, &in); err != nil {
				return err
			}

			var added *domain.TreeNode
			err = retryOnConflict(cmd, app, func(fix *scheduler.ValidationResult, override bool) error {
				if fix != nil {
					if fix.SuggestedStartDate != nil {
						in.Start = fix.SuggestedStartDate
					}
					if fix.SuggestedEndDate != nil {
						in.End = fix.SuggestedEndDate
					}
				}
				in.Override = in.Override || override
				var err error
				added, err = app.Trees.AddChild(ctx, p.ID, parent.ID, in)
				return err
			})
			if err != nil || added == nil {
				return err
			}

			root, err = app.Trees.Tree(ctx, p.ID)
			if err != nil {
				return err
			}
			code := domain.WBSCodes(root)[added.ID]
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s %s\n", code, added.Name, formatter.Dim("("+added.Level.String()+")"))
			return nil
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().StringVar(&parentRef, "parent", "", "Parent node as WBS code or ID (default: project root)")
	f.register(cmd.Flags())

	return cmd
}

// runNodeForm fills in from the interactive node form.
func runNodeForm(parentLabel string, in *service.NodeInput) error {
	var v nodeFormValues
	if err := nodeForm(parentLabel, &v).Run(); err != nil {
		return err
	}
	in.Name = strings.TrimSpace(v.Name)
	if v.Cost != "" {
		cost, err := strconv.ParseFloat(v.Cost, 64)
		if err != nil {
			return fmt.Errorf("invalid cost %q: %w", v.Cost, err)
		}
		in.Cost = cost
	}
	var err error
	if in.Start, err = domain.ParseOptionalDate(v.Start); err != nil {
		return fmt.Errorf("invalid start date %q: %w", v.Start, err)
	}
	if in.End, err = domain.ParseOptionalDate(v.End); err != nil {
		return fmt.Errorf("invalid end date %q: %w", v.End, err)
	}
	if v.Responsible != "" {
		in.Responsible = v.Responsible
	}
	return nil
}

// applyToInput copies the changed schedule and metadata flags into in.
func (f *nodeFlags) applyToInput(flags *pflag.FlagSet, root *domain.TreeNode, in *service.NodeInput) error {
	if flags.Changed("start") {
		v, err := parseDateFlag("start", f.start)
		if err != nil {
			return err
		}
		in.Start = v.Date
	}
	if flags.Changed("end") {
		v, err := parseDateFlag("end", f.end)
		if err != nil {
			return err
		}
		in.End = v.Date
	}
	if flags.Changed("duration") && f.duration >= 0 {
		d := f.duration
		in.DurationDays = &d
	}
	if flags.Changed("status") {
		s, err := domain.ParseStatus(f.status)
		if err != nil {
			return err
		}
		in.Status = s
	}
	if flags.Changed("trl") && f.trl != 0 {
		trl := f.trl
		in.TRL = &trl
	}
	if flags.Changed("deps") {
		ids, err := resolveNodeIDs(root, f.deps)
		if err != nil {
			return err
		}
		in.Dependencies = ids
	}
	return nil
}

// toPatch builds a patch from the flags that were set on the command line.
func (f *nodeFlags) toPatch(flags *pflag.FlagSet, root *domain.TreeNode) (service.NodePatch, error) {
	patch := service.NodePatch{Override: f.override}
	if flags.Changed("name") {
		patch.Name = &f.name
	}
	if flags.Changed("cost") {
		patch.Cost = &f.cost
	}
	if flags.Changed("start") {
		v, err := parseDateFlag("start", f.start)
		if err != nil {
			return patch, err
		}
		patch.Start = v
	}
	if flags.Changed("end") {
		v, err := parseDateFlag("end", f.end)
		if err != nil {
			return patch, err
		}
		patch.End = v
	}
	if flags.Changed("duration") {
		patch.DurationDays = &f.duration
	}
	if flags.Changed("status") {
		s, err := domain.ParseStatus(f.status)
		if err != nil {
			return patch, err
		}
		patch.Status = &s
	}
	if flags.Changed("responsible") {
		patch.Responsible = &f.responsible
	}
	if flags.Changed("description") {
		patch.Description = &f.description
	}
	if flags.Changed("trl") {
		patch.TRL = &f.trl
	}
	if flags.Changed("deps") {
		ids, err := resolveNodeIDs(root, f.deps)
		if err != nil {
			return patch, err
		}
		patch.Dependencies = &ids
	}
	return patch, nil
}

// parseDateFlag parses a date flag value; "" and "none" clear the date.
func parseDateFlag(name, s string) (*service.DateValue, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return &service.DateValue{}, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q: use YYYY-MM-DD", name, s)
	}
	return &service.DateValue{Date: &t}, nil
}

func newNodeShowCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "show NODE",
		Short: "Show a node's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, root, err := loadTree(cmd.Context(), app, projectRef)
			if err != nil {
				return err
			}
			n, err := resolveNode(root, args[0])
			if err != nil {
				return err
			}
			code := domain.WBSCodes(root)[n.ID]
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatNode(n, code, p.Currency, formatter.NodeLabels(root)))
			return nil
		},
	}

	projectFlag(cmd, &projectRef)

	return cmd
}

func newNodeUpdateCmd(app *App) *cobra.Command {
	var projectRef string
	var f nodeFlags

	cmd := &cobra.Command{
		Use:   "update NODE",
		Short: "Update a node's fields",
		Long: "Update a node. Changing start, end or dependencies checks the schedule " +
			"against the node's dependencies; conflicts are rejected unless --override is given.",
		Args: cobra.ExactArgs(1),
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
			patch, err := f.toPatch(cmd.Flags(), root)
			if err != nil {
				return err
			}

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
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", domain.WBSCodes(root)[n.ID], updated.Name)
			return nil
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().StringVar(&f.name, "name", "", "New name")
	f.register(cmd.Flags())

	return cmd
}

// retryOnConflict runs save until it succeeds, fails for another reason,
// or the user gives up. Schedule conflicts are printed; an interactive user
// may then apply the suggested dates or override.
func retryOnConflict(cmd *cobra.Command, app *App, save func(fix *scheduler.ValidationResult, override bool) error) error {
	var fix *scheduler.ValidationResult
	override := false
	for round := 0; round < maxConflictRounds; round++ {
		err := save(fix, override)
		var conflict *service.ScheduleConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatValidation(conflict.Result))
		if !app.interactive() {
			return fmt.Errorf("%w (use --override to save anyway)", err)
		}

		prompt := app.Prompt
		if prompt == nil {
			prompt = huhConflictPrompt
		}
		choice, err := prompt(conflict.Result)
		if err != nil {
			return err
		}
		switch choice {
		case ConflictApplySuggested:
			res := conflict.Result
			fix = &res
		case ConflictOverride:
			override = true
		default:
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}
	return fmt.Errorf("schedule still conflicts after %d attempts", maxConflictRounds)
}

func newNodeRemoveCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:   "remove NODE",
		Short: "Remove a node and its subtree",
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
			if n.ID == root.ID {
				return fmt.Errorf("the project root cannot be removed; use \"wbs node reset\" to clear it")
			}
			label := formatter.NodeLabels(root)[n.ID]
			if err := app.Trees.DeleteNode(ctx, p.ID, n.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", label)
			return nil
		},
	}

	projectFlag(cmd, &projectRef)

	return cmd
}

func newNodeResetCmd(app *App) *cobra.Command {
	var projectRef string
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the project root back to an empty tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, root, err := loadTree(ctx, app, projectRef)
			if err != nil {
				return err
			}
			if !force {
				if !app.interactive() {
					return fmt.Errorf("refusing to reset %s without --force", p.DisplayID())
				}
				ok, err := confirm(fmt.Sprintf("Remove every phase and activity of %s?", p.Name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := app.Trees.DeleteNode(ctx, p.ID, root.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset project %s\n", p.DisplayID())
			return nil
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reset without confirmation")

	return cmd
}
