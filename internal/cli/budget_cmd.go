package cli

import (
	"encoding/json"
	"fmt"

	"github.com/alexanderramin/wbs/internal/budget"
	"github.com/alexanderramin/wbs/internal/cli/formatter"
	"github.com/alexanderramin/wbs/internal/domain"
	"github.com/spf13/cobra"
)

func newBudgetCmd(app *App) *cobra.Command {
	var projectRef, period, from, to string
	var levels []string
	var byPhase, cumulative, asJSON bool

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Spread node costs over calendar periods",
		Long: "Spread each node's own cost over its date span, prorated by days, and sum it per month, quarter or year.\n" +
			"Without --from/--to the project's date span is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, _, err := loadTree(ctx, app, projectRef)
			if err != nil {
				return err
			}
			req, err := budgetRequest(app, cmd, period, from, to, levels, byPhase)
			if err != nil {
				return err
			}
			alloc, err := app.Budget.Allocate(ctx, p.ID, req)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(alloc)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatAllocation(alloc, p.Currency, cumulative))
			return nil
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().StringVar(&period, "period", "", "Bucket size: month|quarter|year (default from config)")
	cmd.Flags().StringVar(&from, "from", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Range end (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&levels, "levels", nil, "Levels to include: project,phase,activity (default all)")
	cmd.Flags().BoolVar(&byPhase, "by-phase", false, "One column per phase instead of per level")
	cmd.Flags().BoolVar(&cumulative, "cumulative", false, "Add a running total column")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the allocation as JSON")

	return cmd
}

func budgetRequest(app *App, cmd *cobra.Command, period, from, to string, levels []string, byPhase bool) (budget.Request, error) {
	if period == "" {
		period = app.Config.Period
	}
	pt, err := budget.ParsePeriodType(period)
	if err != nil {
		return budget.Request{}, err
	}
	req := budget.Request{Period: pt, Mode: budget.ModeByLevel, Now: app.now()}
	if byPhase {
		req.Mode = budget.ModeByPhase
	}
	if req.Levels, err = domain.ParseLevels(levels); err != nil {
		return budget.Request{}, err
	}

	if cmd.Flags().Changed("from") != cmd.Flags().Changed("to") {
		return budget.Request{}, fmt.Errorf("--from and --to must be given together")
	}
	if from != "" {
		f, err := domain.ParseDate(from)
		if err != nil {
			return budget.Request{}, fmt.Errorf("invalid --from date %q: %w", from, err)
		}
		t, err := domain.ParseDate(to)
		if err != nil {
			return budget.Request{}, fmt.Errorf("invalid --to date %q: %w", to, err)
		}
		req.Range = &budget.DateRange{From: f, To: t}
	}
	return req, nil
}
