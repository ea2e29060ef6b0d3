package cli

import (
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/wbs/internal/config"
	"github.com/alexanderramin/wbs/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Projects service.ProjectService
	Trees    service.TreeService
	Budget   service.AllocationService
	Imports  service.ImportService
	Exports  service.ExportService

	Config config.Config
	Logger *slog.Logger
	// Metrics is served on /metrics by the serve command when set, and
	// Registerer receives the HTTP request counters.
	Metrics    prometheus.Gatherer
	Registerer prometheus.Registerer

	// Wire is called once the configuration is loaded and fills in the
	// services. It is nil when the services are wired up front.
	Wire func(cfg config.Config) error

	// IsInteractive reports whether prompts may be shown.
	IsInteractive func() bool
	// Prompt asks the user how to resolve a schedule conflict. Nil uses
	// the huh form.
	Prompt ConflictPrompt
	Now    func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewRootCmd creates the top-level "wbs" command and registers all
// subcommands against the provided App. Settings are read through v.
func NewRootCmd(app *App, v *viper.Viper) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "wbs",
		Short:         "Work breakdown structure planner",
		Long:          "wbs plans projects as a tree of phases and activities, rolling costs and dates up the tree.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(v, cfgFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			app.Config = cfg
			if app.Wire != nil {
				return app.Wire(cfg)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default .wbs.yaml)")
	flags.String("db", "", "database path (default ~/.wbs/wbs.db)")
	flags.String("currency", "", "currency for new projects (default USD)")
	flags.Bool("log-calls", false, "log every service call to stderr")
	_ = v.BindPFlag("db_path", flags.Lookup("db"))
	_ = v.BindPFlag("currency", flags.Lookup("currency"))
	_ = v.BindPFlag("log_calls", flags.Lookup("log-calls"))

	root.AddCommand(
		newProjectCmd(app),
		newNodeCmd(app),
		newDepCmd(app),
		newTreeCmd(app),
		newTableCmd(app),
		newGanttCmd(app),
		newBudgetCmd(app),
		newStatusCmd(app),
		newImportCmd(app),
		newExportCmd(app),
		newBrowseCmd(app),
		newServeCmd(app, v),
	)

	return root
}
