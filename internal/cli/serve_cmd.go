package cli

import (
	"github.com/alexanderramin/wbs/internal/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(app *App, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API for the browser editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := api.Options{
				Logger:     app.logger(),
				Registerer: app.Registerer,
				Now:        app.now,
			}
			if app.Config.Serve.Metrics {
				opts.Gatherer = app.Metrics
			}
			srv := api.NewServer(api.Services{
				Projects: app.Projects,
				Trees:    app.Trees,
				Budget:   app.Budget,
				Exports:  app.Exports,
			}, opts)
			return api.Run(cmd.Context(), app.Config.Serve.Addr, srv.Handler(), opts.Logger)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8420)")
	_ = v.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
