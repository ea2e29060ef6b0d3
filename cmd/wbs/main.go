package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/wbs/internal/cli"
	"github.com/alexanderramin/wbs/internal/config"
	"github.com/alexanderramin/wbs/internal/db"
	"github.com/alexanderramin/wbs/internal/repository"
	"github.com/alexanderramin/wbs/internal/service"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var database *sql.DB
	defer func() {
		if database != nil {
			database.Close()
		}
	}()

	app := &cli.App{
		Metrics:    reg,
		Registerer: reg,
	}

	// Detect an interactive terminal for prompts and the browser.
	app.IsInteractive = func() bool {
		in, out := os.Stdin.Fd(), os.Stdout.Fd()
		return (isatty.IsTerminal(in) || isatty.IsCygwinTerminal(in)) &&
			(isatty.IsTerminal(out) || isatty.IsCygwinTerminal(out))
	}

	app.Wire = func(cfg config.Config) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		app.Logger = logger

		var err error
		database, err = db.OpenDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}

		observers := []service.UseCaseObserver{service.NewPrometheusUseCaseObserver(reg)}
		if cfg.LogCalls {
			observers = append(observers, service.NewSlogUseCaseObserver(logger))
		}
		obs := service.MultiUseCaseObserver(observers...)

		// Wire repositories
		projectRepo := repository.NewSQLiteProjectRepo(database)
		store := repository.NewSQLiteTreeStore(database)

		// Wire unit of work for transactional operations
		uow := db.NewSQLiteUnitOfWork(database)

		app.Projects = service.NewProjectService(projectRepo, uow, cfg.Currency, obs)
		app.Trees = service.NewTreeService(store, uow, obs)
		app.Budget = service.NewAllocationService(store, obs)
		app.Imports = service.NewImportService(uow, cfg.Currency, obs)
		app.Exports = service.NewExportService(projectRepo, store)
		return nil
	}

	rootCmd := cli.NewRootCmd(app, viper.New())
	return rootCmd.ExecuteContext(ctx)
}
