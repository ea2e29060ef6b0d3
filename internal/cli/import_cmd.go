package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alexanderramin/wbs/internal/cli/formatter"
	"github.com/alexanderramin/wbs/internal/importer"
	"github.com/alexanderramin/wbs/internal/service"
	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	var projectRef, shortID, name string
	var watch bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a breakdown from JSON, YAML, TOML or CSV",
		Long: "Import a breakdown document. The format follows the file extension.\n" +
			"With --project the project's tree is replaced; otherwise a new project is created.\n" +
			"With --watch the file is re-imported into the same project every time it is saved.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			opts := service.ImportOptions{ShortID: shortID, Name: name}
			if projectRef != "" {
				id, err := resolveProjectID(ctx, app, projectRef)
				if err != nil {
					return err
				}
				opts.ProjectID = id
			}

			out := cmd.OutOrStdout()
			res, err := app.Imports.ImportFile(ctx, path, opts)
			if err != nil {
				printImportError(cmd.ErrOrStderr(), err)
				return err
			}
			printImportResult(out, res)
			if !watch {
				return nil
			}

			opts.ProjectID = res.Project.ID
			fmt.Fprintln(out, formatter.Dim(fmt.Sprintf("Watching %s, press Ctrl+C to stop.", path)))
			return importer.WatchFile(ctx, path, importer.DefaultDebounce, func() {
				res, err := app.Imports.ImportFile(ctx, path, opts)
				if err != nil {
					app.logger().Warn("re-import failed", "path", path, "error", err)
					printImportError(cmd.ErrOrStderr(), err)
					return
				}
				printImportResult(out, res)
			})
		},
	}

	cmd.Flags().StringVarP(&projectRef, "project", "p", "", "Replace the tree of this project")
	cmd.Flags().StringVar(&shortID, "id", "", "Short ID for a new project (default from the document)")
	cmd.Flags().StringVar(&name, "name", "", "Name for a new project (default from the document)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-import whenever the file changes")

	return cmd
}

func printImportResult(w io.Writer, res *service.ImportResult) {
	verb := "Imported"
	if res.Replaced {
		verb = "Replaced"
	}
	fmt.Fprintf(w, "%s %s [%s]: %d nodes, %d dependencies, total %s\n",
		verb, res.Project.Name, res.Project.DisplayID(), res.NodeCount, res.DependencyCount,
		formatter.FormatMoney(res.Root.TotalCost, res.Project.Currency))
}

func printImportError(w io.Writer, err error) {
	var verr *importer.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprint(w, formatter.FormatErrors("import validation failed", verr.Errs))
	}
}

func newExportCmd(app *App) *cobra.Command {
	var projectRef, format, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project as JSON, YAML, TOML or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			projectID, err := resolveProjectID(ctx, app, projectRef)
			if err != nil {
				return err
			}

			var f importer.Format
			switch {
			case format != "":
				f, err = importer.ParseFormat(format)
			case outPath != "":
				f, err = importer.FormatFromPath(outPath)
			default:
				f = importer.FormatJSON
			}
			if err != nil {
				return err
			}

			if outPath == "" {
				return app.Exports.Export(ctx, projectID, f, cmd.OutOrStdout())
			}
			file, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			if err := app.Exports.Export(ctx, projectID, f, file); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", outPath)
			return nil
		},
	}

	projectFlag(cmd, &projectRef)
	cmd.Flags().StringVarP(&format, "format", "f", "", "json|yaml|toml|csv (default from --out extension, else json)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to a file instead of stdout")

	return cmd
}
