package main

import (
	"fmt"
	"os"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const stdoutPath = "-"

func newExportCommand() *cobra.Command {
	var (
		output string
		filter anime.Filter
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the watchlist as CSV",
		Long: `Export writes the same CSV document served by GET /export.csv.

Example:
  anisensei-api export --status COMPLETED --output completed.csv
  anisensei-api export --output -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			document, err := app.animeService.ExportCSV(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("export watchlist: %w", err)
			}

			if output == stdoutPath {
				_, err := cmd.OutOrStdout().Write(append(document, '\n'))
				return err
			}
			if err := os.WriteFile(output, document, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			app.logger.Info("watchlist exported", zap.String("path", output), zap.Int("bytes", len(document)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "anime_export.csv", `Output file, or "-" for stdout`)
	cmd.Flags().StringVar(&filter.Status, "status", "all", "Status filter")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Case-insensitive title filter")
	return cmd
}
