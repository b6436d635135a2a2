package main

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSeedCommand() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample watchlist",
		Long: `Seed inserts four sample titles into the store.

With --reset every existing record is deleted first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			created, err := app.animeService.Seed(cmd.Context(), anime.SampleFields(), reset)
			if err != nil {
				return fmt.Errorf("seed watchlist: %w", err)
			}
			app.logger.Info("watchlist seeded", zap.Int("created", len(created)), zap.Bool("reset", reset))
			for _, record := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", record.ID, record.Title)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all records before seeding")
	return cmd
}
