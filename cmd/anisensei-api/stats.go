package main

import (
	"fmt"
	"io"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/MarcoPoloResearchLab/anisensei/internal/watchlist"
	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the watchlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.animeService.ListRecent(cmd.Context())
			if err != nil {
				return fmt.Errorf("load watchlist: %w", err)
			}
			summary, err := app.animeService.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("load stats: %w", err)
			}
			return renderStats(cmd.OutOrStdout(), watchlist.ComputeStats(records), summary.TopFavorites)
		},
	}
}

func renderStats(w io.Writer, stats watchlist.Stats, favorites []anime.FavoriteSummary) error {
	lines := []string{
		fmt.Sprintf("Total:          %d", stats.Total),
		fmt.Sprintf("Watching:       %d", stats.Watching),
		fmt.Sprintf("Completed:      %d", stats.Completed),
		fmt.Sprintf("Plan to watch:  %d", stats.PlanToWatch),
		fmt.Sprintf("On hold:        %d", stats.OnHold),
		fmt.Sprintf("Dropped:        %d", stats.Dropped),
		fmt.Sprintf("Episodes:       %d", stats.TotalEpisodes),
		fmt.Sprintf("Hours watched:  %.1f", stats.HoursWatched),
		fmt.Sprintf("Average rating: %.1f", stats.AverageRating),
		fmt.Sprintf("Tier:           %s", stats.Tier.Name),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(favorites) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Top favorites:"); err != nil {
		return err
	}
	for index, favorite := range favorites {
		if _, err := fmt.Fprintf(w, "  %d. %s (%d/10)\n", index+1, favorite.Title, favorite.Rating); err != nil {
			return err
		}
	}
	return nil
}
