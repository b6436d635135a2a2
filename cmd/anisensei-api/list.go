package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/MarcoPoloResearchLab/anisensei/internal/watchlist"
	"github.com/spf13/cobra"
)

type listOptions struct {
	query     string
	statuses  []string
	minRating int
	maxRating int
	rated     bool
	favorite  *bool
	sortField string
	direction string
	asJSON    bool
}

func newListCommand() *cobra.Command {
	options := listOptions{}
	var favorite bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the watchlist with client-side filters",
		Long: `List loads every record and filters, sorts and summarizes it in memory.

Example:
  anisensei-api list --status WATCHING --status ON_HOLD
  anisensei-api list --query kaisen --min-rating 8 --sort rating --order desc
  anisensei-api list --favorite --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("favorite") {
				options.favorite = &favorite
			}
			options.rated = cmd.Flags().Changed("min-rating") || cmd.Flags().Changed("max-rating")

			app, err := openRuntime()
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.animeService.ListRecent(cmd.Context())
			if err != nil {
				return fmt.Errorf("load watchlist: %w", err)
			}
			view, err := buildListView(records, options)
			if err != nil {
				return err
			}
			if options.asJSON {
				return writeJSON(cmd.OutOrStdout(), view.Items)
			}
			return renderList(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().StringVarP(&options.query, "query", "q", "", "Case-insensitive title filter")
	cmd.Flags().StringSliceVar(&options.statuses, "status", nil, "Status filter (repeatable)")
	cmd.Flags().IntVar(&options.minRating, "min-rating", 0, "Minimum rating, inclusive")
	cmd.Flags().IntVar(&options.maxRating, "max-rating", 10, "Maximum rating, inclusive")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "Only favorites (use --favorite=false for non-favorites)")
	cmd.Flags().StringVar(&options.sortField, "sort", string(watchlist.DefaultSort.Field), "Sort field (title, rating, updatedAt, episodes, createdAt)")
	cmd.Flags().StringVar(&options.direction, "order", string(watchlist.DefaultSort.Direction), "Sort direction (asc, desc)")
	cmd.Flags().BoolVar(&options.asJSON, "json", false, "Print the visible records as JSON")
	return cmd
}

func buildListView(records []anime.Anime, options listOptions) (watchlist.View, error) {
	filters := watchlist.Filters{Favorite: options.favorite}
	for _, raw := range options.statuses {
		status, err := anime.ParseStatus(raw)
		if err != nil {
			return watchlist.View{}, err
		}
		filters.Status = append(filters.Status, status)
	}
	if options.rated {
		if options.minRating > options.maxRating {
			return watchlist.View{}, fmt.Errorf("min-rating %d exceeds max-rating %d", options.minRating, options.maxRating)
		}
		filters.Rating = &watchlist.RatingRange{Min: options.minRating, Max: options.maxRating}
	}

	field, err := watchlist.ParseSortField(options.sortField)
	if err != nil {
		return watchlist.View{}, err
	}
	direction := watchlist.Direction(options.direction)
	if direction != watchlist.Ascending && direction != watchlist.Descending {
		return watchlist.View{}, fmt.Errorf("unknown sort direction %q", options.direction)
	}

	state := watchlist.NewState(records).
		WithQuery(options.query).
		WithFilters(filters).
		WithSort(watchlist.SortOption{Field: field, Direction: direction})
	return state.View(), nil
}

func renderList(w io.Writer, view watchlist.View) error {
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "ID\tTITLE\tSTATUS\tEPISODES\tRATING\tFAVORITE")
	for _, record := range view.Items {
		favorite := ""
		if record.Favorite {
			favorite = "*"
		}
		fmt.Fprintf(table, "%s\t%s\t%s\t%d\t%d\t%s\n", record.ID, record.Title, record.Status, record.Episodes, record.Rating, favorite)
	}
	if err := table.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d of %d shown\n", len(view.Items), view.Stats.Total)
	return err
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
