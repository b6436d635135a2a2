package watchlist

import (
	"slices"
	"strings"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
)

// RatingRange is an inclusive rating bound.
type RatingRange struct {
	Min int
	Max int
}

// Filters narrows the visible list. Zero values disable each criterion.
type Filters struct {
	Status   []anime.Status
	Rating   *RatingRange
	Favorite *bool
}

func (f Filters) clone() Filters {
	out := Filters{Status: slices.Clone(f.Status)}
	if f.Rating != nil {
		rating := *f.Rating
		out.Rating = &rating
	}
	if f.Favorite != nil {
		favorite := *f.Favorite
		out.Favorite = &favorite
	}
	return out
}

// ApplyFilters returns the records whose title contains query (case-insensitively)
// and that satisfy every set filter. The input is not modified.
func ApplyFilters(list []anime.Anime, query string, filters Filters) []anime.Anime {
	needle := strings.ToLower(query)
	out := make([]anime.Anime, 0, len(list))
	for _, record := range list {
		if needle != "" && !strings.Contains(strings.ToLower(record.Title), needle) {
			continue
		}
		if len(filters.Status) > 0 && !slices.Contains(filters.Status, record.Status) {
			continue
		}
		if filters.Rating != nil && (record.Rating < filters.Rating.Min || record.Rating > filters.Rating.Max) {
			continue
		}
		if filters.Favorite != nil && record.Favorite != *filters.Favorite {
			continue
		}
		out = append(out, record)
	}
	return out
}
