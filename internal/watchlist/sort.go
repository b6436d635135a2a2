package watchlist

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
)

// SortField names a sortable record attribute.
type SortField string

const (
	SortTitle     SortField = "title"
	SortRating    SortField = "rating"
	SortUpdatedAt SortField = "updatedAt"
	SortEpisodes  SortField = "episodes"
	SortCreatedAt SortField = "createdAt"
)

// Direction is the sort order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortOption pairs a field with a direction.
type SortOption struct {
	Field     SortField
	Direction Direction
}

// DefaultSort shows the most recently updated records first.
var DefaultSort = SortOption{Field: SortUpdatedAt, Direction: Descending}

var comparators = map[SortField]func(a, b anime.Anime) int{
	SortTitle: func(a, b anime.Anime) int {
		return strings.Compare(a.Title, b.Title)
	},
	SortRating: func(a, b anime.Anime) int {
		return cmp.Compare(a.Rating, b.Rating)
	},
	SortEpisodes: func(a, b anime.Anime) int {
		return cmp.Compare(a.Episodes, b.Episodes)
	},
	SortUpdatedAt: func(a, b anime.Anime) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	},
	SortCreatedAt: func(a, b anime.Anime) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	},
}

// SortFields lists the supported fields in menu order.
func SortFields() []SortField {
	return []SortField{SortTitle, SortRating, SortUpdatedAt, SortEpisodes, SortCreatedAt}
}

// ParseSortField accepts a field name case-insensitively.
func ParseSortField(raw string) (SortField, error) {
	for _, field := range SortFields() {
		if strings.EqualFold(strings.TrimSpace(raw), string(field)) {
			return field, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", raw)
}

// Sort returns a sorted copy. Records with equal keys keep their input order in
// both directions. An unknown field leaves the order unchanged.
func Sort(list []anime.Anime, option SortOption) []anime.Anime {
	out := slices.Clone(list)
	compare, ok := comparators[option.Field]
	if !ok {
		return out
	}
	if option.Direction == Descending {
		slices.SortStableFunc(out, func(a, b anime.Anime) int { return compare(b, a) })
		return out
	}
	slices.SortStableFunc(out, compare)
	return out
}

// Toggle picks the next sort option when field is chosen from the menu:
// re-selecting the active ascending field flips to descending, anything else sorts ascending.
func Toggle(current SortOption, field SortField) SortOption {
	if current.Field == field && current.Direction == Ascending {
		return SortOption{Field: field, Direction: Descending}
	}
	return SortOption{Field: field, Direction: Ascending}
}
