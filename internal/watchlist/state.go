package watchlist

import (
	"slices"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
)

// State is an immutable snapshot of the fetched list and the view settings.
// Every reducer returns a new State.
type State struct {
	items   []anime.Anime
	query   string
	filters Filters
	sort    SortOption
}

// View is the derived output of a State.
type View struct {
	Items []anime.Anime
	Stats Stats
}

// NewState starts from the given list with no filters and the default sort.
func NewState(items []anime.Anime) State {
	return State{items: slices.Clone(items), sort: DefaultSort}
}

func (s State) Items() []anime.Anime { return slices.Clone(s.items) }
func (s State) Query() string        { return s.query }
func (s State) Filters() Filters     { return s.filters.clone() }
func (s State) Sort() SortOption     { return s.sort }

func (s State) copyState() State {
	return State{
		items:   slices.Clone(s.items),
		query:   s.query,
		filters: s.filters.clone(),
		sort:    s.sort,
	}
}

// WithItems replaces the whole list.
func (s State) WithItems(items []anime.Anime) State {
	next := s.copyState()
	next.items = slices.Clone(items)
	return next
}

// Upsert replaces the record with the same id, or prepends it when new.
func (s State) Upsert(record anime.Anime) State {
	next := s.copyState()
	index := slices.IndexFunc(next.items, func(existing anime.Anime) bool { return existing.ID == record.ID })
	if index >= 0 {
		next.items[index] = record
		return next
	}
	next.items = append([]anime.Anime{record}, next.items...)
	return next
}

// Remove drops the record with the given id.
func (s State) Remove(id string) State {
	next := s.copyState()
	next.items = slices.DeleteFunc(next.items, func(existing anime.Anime) bool { return existing.ID == id })
	return next
}

func (s State) WithQuery(query string) State {
	next := s.copyState()
	next.query = query
	return next
}

func (s State) WithFilters(filters Filters) State {
	next := s.copyState()
	next.filters = filters.clone()
	return next
}

func (s State) WithSort(option SortOption) State {
	next := s.copyState()
	next.sort = option
	return next
}

// ToggleSort applies Toggle to the current sort option.
func (s State) ToggleSort(field SortField) State {
	return s.WithSort(Toggle(s.sort, field))
}

// View filters and sorts the list. Stats always cover the full list.
func (s State) View() View {
	return View{
		Items: Sort(ApplyFilters(s.items, s.query, s.filters), s.sort),
		Stats: ComputeStats(s.items),
	}
}
