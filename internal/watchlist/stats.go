package watchlist

import "github.com/MarcoPoloResearchLab/anisensei/internal/anime"

// HoursPerEpisode assumes roughly 24 minutes per episode.
const HoursPerEpisode = 0.4

// Tier is a viewer rank derived from the number of completed titles.
type Tier struct {
	Name string
	Min  int
	// Max is inclusive; -1 means unbounded.
	Max int
}

var tiers = []Tier{
	{Name: "E", Min: 0, Max: 10},
	{Name: "D", Min: 11, Max: 20},
	{Name: "C", Min: 21, Max: 30},
	{Name: "B", Min: 31, Max: 40},
	{Name: "A", Min: 41, Max: 50},
	{Name: "S", Min: 51, Max: 75},
	{Name: "SS", Min: 76, Max: -1},
}

// TierFor returns the tier containing count.
func TierFor(count int) Tier {
	for _, tier := range tiers {
		if count >= tier.Min && (tier.Max < 0 || count <= tier.Max) {
			return tier
		}
	}
	return tiers[0]
}

// Stats are the figures derived from the full in-memory list.
type Stats struct {
	Total         int
	Completed     int
	Watching      int
	PlanToWatch   int
	OnHold        int
	Dropped       int
	TotalEpisodes int
	AverageRating float64
	HoursWatched  float64
	Tier          Tier
}

// ComputeStats derives counts, the average over rated records and hours watched.
func ComputeStats(list []anime.Anime) Stats {
	stats := Stats{Total: len(list)}
	ratedCount, ratingSum := 0, 0
	for _, record := range list {
		switch record.Status {
		case anime.StatusCompleted:
			stats.Completed++
		case anime.StatusWatching:
			stats.Watching++
		case anime.StatusPlan:
			stats.PlanToWatch++
		case anime.StatusOnHold:
			stats.OnHold++
		case anime.StatusDropped:
			stats.Dropped++
		}
		stats.TotalEpisodes += record.Episodes
		if record.Rating > 0 {
			ratedCount++
			ratingSum += record.Rating
		}
	}
	if ratedCount > 0 {
		stats.AverageRating = float64(ratingSum) / float64(ratedCount)
	}
	stats.HoursWatched = float64(stats.TotalEpisodes) * HoursPerEpisode
	stats.Tier = TierFor(stats.Completed)
	return stats
}
