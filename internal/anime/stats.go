package anime

import (
	"context"
	"math"
)

const topFavoritesLimit = 3

type ratingTotals struct {
	RatedCount int64
	RatingSum  int64
}

// GetStats computes totals, the average of rated records and the top rated favorites.
// Favorites with equal ratings come back in store order.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	if err := s.requireDatabase(opStats); err != nil {
		return Stats{}, err
	}
	db := s.db.WithContext(ctx)

	stats := Stats{TopFavorites: make([]FavoriteSummary, 0, topFavoritesLimit)}
	if err := db.Model(&Anime{}).Count(&stats.Total).Error; err != nil {
		s.logError(opStats, "total_failed", err)
		return Stats{}, newServiceError(opStats, reasonQueryFailed, err)
	}
	if err := db.Model(&Anime{}).Where(queryStatus, string(StatusCompleted)).Count(&stats.Completed).Error; err != nil {
		s.logError(opStats, "completed_failed", err)
		return Stats{}, newServiceError(opStats, reasonQueryFailed, err)
	}

	var totals ratingTotals
	if err := db.Model(&Anime{}).
		Select("COUNT(*) AS rated_count, COALESCE(SUM(" + columnRating + "), 0) AS rating_sum").
		Where(columnRating + " > 0").
		Scan(&totals).Error; err != nil {
		s.logError(opStats, "rating_failed", err)
		return Stats{}, newServiceError(opStats, reasonQueryFailed, err)
	}
	stats.AverageRating = averageRating(totals.RatingSum, totals.RatedCount)

	if err := db.Model(&Anime{}).
		Select([]string{columnID, columnTitle, columnRating}).
		Where(columnFavorite+" = ?", true).
		Order(columnRating + " DESC").
		Limit(topFavoritesLimit).
		Scan(&stats.TopFavorites).Error; err != nil {
		s.logError(opStats, "favorites_failed", err)
		return Stats{}, newServiceError(opStats, reasonQueryFailed, err)
	}

	return stats, nil
}

// averageRating rounds to one decimal place; no rated records yields 0.
func averageRating(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*10) / 10
}
