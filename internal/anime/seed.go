package anime

import (
	"context"

	"go.uber.org/zap"
)

// SampleFields returns the starter watchlist used by the seed command.
func SampleFields() []Fields {
	return []Fields{
		sample("Frieren: Beyond Journey's End", 28, StatusCompleted, 10, "A masterpiece of fantasy storytelling. Emotional and beautiful.", true),
		sample("Jujutsu Kaisen", 47, StatusWatching, 9, "Incredible animation and hype moments.", true),
		sample("Vinland Saga", 48, StatusCompleted, 9, "Season 2 is a profound character study.", false),
		sample("Oshi no Ko", 11, StatusPlan, 0, "Heard great things about this one.", false),
	}
}

func sample(title string, episodes int, status Status, rating int, notes string, favorite bool) Fields {
	statusText := string(status)
	return Fields{
		Title:    &title,
		Episodes: &episodes,
		Status:   &statusText,
		Rating:   &rating,
		Notes:    &notes,
		Favorite: &favorite,
	}
}

// Seed inserts the given records, optionally clearing the store first.
func (s *Service) Seed(ctx context.Context, records []Fields, reset bool) ([]Anime, error) {
	if err := s.requireDatabase(opSeed); err != nil {
		return nil, err
	}

	if reset {
		removed, err := s.DeleteAll(ctx)
		if err != nil {
			return nil, err
		}
		s.loggerOrDefault().Info("watchlist cleared", zap.Int64("removed", removed))
	}

	created := make([]Anime, 0, len(records))
	for _, fields := range records {
		record, err := s.Create(ctx, fields)
		if err != nil {
			return nil, newServiceError(opSeed, "create_failed", err)
		}
		created = append(created, record)
	}
	return created, nil
}
