package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"go.uber.org/zap"
)

var (
	// ErrEmptyQuery indicates the caller did not supply a question.
	ErrEmptyQuery = errors.New("assistant: query is required")
	// ErrUpstream indicates the completion call failed.
	ErrUpstream = errors.New("assistant: completion failed")

	errMissingRecords   = errors.New("assistant: record source is required")
	errMissingCompleter = errors.New("assistant: completer is required")
)

// RecordSource supplies the full watchlist, most recently updated first.
type RecordSource interface {
	ListRecent(ctx context.Context) ([]anime.Anime, error)
}

// Completer performs a single text completion call.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

type ServiceConfig struct {
	Records   RecordSource
	Completer Completer
	Model     string
	Logger    *zap.Logger
}

// Service answers questions about the watchlist. Every call is independent: the
// context is the current list, never a chat history.
type Service struct {
	records   RecordSource
	completer Completer
	model     string
	logger    *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Records == nil {
		return nil, errMissingRecords
	}
	if cfg.Completer == nil {
		return nil, errMissingCompleter
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records:   cfg.Records,
		completer: cfg.Completer,
		model:     model,
		logger:    logger,
	}, nil
}

// Ask builds the prompt from the current list and returns the completion text verbatim.
func (s *Service) Ask(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}

	records, err := s.records.ListRecent(ctx)
	if err != nil {
		return "", fmt.Errorf("assistant: load watchlist: %w", err)
	}

	prompt, err := BuildPrompt(records, query)
	if err != nil {
		return "", fmt.Errorf("assistant: build prompt: %w", err)
	}

	text, err := s.completer.Complete(ctx, s.model, prompt)
	if err != nil {
		s.logger.Error("completion call failed",
			zap.String("model", s.model),
			zap.Int("context_records", len(records)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	s.logger.Debug("completion call succeeded",
		zap.String("model", s.model),
		zap.Int("context_records", len(records)),
		zap.Int("response_length", len(text)))
	return text, nil
}
