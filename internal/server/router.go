package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultAppVersion     = "1.0.0"
	defaultMaxUploadBytes = 5 << 20
)

var (
	errMissingAnimeService = errors.New("anime service dependency required")
	errMissingAssistant    = errors.New("assistant dependency required")
)

// Assistant answers free-form questions about the watchlist.
type Assistant interface {
	Ask(ctx context.Context, query string) (string, error)
}

type Dependencies struct {
	AnimeService   *anime.Service
	Assistant      Assistant
	Logger         *zap.Logger
	Version        string
	AllowedOrigins []string
	MaxUploadBytes int64
	Clock          func() time.Time
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.AnimeService == nil {
		return nil, errMissingAnimeService
	}
	if deps.Assistant == nil {
		return nil, errMissingAssistant
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	version := strings.TrimSpace(deps.Version)
	if version == "" {
		version = defaultAppVersion
	}
	maxUploadBytes := deps.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLoggerMiddleware(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		animeService:   deps.AnimeService,
		assistant:      deps.Assistant,
		logger:         logger,
		version:        version,
		maxUploadBytes: maxUploadBytes,
		clock:          clock,
	}

	router.GET("/anime", handler.handleListAnime)
	router.POST("/anime", handler.handleCreateAnime)
	router.GET("/anime/:id", handler.handleCoverImage)
	router.PUT("/anime/:id", handler.handleUpdateAnime)
	router.DELETE("/anime/:id", handler.handleDeleteAnime)
	router.GET("/anime/:id/details", handler.handleAnimeDetails)
	router.GET("/stats", handler.handleStats)
	router.GET("/export.csv", handler.handleExportCSV)
	router.GET("/health", handler.handleHealth)
	router.POST("/ai/chat", handler.handleChat)
	router.GET("/ai/chat", handler.handleChatStatus)

	return router, nil
}

type httpHandler struct {
	animeService   *anime.Service
	assistant      Assistant
	logger         *zap.Logger
	version        string
	maxUploadBytes int64
	clock          func() time.Time
}
