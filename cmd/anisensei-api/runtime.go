package main

import (
	"time"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/MarcoPoloResearchLab/anisensei/internal/config"
	"github.com/MarcoPoloResearchLab/anisensei/internal/database"
	"github.com/MarcoPoloResearchLab/anisensei/internal/logging"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// appRuntime bundles the configuration, logger and store shared by every command.
type appRuntime struct {
	config       config.AppConfig
	logger       *zap.Logger
	db           *gorm.DB
	animeService *anime.Service
}

func openRuntime() (*appRuntime, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(appConfig.DatabaseDriver, appConfig.DatabaseDSN, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	animeService, err := anime.NewService(anime.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: anime.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &appRuntime{
		config:       appConfig,
		logger:       logger,
		db:           db,
		animeService: animeService,
	}, nil
}

func (r *appRuntime) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = r.logger.Sync()
}
