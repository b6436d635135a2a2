package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeLegacyStatusLabels = "2026-03-01_normalize_legacy_status_labels"
	migrationBackfillRecordVersion       = "2026-03-01_backfill_record_version"
	migrationBackfillTitleSearch         = "2026-03-02_backfill_title_search"
)

// legacyStatusLabels maps the display labels stored by the older four-status schema.
var legacyStatusLabels = map[string]anime.Status{
	"Watching":      anime.StatusWatching,
	"Completed":     anime.StatusCompleted,
	"Plan to Watch": anime.StatusPlan,
	"Dropped":       anime.StatusDropped,
	"On Hold":       anime.StatusOnHold,
}

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeLegacyStatusLabels, apply: normalizeLegacyStatusLabels},
		{name: migrationBackfillRecordVersion, apply: backfillRecordVersion},
		{name: migrationBackfillTitleSearch, apply: backfillTitleSearch},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

func normalizeLegacyStatusLabels(db *gorm.DB) error {
	for label, status := range legacyStatusLabels {
		if err := db.Model(&anime.Anime{}).
			Where("status = ?", label).
			Update("status", string(status)).Error; err != nil {
			return err
		}
	}
	return nil
}

func backfillRecordVersion(db *gorm.DB) error {
	return db.Model(&anime.Anime{}).
		Where("version IS NULL OR version < 1").
		Update("version", 1).Error
}

// backfillTitleSearch folds titles of rows written before the search column existed.
func backfillTitleSearch(db *gorm.DB) error {
	var rows []anime.Anime
	if err := db.Model(&anime.Anime{}).
		Select("id", "title").
		Where("title_search IS NULL OR title_search = ?", "").
		Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if err := db.Model(&anime.Anime{}).
			Where("id = ?", row.ID).
			Update("title_search", anime.FoldTitle(row.Title)).Error; err != nil {
			return err
		}
	}
	return nil
}
