package anime

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew  = "anime.service.new"
	opList        = "anime.list"
	opCount       = "anime.count"
	opListRecent  = "anime.list_recent"
	opGet         = "anime.get"
	opGetCover    = "anime.get_cover"
	opCreate      = "anime.create"
	opUpdate      = "anime.update"
	opDelete      = "anime.delete"
	opDeleteAll   = "anime.delete_all"
	opStats       = "anime.stats"
	opExport      = "anime.export"
	opSeed        = "anime.seed"
	opIDGenerator = "anime.id"

	columnID             = "id"
	columnTitle          = "title"
	columnTitleSearch    = "title_search"
	columnEpisodes       = "episodes"
	columnStatus         = "status"
	columnRating         = "rating"
	columnNotes          = "notes"
	columnFavorite       = "favorite"
	columnCoverImage     = "cover_image"
	columnCoverImageType = "cover_image_type"
	columnVersion        = "version"
	columnCreatedAt      = "created_at"
	columnUpdatedAt      = "updated_at"

	queryID          = columnID + " = ?"
	queryIDVersion   = columnID + " = ? AND " + columnVersion + " = ?"
	queryStatus      = columnStatus + " = ?"
	queryTitleSearch = columnTitleSearch + " LIKE ? ESCAPE '\\'"

	reasonMissingDatabase   = "missing_database"
	reasonMissingIDProvider = "missing_id_provider"
	reasonQueryFailed       = "query_failed"
	reasonInsertFailed      = "insert_failed"
	reasonUpdateFailed      = "update_failed"
	reasonDeleteFailed      = "delete_failed"
	reasonNotFound          = "not_found"
	reasonVersionConflict   = "version_conflict"
	reasonIDFailed          = "id_generation_failed"

	defaultPage     = 1
	defaultPageSize = 100
	maxPageSize     = 500
)

// recordColumns is every column except the cover blob.
var recordColumns = []string{
	columnID,
	columnTitle,
	columnEpisodes,
	columnStatus,
	columnRating,
	columnNotes,
	columnFavorite,
	columnCoverImageType,
	columnVersion,
	columnCreatedAt,
	columnUpdatedAt,
}

var sortColumns = map[string]string{
	"title":      columnTitle,
	"episodes":   columnEpisodes,
	"status":     columnStatus,
	"rating":     columnRating,
	"favorite":   columnFavorite,
	"createdat":  columnCreatedAt,
	"created_at": columnCreatedAt,
	"updatedat":  columnUpdatedAt,
	"updated_at": columnUpdatedAt,
}

var noOpLogger = zap.NewNop()

// ServiceConfig describes the dependencies of the record service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service implements record CRUD, aggregation and export over the store.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, reasonMissingIDProvider, errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns one page of records without cover blobs, ordered descending by the sort key.
func (s *Service) List(ctx context.Context, query ListQuery) ([]Anime, error) {
	if err := s.requireDatabase(opList); err != nil {
		return nil, err
	}

	scoped, err := applyFilter(s.db.WithContext(ctx), query.Filter)
	if err != nil {
		return nil, validationFailure(opList, err)
	}

	offset, pageSize, ok := pageWindow(query.Page, query.PageSize)
	records := make([]Anime, 0)
	if !ok {
		return records, nil
	}
	if err := scoped.
		Select(recordColumns).
		Order(sortOrder(query.Sort)).
		Offset(offset).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		s.logError(opList, reasonQueryFailed, err)
		return nil, newServiceError(opList, reasonQueryFailed, err)
	}
	return records, nil
}

// Count returns the number of records matching the filter.
func (s *Service) Count(ctx context.Context, filter Filter) (int64, error) {
	if err := s.requireDatabase(opCount); err != nil {
		return 0, err
	}

	scoped, err := applyFilter(s.db.WithContext(ctx), filter)
	if err != nil {
		return 0, validationFailure(opCount, err)
	}

	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		s.logError(opCount, reasonQueryFailed, err)
		return 0, newServiceError(opCount, reasonQueryFailed, err)
	}
	return total, nil
}

// ListRecent returns every record, most recently updated first.
func (s *Service) ListRecent(ctx context.Context) ([]Anime, error) {
	if err := s.requireDatabase(opListRecent); err != nil {
		return nil, err
	}

	records := make([]Anime, 0)
	if err := s.db.WithContext(ctx).
		Model(&Anime{}).
		Select(recordColumns).
		Order(columnUpdatedAt + " DESC").
		Find(&records).Error; err != nil {
		s.logError(opListRecent, reasonQueryFailed, err)
		return nil, newServiceError(opListRecent, reasonQueryFailed, err)
	}
	return records, nil
}

// Get returns the record without its cover blob.
func (s *Service) Get(ctx context.Context, id string) (Anime, error) {
	if err := s.requireDatabase(opGet); err != nil {
		return Anime{}, err
	}

	record, err := s.loadRecord(s.db.WithContext(ctx), id)
	if err != nil {
		return Anime{}, s.lookupFailure(opGet, id, err)
	}
	return record, nil
}

// GetCoverImage returns the stored cover blob and its MIME type.
func (s *Service) GetCoverImage(ctx context.Context, id string) (CoverImage, error) {
	if err := s.requireDatabase(opGetCover); err != nil {
		return CoverImage{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return CoverImage{}, newServiceError(opGetCover, reasonNotFound, ErrNotFound)
	}

	var record Anime
	err := s.db.WithContext(ctx).
		Select([]string{columnID, columnCoverImage, columnCoverImageType}).
		Where(queryID, id).
		Take(&record).Error
	if err != nil {
		return CoverImage{}, s.lookupFailure(opGetCover, id, err)
	}
	if len(record.CoverImage) == 0 {
		return CoverImage{}, newServiceError(opGetCover, "cover_missing", ErrNotFound)
	}

	contentType := defaultCoverType
	if record.HasCover() {
		contentType = *record.CoverImageType
	}
	return CoverImage{Data: record.CoverImage, ContentType: contentType}, nil
}

// Create validates the fields, applies defaults and inserts a new record.
func (s *Service) Create(ctx context.Context, fields Fields) (Anime, error) {
	if err := s.requireDatabase(opCreate); err != nil {
		return Anime{}, err
	}
	if s.idProvider == nil {
		return Anime{}, newServiceError(opCreate, reasonMissingIDProvider, errMissingIDProvider)
	}

	if fields.Title == nil {
		return Anime{}, validationFailure(opCreate, newValidationError("title", "Title is required"))
	}

	record := Anime{Status: StatusPlan}
	if _, err := applyFields(&record, fields); err != nil {
		return Anime{}, validationFailure(opCreate, err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, reasonIDFailed, err)
		return Anime{}, newServiceError(opIDGenerator, reasonIDFailed, err)
	}

	now := s.clock().UTC()
	record.ID = id
	record.Version = 1
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreate, reasonInsertFailed, err, zap.String("anime_id", id))
		return Anime{}, newServiceError(opCreate, reasonInsertFailed, err)
	}

	record.CoverImage = nil
	return record, nil
}

// Update applies only the supplied fields, refreshes updatedAt and bumps the version.
// When expectedVersion is non-nil a stale version fails with ErrConflict; otherwise
// the last writer wins.
func (s *Service) Update(ctx context.Context, id string, fields Fields, expectedVersion *int64) (Anime, error) {
	if err := s.requireDatabase(opUpdate); err != nil {
		return Anime{}, err
	}

	var updated Anime
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.loadRecord(tx, id)
		if err != nil {
			return s.lookupFailure(opUpdate, id, err)
		}
		if expectedVersion != nil && *expectedVersion != existing.Version {
			return newServiceError(opUpdate, reasonVersionConflict, ErrConflict)
		}

		updates, err := applyFields(&existing, fields)
		if err != nil {
			return validationFailure(opUpdate, err)
		}

		now := s.clock().UTC()
		if now.Before(existing.CreatedAt) {
			now = existing.CreatedAt
		}
		previousVersion := existing.Version
		existing.Version = previousVersion + 1
		existing.UpdatedAt = now
		updates[columnVersion] = existing.Version
		updates[columnUpdatedAt] = now

		scoped := tx.Model(&Anime{}).Where(queryID, existing.ID)
		if expectedVersion != nil {
			scoped = tx.Model(&Anime{}).Where(queryIDVersion, existing.ID, previousVersion)
		}
		result := scoped.Updates(updates)
		if result.Error != nil {
			s.logError(opUpdate, reasonUpdateFailed, result.Error, zap.String("anime_id", existing.ID))
			return newServiceError(opUpdate, reasonUpdateFailed, result.Error)
		}
		if result.RowsAffected == 0 {
			if expectedVersion != nil {
				return newServiceError(opUpdate, reasonVersionConflict, ErrConflict)
			}
			return newServiceError(opUpdate, reasonNotFound, ErrNotFound)
		}

		existing.CoverImage = nil
		updated = existing
		return nil
	})
	if txErr != nil {
		return Anime{}, txErr
	}
	return updated, nil
}

// Delete removes the record. A missing id fails with ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.requireDatabase(opDelete); err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return newServiceError(opDelete, reasonNotFound, ErrNotFound)
	}

	result := s.db.WithContext(ctx).Where(queryID, id).Delete(&Anime{})
	if result.Error != nil {
		s.logError(opDelete, reasonDeleteFailed, result.Error, zap.String("anime_id", id))
		return newServiceError(opDelete, reasonDeleteFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDelete, reasonNotFound, ErrNotFound)
	}
	return nil
}

// DeleteAll removes every record and reports how many were deleted.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	if err := s.requireDatabase(opDeleteAll); err != nil {
		return 0, err
	}

	result := s.db.WithContext(ctx).Where("1 = 1").Delete(&Anime{})
	if result.Error != nil {
		s.logError(opDeleteAll, reasonDeleteFailed, result.Error)
		return 0, newServiceError(opDeleteAll, reasonDeleteFailed, result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Service) loadRecord(db *gorm.DB, id string) (Anime, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Anime{}, gorm.ErrRecordNotFound
	}
	var record Anime
	err := db.Select(recordColumns).Where(queryID, id).Take(&record).Error
	return record, err
}

func (s *Service) lookupFailure(operation, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(operation, reasonNotFound, ErrNotFound)
	}
	s.logError(operation, reasonQueryFailed, err, zap.String("anime_id", id))
	return newServiceError(operation, reasonQueryFailed, err)
}

func (s *Service) requireDatabase(operation string) error {
	if s == nil || s.db == nil {
		s.logError(operation, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(operation, reasonMissingDatabase, errMissingDatabase)
	}
	return nil
}

func validationFailure(operation string, err error) error {
	reason := "invalid_input"
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		reason = "invalid_" + validationErr.Field
	}
	return newServiceError(operation, reason, err)
}

// applyFields copies supplied fields onto the record and returns the matching column updates.
func applyFields(record *Anime, fields Fields) (map[string]any, error) {
	updates := make(map[string]any)

	if fields.Title != nil {
		title := strings.TrimSpace(*fields.Title)
		if title == "" {
			return nil, newValidationError("title", "Title is required")
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return nil, newValidationError("title", "Title is too long")
		}
		record.Title = title
		record.TitleSearch = FoldTitle(title)
		updates[columnTitle] = title
		updates[columnTitleSearch] = record.TitleSearch
	}

	if fields.Episodes != nil {
		if *fields.Episodes < 0 {
			return nil, newValidationError("episodes", "Episodes must be zero or greater")
		}
		record.Episodes = *fields.Episodes
		updates[columnEpisodes] = record.Episodes
	}

	if fields.Status != nil {
		status, err := ParseStatus(*fields.Status)
		if err != nil {
			return nil, err
		}
		record.Status = status
		updates[columnStatus] = string(status)
	}

	if fields.Rating != nil {
		if *fields.Rating < 0 || *fields.Rating > maxRating {
			return nil, newValidationError("rating", "Rating must be between 0 and 10")
		}
		record.Rating = *fields.Rating
		updates[columnRating] = record.Rating
	}

	if fields.Notes != nil {
		if strings.TrimSpace(*fields.Notes) == "" {
			record.Notes = nil
			updates[columnNotes] = nil
		} else {
			notes := *fields.Notes
			record.Notes = &notes
			updates[columnNotes] = notes
		}
	}

	if fields.Favorite != nil {
		record.Favorite = *fields.Favorite
		updates[columnFavorite] = record.Favorite
	}

	if fields.Cover != nil && len(fields.Cover.Data) > 0 {
		contentType := strings.TrimSpace(fields.Cover.ContentType)
		if contentType == "" {
			contentType = defaultCoverType
		}
		record.CoverImage = fields.Cover.Data
		record.CoverImageType = &contentType
		updates[columnCoverImage] = fields.Cover.Data
		updates[columnCoverImageType] = contentType
	}

	return updates, nil
}

func applyFilter(db *gorm.DB, filter Filter) (*gorm.DB, error) {
	scoped := db.Model(&Anime{})

	rawStatus := strings.TrimSpace(filter.Status)
	if rawStatus != "" && !strings.EqualFold(rawStatus, statusFilterAll) {
		status, err := ParseStatus(rawStatus)
		if err != nil {
			return nil, err
		}
		scoped = scoped.Where(queryStatus, string(status))
	}

	if strings.TrimSpace(filter.Search) != "" {
		scoped = scoped.Where(queryTitleSearch, "%"+escapeLike(FoldTitle(filter.Search))+"%")
	}

	return scoped, nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func sortOrder(raw string) string {
	column, ok := sortColumns[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		column = columnCreatedAt
	}
	return column + " DESC"
}

// pageWindow returns the row offset and limit for a page. ok is false when the page
// lies beyond any addressable offset, which always means an empty page.
func pageWindow(page, pageSize int) (offset int, limit int, ok bool) {
	page, pageSize = normalizePage(page, pageSize)
	if page-1 > math.MaxInt/pageSize {
		return 0, pageSize, false
	}
	return (page - 1) * pageSize, pageSize, true
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("anime service error", attrs...)
}
