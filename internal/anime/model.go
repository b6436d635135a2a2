package anime

import (
	"fmt"
	"strings"
	"time"
)

// Status enumerates the watch states a record can be in.
type Status string

const (
	// StatusPlan marks a title the viewer intends to watch.
	StatusPlan Status = "PLAN"
	// StatusWatching marks a title currently being watched.
	StatusWatching Status = "WATCHING"
	// StatusCompleted marks a finished title.
	StatusCompleted Status = "COMPLETED"
	// StatusOnHold marks a paused title.
	StatusOnHold Status = "ON_HOLD"
	// StatusDropped marks an abandoned title.
	StatusDropped Status = "DROPPED"
)

const (
	maxRating          = 10
	maxTitleLength     = 512
	defaultCoverType   = "image/jpeg"
	statusFilterAll    = "all"
	legacyPlanToWatch  = "PLAN_TO_WATCH"
	legacyPlanToWatch2 = "PLANNED"
)

var allStatuses = []Status{StatusPlan, StatusWatching, StatusCompleted, StatusOnHold, StatusDropped}

// Statuses returns the canonical status set in display order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Valid reports whether the status belongs to the canonical enum.
func (s Status) Valid() bool {
	for _, candidate := range allStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// ParseStatus normalizes user input, including the legacy display labels
// ("Plan to Watch", "On Hold"), into a canonical Status.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	switch normalized {
	case legacyPlanToWatch, legacyPlanToWatch2:
		return StatusPlan, nil
	}
	status := Status(normalized)
	if !status.Valid() {
		return "", newValidationError("status", fmt.Sprintf("Unknown status %q", strings.TrimSpace(raw)))
	}
	return status, nil
}

// Anime is the persisted watchlist record.
type Anime struct {
	ID             string    `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	Title          string    `gorm:"column:title;size:512;not null;index:idx_anime_title" json:"title"`
	TitleSearch    string    `gorm:"column:title_search;size:512;not null;default:'';index:idx_anime_title_search" json:"-"`
	Episodes       int       `gorm:"column:episodes;not null" json:"episodes"`
	Status         Status    `gorm:"column:status;size:16;not null;index:idx_anime_status" json:"status"`
	Rating         int       `gorm:"column:rating;not null" json:"rating"`
	Notes          *string   `gorm:"column:notes;type:text" json:"notes"`
	Favorite       bool      `gorm:"column:favorite;not null;default:false;index:idx_anime_favorite" json:"favorite"`
	CoverImage     []byte    `gorm:"column:cover_image" json:"-"`
	CoverImageType *string   `gorm:"column:cover_image_type;size:128" json:"-"`
	Version        int64     `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_anime_created" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false;index:idx_anime_updated" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Anime) TableName() string {
	return "anime"
}

// HasCover reports whether a cover image is stored for the record.
func (a Anime) HasCover() bool {
	return a.CoverImageType != nil && *a.CoverImageType != ""
}

// FoldTitle lowers a title the way search needles are lowered, covering non-ASCII letters.
func FoldTitle(title string) string {
	return strings.ToLower(title)
}

// NotesText returns the notes or an empty string when none are stored.
func (a Anime) NotesText() string {
	if a.Notes == nil {
		return ""
	}
	return *a.Notes
}

// CoverImage is an uploaded image blob stored verbatim.
type CoverImage struct {
	Data        []byte
	ContentType string
}

// Fields is the canonical input field set shared by create and update.
// A nil pointer means the field was not supplied.
type Fields struct {
	Title    *string
	Episodes *int
	Status   *string
	Rating   *int
	Notes    *string
	Favorite *bool
	Cover    *CoverImage
}

// Filter narrows list and export queries.
type Filter struct {
	// Status is a status name or "all"; empty means no status filter.
	Status string
	// Search is a case-insensitive title substring.
	Search string
}

// ListQuery describes a paginated list request.
type ListQuery struct {
	Filter
	Sort     string
	Page     int
	PageSize int
}

// FavoriteSummary is the projection used for the top favorites list.
type FavoriteSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Rating int    `json:"rating"`
}

// Stats summarizes the whole store.
type Stats struct {
	Total         int64             `json:"total"`
	Completed     int64             `json:"completed"`
	AverageRating float64           `json:"averageRating"`
	TopFavorites  []FavoriteSummary `json:"topFavorites"`
}
