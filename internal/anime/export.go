package anime

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// ExportColumns is the fixed CSV header.
var ExportColumns = []string{
	"id",
	"title",
	"episodes",
	"status",
	"rating",
	"favorite",
	"notes",
	"coverImageType",
	"createdAt",
	"updatedAt",
}

// ExportCSV renders every record matching the filter, newest first.
func (s *Service) ExportCSV(ctx context.Context, filter Filter) ([]byte, error) {
	if err := s.requireDatabase(opExport); err != nil {
		return nil, err
	}

	scoped, err := applyFilter(s.db.WithContext(ctx), filter)
	if err != nil {
		return nil, validationFailure(opExport, err)
	}

	records := make([]Anime, 0)
	if err := scoped.
		Select(recordColumns).
		Order(columnCreatedAt + " DESC").
		Find(&records).Error; err != nil {
		s.logError(opExport, reasonQueryFailed, err)
		return nil, newServiceError(opExport, reasonQueryFailed, err)
	}

	return EncodeCSV(records), nil
}

// EncodeCSV writes the header row followed by one row per record, joined by "\n".
func EncodeCSV(records []Anime) []byte {
	var builder strings.Builder
	builder.WriteString(strings.Join(ExportColumns, ","))
	for _, record := range records {
		builder.WriteByte('\n')
		coverType := ""
		if record.CoverImageType != nil {
			coverType = *record.CoverImageType
		}
		values := []string{
			record.ID,
			record.Title,
			strconv.Itoa(record.Episodes),
			string(record.Status),
			strconv.Itoa(record.Rating),
			strconv.FormatBool(record.Favorite),
			record.NotesText(),
			coverType,
			formatTimestamp(record.CreatedAt),
			formatTimestamp(record.UpdatedAt),
		}
		for index, value := range values {
			if index > 0 {
				builder.WriteByte(',')
			}
			builder.WriteString(escapeCSV(value))
		}
	}
	return []byte(builder.String())
}

// escapeCSV quotes values containing a comma, quote or line break and doubles embedded quotes.
func escapeCSV(value string) string {
	if !strings.ContainsAny(value, ",\"\n\r") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
