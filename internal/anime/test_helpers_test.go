package anime

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("anime-%03d", p.next), nil
}

// steppingClock advances one minute on every call.
type steppingClock struct {
	current time.Time
}

func (c *steppingClock) Now() time.Time {
	c.current = c.current.Add(time.Minute)
	return c.current
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "anime.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Anime{}))

	clock := &steppingClock{current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequenceIDProvider{},
	})
	require.NoError(t, err)
	return service, db
}

func mustCreate(t *testing.T, service *Service, fields Fields) Anime {
	t.Helper()
	record, err := service.Create(context.Background(), fields)
	require.NoError(t, err)
	return record
}

func titled(title string) Fields {
	return Fields{Title: &title}
}

func ptr[T any](value T) *T {
	return &value
}
