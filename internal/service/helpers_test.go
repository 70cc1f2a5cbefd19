package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chronicle/internal/config"
	"chronicle/internal/db"
	"chronicle/internal/models"
	gormrepository "chronicle/internal/repository/gorm"
)

var fixedNow = time.Date(2024, 12, 20, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *gormrepository.Store {
	t.Helper()
	d, err := db.Open(config.DBConfig{Driver: db.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(d))
	t.Cleanup(func() { _ = db.Close(d) })
	return gormrepository.New(d.Gorm)
}

type recordingListener struct {
	mu     sync.Mutex
	events []models.Event
}

func (l *recordingListener) EventCreated(_ context.Context, e models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func strPtr(v string) *string { return &v }

func seedEvent(t *testing.T, store *gormrepository.Store, e models.Event) models.Event {
	t.Helper()
	require.NoError(t, store.CreateEvent(context.Background(), &e))
	return e
}
