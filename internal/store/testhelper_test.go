package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
)

var testDefaults = config.Settings{
	Prefix:         ".",
	AutoViewStatus: true,
	AutoLikeStatus: true,
	AutoLikeEmoji:  []string{"🔥"},
}

// setupTestStore creates a named shared in-memory SQLite database with the
// migrations applied.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		url.PathEscape(t.Name()))

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		t.Fatalf("ping test db: %v", err)
	}
	if err := RunMigrations(db, DriverSQLite); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return New(db, DriverSQLite, testDefaults)
}

// fixedClock returns a controllable time source.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}
