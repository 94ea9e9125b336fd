// Package store persists one Session Record per bot number: the protocol
// credentials blob and the per-number config overrides.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
)

var ErrEmptyNumber = errors.New("store: number is empty")

// Record is a persisted Session Record.
type Record struct {
	Number      string
	Credentials []byte
	Config      *config.Overrides
	LastActive  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the Credential Store backed by database/sql.
type Store struct {
	db       *sql.DB
	driver   string
	defaults config.Overrides
	now      func() time.Time
}

// New wraps an open database. Defaults are returned by GetConfig for numbers
// without stored overrides.
func New(db *sql.DB, driver string, defaults config.Settings) *Store {
	return &Store{
		db:       db,
		driver:   driver,
		defaults: defaults.Overrides(),
		now:      time.Now,
	}
}

func (s *Store) q(query string) string {
	return rebind(s.driver, query)
}

// Get returns the stored credentials, or nil when the number has none.
func (s *Store) Get(ctx context.Context, number string) ([]byte, error) {
	if number == "" {
		return nil, ErrEmptyNumber
	}

	var creds sql.NullString
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT credentials FROM bot_sessions WHERE number = ?`), number).Scan(&creds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials for %s: %w", number, err)
	}
	if !creds.Valid || creds.String == "" {
		return nil, nil
	}
	return []byte(creds.String), nil
}

// Put upserts the credentials and refreshes the activity timestamps.
func (s *Store) Put(ctx context.Context, number string, creds []byte) error {
	if number == "" {
		return ErrEmptyNumber
	}

	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO bot_sessions (number, credentials, last_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (number) DO UPDATE SET
			credentials = excluded.credentials,
			last_active = excluded.last_active,
			updated_at  = excluded.updated_at`),
		number, string(creds), now, now, now,
	)
	if err != nil {
		return fmt.Errorf("put credentials for %s: %w", number, err)
	}
	return nil
}

// GetConfig returns the stored overrides, or the process defaults when the
// number has none.
func (s *Store) GetConfig(ctx context.Context, number string) (config.Overrides, error) {
	if number == "" {
		return s.defaults, ErrEmptyNumber
	}

	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT config FROM bot_sessions WHERE number = ?`), number).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("get config for %s: %w", number, err)
	}
	if !raw.Valid || raw.String == "" {
		return s.defaults, nil
	}

	var o config.Overrides
	if err := json.Unmarshal([]byte(raw.String), &o); err != nil {
		return s.defaults, fmt.Errorf("decode config for %s: %w", number, err)
	}
	return o, nil
}

// PutConfig upserts the overrides for a number.
func (s *Store) PutConfig(ctx context.Context, number string, cfg config.Overrides) error {
	if number == "" {
		return ErrEmptyNumber
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config for %s: %w", number, err)
	}

	now := s.now().UnixMilli()
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO bot_sessions (number, config, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (number) DO UPDATE SET
			config     = excluded.config,
			updated_at = excluded.updated_at`),
		number, string(raw), now, now,
	)
	if err != nil {
		return fmt.Errorf("put config for %s: %w", number, err)
	}
	return nil
}

// Delete removes the record. Deleting an absent number is not an error.
func (s *Store) Delete(ctx context.Context, number string) error {
	if number == "" {
		return ErrEmptyNumber
	}
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM bot_sessions WHERE number = ?`), number); err != nil {
		return fmt.Errorf("delete session %s: %w", number, err)
	}
	return nil
}

// List returns every record ordered by number.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, credentials, config, last_active, created_at, updated_at
		FROM bot_sessions
		ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r                               Record
			creds, cfg                      sql.NullString
			lastActive, createdAt, updatedAt int64
		)
		if err := rows.Scan(&r.Number, &creds, &cfg, &lastActive, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if creds.Valid && creds.String != "" {
			r.Credentials = []byte(creds.String)
		}
		if cfg.Valid && cfg.String != "" {
			var o config.Overrides
			if err := json.Unmarshal([]byte(cfg.String), &o); err == nil {
				r.Config = &o
			}
		}
		r.LastActive = fromMillis(lastActive)
		r.CreatedAt = fromMillis(createdAt)
		r.UpdatedAt = fromMillis(updatedAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return records, nil
}

// Ping reports whether the datastore is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
