package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Open connects to the datastore and verifies it is reachable. An error here
// is fatal at startup.
func Open(ctx context.Context, driver string, dsn string) (*sql.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported datastore driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("datastore DSN is empty")
	}

	db, err := sql.Open(driver, normalizeDSN(driver, dsn))
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}

	if driver == DriverPostgres {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping datastore: %w", err)
	}

	return db, nil
}

// normalizeDSN forces the simple query protocol on Postgres so the store
// works behind transaction-pooling proxies. SQLite gets foreign keys and a
// busy timeout, which the device store requires.
func normalizeDSN(driver string, dsn string) string {
	if driver == DriverSQLite {
		if strings.Contains(dsn, "foreign_keys") {
			return dsn
		}
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	appendParam := func(current string, key string, value string) string {
		if strings.Contains(current, key+"=") {
			return current
		}
		separator := "?"
		if strings.Contains(current, "?") {
			separator = "&"
			if strings.HasSuffix(current, "?") || strings.HasSuffix(current, "&") {
				separator = ""
			}
		}
		return current + separator + key + "=" + value
	}
	dsn = appendParam(dsn, "statement_cache_capacity", "0")
	return appendParam(dsn, "default_query_exec_mode", "simple_protocol")
}

// rebind rewrites ? placeholders to $n for Postgres.
func rebind(driver string, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
