// Package storage opens the bun database used by the article and tag
// repositories.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/extra/bunotel"

	"github.com/goliatone/go-microsite/internal/articles"
	"github.com/goliatone/go-microsite/internal/tags"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrDriverUnsupported = errors.New("storage: unsupported driver")
	ErrDSNRequired       = errors.New("storage: dsn is required")
)

// Options tunes Open.
type Options struct {
	// Debug logs every query to stderr.
	Debug bool
	// Tracing adds OpenTelemetry spans for queries.
	Tracing bool
	// DBName labels query spans.
	DBName string
}

// NormalizeDriver maps driver aliases to a supported name.
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3", "":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pg":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("%w: %q", ErrDriverUnsupported, driver)
}

// Open connects to dsn with the bun dialect matching driver and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string, opts Options) (*bun.DB, error) {
	name, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrDSNRequired
	}

	var db *bun.DB
	switch name {
	case DriverPostgres:
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		db = bun.NewDB(sqlDB, pgdialect.New())
	default:
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open sqlite: %w", err)
		}
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	}

	if opts.Tracing {
		dbName := opts.DBName
		if dbName == "" {
			dbName = "microsite"
		}
		db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(dbName)))
	}
	if opts.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", name, err)
	}
	return db, nil
}

// EnsureSchema creates the tables and indexes when they do not exist.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	models := []any{(*articles.Article)(nil), (*tags.Tag)(nil)}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table for %T: %w", model, err)
		}
	}
	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*articles.Article)(nil), "articles_status_idx", "status"},
		{(*articles.Article)(nil), "articles_updated_at_idx", "updated_at"},
		{(*tags.Tag)(nil), "tags_is_system_idx", "is_system"},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create index %s: %w", idx.name, err)
		}
	}
	return nil
}
