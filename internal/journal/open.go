package journal

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkoPoloResearchLab/payments/internal/journal/gormjournal"
	"github.com/MarkoPoloResearchLab/payments/internal/journal/pgjournal"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Journal drivers selectable from the command line. DriverAuto picks pgx
// for postgres URLs and gorm for everything else.
const (
	DriverAuto = "auto"
	DriverGorm = "gorm"
	DriverPgx  = "pgx"
)

// Open resolves a database URL into a ready Recorder, running schema setup.
// The returned cleanup closes the underlying connection. An empty URL
// disables journaling: all three return values are nil.
func Open(ctx context.Context, databaseURL string, driver string) (Recorder, func() error, error) {
	if databaseURL == "" {
		return nil, nil, nil
	}
	isPostgres := strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")

	switch driver {
	case DriverAuto:
		if isPostgres {
			return openPgx(ctx, databaseURL)
		}
		return openGormSQLite(ctx, databaseURL)
	case DriverPgx:
		if !isPostgres {
			return nil, nil, fmt.Errorf("the pgx journal driver requires a postgres url, got %q", databaseURL)
		}
		return openPgx(ctx, databaseURL)
	case DriverGorm:
		if isPostgres {
			return openGorm(ctx, postgres.Open(databaseURL))
		}
		return openGormSQLite(ctx, databaseURL)
	}
	return nil, nil, fmt.Errorf("unsupported journal driver %q", driver)
}

func openPgx(ctx context.Context, databaseURL string) (Recorder, func() error, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("pgx pool: %w", err)
	}
	store := pgjournal.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() error {
		pool.Close()
		return nil
	}
	return store, cleanup, nil
}

func openGormSQLite(ctx context.Context, databaseURL string) (Recorder, func() error, error) {
	sqlitePath, err := resolveSQLitePath(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return openGorm(ctx, sqlite.Open(sqlitePath))
}

func openGorm(ctx context.Context, dialector gorm.Dialector) (Recorder, func() error, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("gorm open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("gorm db: %w", err)
	}
	store := gormjournal.New(db.WithContext(ctx))
	if err := store.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	return store, sqlDB.Close, nil
}

func resolveSQLitePath(databaseURL string) (string, error) {
	path := databaseURL
	if strings.HasPrefix(databaseURL, "sqlite://") {
		parsed, err := url.Parse(databaseURL)
		if err != nil {
			return "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path = parsed.Path
		if path == "" {
			path = parsed.Host
		}
		if path == "" || path == "/" {
			path = "payments.db"
		}
	}
	return normalizeSQLitePath(path)
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if !strings.HasPrefix(path, "/") {
		path = filepath.Join(".", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}
