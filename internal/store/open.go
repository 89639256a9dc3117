package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Options selects and locates the database.
type Options struct {
	Driver string
	Path   string
	URL    string
}

// Open connects to the configured database and applies migrations.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	db, d, err := Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return finishOpen(db, d)
}

// Connect opens and pings the configured database without touching its schema.
func Connect(ctx context.Context, opts Options) (*sql.DB, Dialect, error) {
	var (
		db  *sql.DB
		d   Dialect
		err error
	)
	switch Dialect(opts.Driver) {
	case DialectSQLite, "":
		d = DialectSQLite
		db, err = openSQLite(opts.Path)
	case DialectPostgres:
		d = DialectPostgres
		db, err = openPostgres(opts.URL)
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, "", err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping database: %w", err)
	}
	return db, d, nil
}

// NewSQLite creates a new SQLite-backed store.
func NewSQLite(ctx context.Context, dbPath string) (*SQLStore, error) {
	return Open(ctx, Options{Driver: string(DialectSQLite), Path: dbPath})
}

// NewPostgres creates a new PostgreSQL-backed store.
func NewPostgres(ctx context.Context, url string) (*SQLStore, error) {
	return Open(ctx, Options{Driver: string(DialectPostgres), URL: url})
}

func openSQLite(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open database: empty sqlite path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for concurrent readers alongside the metrics writer.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func openPostgres(url string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("open database: empty postgres url")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func finishOpen(db *sql.DB, d Dialect) (*SQLStore, error) {
	if err := Migrate(db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return NewSQLStore(db, d), nil
}
