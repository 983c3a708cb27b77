// Package db provides SQLite database access for Quill.
package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"modernc.org/sqlite"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/logging"
	"github.com/quillchat/quill/internal/topic"
)

func init() {
	// casefold backs every case-insensitive topic comparison in SQL.
	// SQLite's built-in lower() folds ASCII only; registering the same
	// fold the in-memory aggregation uses keeps the two paths agreeing
	// on which names are the same topic. Deterministic, so it is legal
	// in the expression index on messages.
	sqlite.MustRegisterDeterministicScalarFunction("casefold", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return topic.Fold(v), nil
			case []byte:
				return topic.Fold(string(v)), nil
			case nil:
				return nil, nil
			default:
				return nil, fmt.Errorf("casefold: expected text, got %T", v)
			}
		})
}

// DB wraps the SQLite connection pool.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// Open opens (creating if necessary) the database at cfg.Path and
// applies the schema.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConnections > 0 {
		conn.SetMaxOpenConns(cfg.MaxConnections)
	}

	busyTimeout := cfg.BusyTimeoutMs
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout),
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	db := &DB{
		DB:     conn,
		logger: logging.Component("db"),
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

// OpenFromConfigFile loads the full configuration (defaults, then the
// config file, then QUILL_ environment variables), applies the logging
// settings, and opens the store it describes. An empty path falls back
// to the default config search locations.
func OpenFromConfigFile(path string) (*DB, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.SetConfigFile(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	})

	return Open(cfg.Database)
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.DB.Close()
}
