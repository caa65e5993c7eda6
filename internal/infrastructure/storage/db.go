package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"ReviewScanner/internal/config"
)

// Dialect captures the per-driver differences of the history store.
type Dialect struct {
	Driver      string
	Placeholder sq.PlaceholderFormat
	TimeType    string
	FloatType   string
}

// DialectFor maps a configured driver name to a dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx", "postgres", "postgresql":
		return Dialect{Driver: "pgx", Placeholder: sq.Dollar, TimeType: "TIMESTAMPTZ", FloatType: "DOUBLE PRECISION"}, nil
	case "", "sqlite", "sqlite3":
		return Dialect{Driver: "sqlite", Placeholder: sq.Question, TimeType: "TIMESTAMP", FloatType: "REAL"}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(dialect.Driver, cfg.DSN)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}
	if dialect.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s: %w", dialect.Driver, err)
	}
	return db, dialect, nil
}
