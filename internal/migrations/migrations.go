// Package migrations embeds the SQL schema for every supported local store
// and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Dir returns the migrations directory for a dialect, relative to FS.
func Dir(dialect string) (string, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
		return dialect, nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// NewProvider builds a goose provider over the embedded migrations.
func NewProvider(db *sql.DB, dialect string) (*goose.Provider, error) {
	dir, err := Dir(dialect)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(FS, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	gooseDialect := goose.DialectPostgres
	if dialect == DialectSQLite {
		gooseDialect = goose.DialectSQLite3
	}
	return goose.NewProvider(gooseDialect, db, sub)
}

// Up applies all pending migrations.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	p, err := NewProvider(db, dialect)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, dialect string) error {
	p, err := NewProvider(db, dialect)
	if err != nil {
		return err
	}
	if _, err := p.Down(ctx); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status describes one migration.
type Status struct {
	Version int64
	Path    string
	Applied bool
}

func ListStatus(ctx context.Context, db *sql.DB, dialect string) ([]Status, error) {
	p, err := NewProvider(db, dialect)
	if err != nil {
		return nil, err
	}
	res, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]Status, 0, len(res))
	for _, s := range res {
		out = append(out, Status{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
