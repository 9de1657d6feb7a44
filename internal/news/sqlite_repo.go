package news

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"newsapi/internal/migrations"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteRepo persists news in an embedded SQLite database. Timestamps are
// stored as unix milliseconds.
type SQLiteRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, timeout time.Duration) (*SQLiteRepo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrations.Up(ctx, db, migrations.DialectSQLite); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db, timeout: timeout}, nil
}

func (r *SQLiteRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *SQLiteRepo) List(ctx context.Context, q Query) ([]News, int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(timeoutCtx, `SELECT COUNT(*) FROM news`).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(timeoutCtx, `
		SELECT id, title, body, created_at, updated_at
		FROM news
		ORDER BY id ASC
		LIMIT ? OFFSET ?`, limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanSQLRows(rows)
	return out, total, err
}

func (r *SQLiteRepo) Latest(ctx context.Context, limit int) ([]News, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.QueryContext(timeoutCtx, `
		SELECT id, title, body, created_at, updated_at
		FROM news
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanSQLRows(rows)
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (News, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanSQLRow(r.db.QueryRowContext(timeoutCtx, `
		SELECT id, title, body, created_at, updated_at
		FROM news
		WHERE id = ?`, id))
}

func (r *SQLiteRepo) Count(ctx context.Context) (int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(timeoutCtx, `SELECT COUNT(*) FROM news`).Scan(&n)
	return n, err
}

func (r *SQLiteRepo) Insert(ctx context.Context, in Input) (News, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	now := time.Now().UTC().UnixMilli()
	n, err := scanSQLRow(r.db.QueryRowContext(timeoutCtx, `
		INSERT INTO news (title, body, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, title, body, created_at, updated_at`, in.Title, in.Body, now, now))
	return n, mapSQLiteError(err)
}

func (r *SQLiteRepo) Update(ctx context.Context, id int64, in Input) (News, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	n, err := scanSQLRow(r.db.QueryRowContext(timeoutCtx, `
		UPDATE news SET title = ?, body = ?, updated_at = ?
		WHERE id = ?
		RETURNING id, title, body, created_at, updated_at`, in.Title, in.Body, time.Now().UTC().UnixMilli(), id))
	return n, mapSQLiteError(err)
}

func (r *SQLiteRepo) Delete(ctx context.Context, id int64) (News, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanSQLRow(r.db.QueryRowContext(timeoutCtx, `
		DELETE FROM news
		WHERE id = ?
		RETURNING id, title, body, created_at, updated_at`, id))
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanSQLRow(row *sql.Row) (News, error) {
	var (
		n                News
		created, updated int64
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Body, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return News{}, ErrNotFound
		}
		return News{}, err
	}
	n.CreatedAt = time.UnixMilli(created).UTC()
	n.UpdatedAt = time.UnixMilli(updated).UTC()
	return n, nil
}

func scanSQLRows(rows *sql.Rows) ([]News, error) {
	defer rows.Close()
	out := []News{}
	for rows.Next() {
		var (
			n                News
			created, updated int64
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &created, &updated); err != nil {
			return nil, err
		}
		n.CreatedAt = time.UnixMilli(created).UTC()
		n.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

func mapSQLiteError(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ErrTitleTaken
		}
	}
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: news.title") {
		return ErrTitleTaken
	}
	return err
}
