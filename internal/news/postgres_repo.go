package news

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]News, int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, `SELECT COUNT(*) FROM news`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const dataSQL = `
		SELECT id, title, body, created_at, updated_at
		FROM news
		ORDER BY id ASC
		LIMIT $1 OFFSET $2`

	var limit any
	if q.Limit > 0 {
		limit = q.Limit
	}
	rows, err := r.db.Query(timeoutCtx, dataSQL, limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanRows(rows)
	return out, total, err
}

func (r *PostgresRepo) Latest(ctx context.Context, limit int) ([]News, error) {
	const query = `
		SELECT id, title, body, created_at, updated_at
		FROM news
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (News, error) {
	const query = `
		SELECT id, title, body, created_at, updated_at
		FROM news
		WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanOne(r.db.QueryRow(timeoutCtx, query, id))
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var n int
	err := r.db.QueryRow(timeoutCtx, `SELECT COUNT(*) FROM news`).Scan(&n)
	return n, err
}

func (r *PostgresRepo) Insert(ctx context.Context, in Input) (News, error) {
	const sql = `
		INSERT INTO news (title, body, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, title, body, created_at, updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	n, err := scanOne(r.db.QueryRow(timeoutCtx, sql, in.Title, in.Body))
	return n, mapPgError(err)
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, in Input) (News, error) {
	const sql = `
		UPDATE news SET title = $1, body = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, title, body, created_at, updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	n, err := scanOne(r.db.QueryRow(timeoutCtx, sql, in.Title, in.Body, id))
	return n, mapPgError(err)
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) (News, error) {
	const sql = `
		DELETE FROM news
		WHERE id = $1
		RETURNING id, title, body, created_at, updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanOne(r.db.QueryRow(timeoutCtx, sql, id))
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanOne(row pgx.Row) (News, error) {
	var n News
	err := row.Scan(&n.ID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return News{}, ErrNotFound
		}
		return News{}, err
	}
	return n, nil
}

func scanRows(rows pgx.Rows) ([]News, error) {
	defer rows.Close()
	out := []News{}
	for rows.Next() {
		var n News
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrTitleTaken
	}
	return err
}
