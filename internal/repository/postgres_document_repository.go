package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradebook/internal/model"
)

// PostgresDocumentRepository stores documents in the semesters table. The
// document column is JSON rather than JSONB so subject order survives.
type PostgresDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDocumentRepository(pool *pgxpool.Pool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{pool: pool}
}

func (r *PostgresDocumentRepository) List(ctx context.Context) ([]model.DocumentInfo, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, modified_at FROM semesters ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.DocumentInfo
	for rows.Next() {
		var d model.DocumentInfo
		if err := rows.Scan(&d.Name, &d.ModifiedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresDocumentRepository) Read(ctx context.Context, name string) ([]byte, error) {
	var doc string
	err := r.pool.QueryRow(ctx, `SELECT document::text FROM semesters WHERE name = $1`, name).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("semester %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func (r *PostgresDocumentRepository) Write(ctx context.Context, name string, data []byte) error {
	if _, err := model.CleanDocumentName(name); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO semesters (name, document, modified_at) VALUES ($1, $2::json, NOW())
		 ON CONFLICT (name) DO UPDATE
		 SET document = EXCLUDED.document, modified_at = NOW()`,
		name, string(data))
	return err
}

func (r *PostgresDocumentRepository) Rename(ctx context.Context, oldName, newName string) error {
	if _, err := model.CleanDocumentName(newName); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE semesters SET name = $2 WHERE name = $1`, oldName, newName)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("semester %q: %w", newName, model.ErrDuplicateKey)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("semester %q: %w", oldName, model.ErrNotFound)
	}
	return nil
}

func (r *PostgresDocumentRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM semesters WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("semester %q: %w", name, model.ErrNotFound)
	}
	return nil
}
