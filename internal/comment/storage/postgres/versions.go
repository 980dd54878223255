package postgres

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
)

// Versions stores book change counters in the book_versions table.
type Versions struct {
	db *sql.DB
}

func NewVersions(db *sql.DB) *Versions {
	return &Versions{db: db}
}

func (v *Versions) Bump(ctx context.Context, bookID string) (int64, error) {
	query, args, err := psql.Insert("book_versions").
		Columns("book_id", "version").
		Values(bookID, 1).
		Suffix("ON CONFLICT (book_id) DO UPDATE SET version = book_versions.version + 1 RETURNING version").
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := v.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (v *Versions) Current(ctx context.Context, bookID string) (int64, error) {
	query, args, err := psql.Select("version").
		From("book_versions").
		Where(sq.Eq{"book_id": bookID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	err = v.db.QueryRowContext(ctx, query, args...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
