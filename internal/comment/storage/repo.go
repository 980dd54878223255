package storage

import (
	"context"
	"errors"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

var ErrNotFound = errors.New("comment not found")

// Repository persists comment trees. Comments are never removed: delete is a
// soft delete that clears the body and the author.
type Repository interface {
	Create(ctx context.Context, c model.Comment) (model.Comment, error)
	Get(ctx context.Context, id string) (model.Comment, error)
	UpdateText(ctx context.Context, id, text string) error
	SoftDelete(ctx context.Context, id string) error
	Vote(ctx context.Context, id string, value int) error
	// GetTreePage returns one page of a book's top-level comments, newest
	// first, with replies attached oldest first.
	GetTreePage(ctx context.Context, bookID string, page, limit int) (model.Page, error)
	Ban(ctx context.Context, username string) error
	IsBanned(ctx context.Context, username string) (bool, error)
	Ping(ctx context.Context) error
}

// Versions keeps a per-book change counter. Current is 0 for a book that
// never changed.
type Versions interface {
	Bump(ctx context.Context, bookID string) (int64, error)
	Current(ctx context.Context, bookID string) (int64, error)
}

// TotalPages is ceil(n / limit).
func TotalPages(n, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (n + limit - 1) / limit
}

// PageOffset returns the index of the first top-level comment on page, or
// ok=false when the page starts past the last of total comments. It never
// multiplies out of range, whatever page is.
func PageOffset(page, limit, total int) (offset int, ok bool) {
	if page < 1 || limit <= 0 || page-1 > total/limit {
		return 0, false
	}
	offset = (page - 1) * limit
	if offset >= total {
		return 0, false
	}
	return offset, true
}
