package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidKey = errors.New("invalid page key")

// PageKey identifies one live comment page.
type PageKey struct {
	BookID   string `json:"book_id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

func (k PageKey) Validate() error {
	if strings.TrimSpace(k.BookID) == "" {
		return fmt.Errorf("%w: empty book id", ErrInvalidKey)
	}
	if k.Page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidKey, k.Page)
	}
	if k.PageSize < 1 {
		return fmt.Errorf("%w: page size %d", ErrInvalidKey, k.PageSize)
	}
	return nil
}

func (k PageKey) String() string {
	return fmt.Sprintf("%s/%d/%d", k.BookID, k.Page, k.PageSize)
}

// Page is a window over a book's top-level comments. Version is the
// store's change cursor at the time the page was read.
type Page struct {
	Key        PageKey   `json:"key"`
	Comments   []Comment `json:"comments"`
	TotalPages int       `json:"total_pages"`
	Version    int64     `json:"version"`
}

// HasPagination reports whether page controls should be shown.
func (p Page) HasPagination() bool {
	return p.TotalPages > 1
}
