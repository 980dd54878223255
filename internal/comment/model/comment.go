package model

import "time"

// Comment is one node of a book's comment tree as the store returns it.
// Replies are already attached; ParentID is nil for top-level comments.
type Comment struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Author    *string   `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Edited    bool      `json:"edited"`
	Deleted   bool      `json:"deleted"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	ParentID  *string   `json:"parent_id"`
	Replies   []Comment `json:"replies"`

	// Owner is the original author. Stores keep it after a soft delete
	// clears Author, and it never goes over the wire.
	Owner string `json:"-"`
}

func (c Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// AuthorName returns the author username or "" when the account is gone.
func (c Comment) AuthorName() string {
	if c.Author == nil {
		return ""
	}
	return *c.Author
}

func StringPtr(s string) *string {
	return &s
}
