package tree

import (
	"errors"
	"fmt"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

var ErrMalformed = errors.New("malformed comment tree")

const DeletedText = "[deleted]"

// Validate checks the shape of a fetched page: replies point at their
// enclosing comment, no id repeats (so nothing is its own ancestor), a
// parent outside the nesting either came earlier in the walk or is not on
// this page at all, vote counts are non-negative.
func Validate(p model.Page) error {
	seen := make(map[string]struct{}, len(p.Comments))
	pending := make(map[string]string)

	type frame struct {
		c      *model.Comment
		parent *model.Comment
	}
	stack := make([]frame, 0, len(p.Comments))
	for i := len(p.Comments) - 1; i >= 0; i-- {
		stack = append(stack, frame{c: &p.Comments[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := f.c

		if c.ID == "" {
			return fmt.Errorf("%w: comment without id", ErrMalformed)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: comment %s appears twice", ErrMalformed, c.ID)
		}
		if child, ok := pending[c.ID]; ok {
			return fmt.Errorf("%w: comment %s points at parent %s that comes later", ErrMalformed, child, c.ID)
		}
		seen[c.ID] = struct{}{}

		if c.Upvotes < 0 || c.Downvotes < 0 {
			return fmt.Errorf("%w: comment %s has negative votes", ErrMalformed, c.ID)
		}

		switch {
		case f.parent != nil:
			if c.ParentID == nil || *c.ParentID != f.parent.ID {
				return fmt.Errorf("%w: reply %s is not attached to its parent", ErrMalformed, c.ID)
			}
		case c.ParentID != nil:
			if *c.ParentID == c.ID {
				return fmt.Errorf("%w: comment %s is its own parent", ErrMalformed, c.ID)
			}
			if _, earlier := seen[*c.ParentID]; !earlier {
				pending[*c.ParentID] = c.ID
			}
		}

		for i := len(c.Replies) - 1; i >= 0; i-- {
			stack = append(stack, frame{c: &c.Replies[i], parent: c})
		}
	}

	return nil
}

// Walk visits comments depth first in store order.
func Walk(comments []model.Comment, fn func(depth int, c model.Comment) error) error {
	type item struct {
		c     *model.Comment
		depth int
	}
	stack := make([]item, 0, len(comments))
	for i := len(comments) - 1; i >= 0; i-- {
		stack = append(stack, item{c: &comments[i]})
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := fn(it.depth, *it.c); err != nil {
			return err
		}
		for i := len(it.c.Replies) - 1; i >= 0; i-- {
			stack = append(stack, item{c: &it.c.Replies[i], depth: it.depth + 1})
		}
	}
	return nil
}

func Count(comments []model.Comment) int {
	n := 0
	_ = Walk(comments, func(int, model.Comment) error {
		n++
		return nil
	})
	return n
}

// Find returns the comment with the given id anywhere in the tree.
func Find(comments []model.Comment, id string) (model.Comment, bool) {
	var found model.Comment
	errFound := errors.New("found")
	err := Walk(comments, func(_ int, c model.Comment) error {
		if c.ID == id {
			found = c
			return errFound
		}
		return nil
	})
	return found, err == errFound
}

// Redact returns the display copy of c. Deleted comments keep their id and
// replies but lose body and author.
func Redact(c model.Comment) model.Comment {
	if !c.Deleted {
		return c
	}
	c.Text = DeletedText
	c.Author = nil
	return c
}
