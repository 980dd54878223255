package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/storage"
)

var _ storage.Repository = (*Repo)(nil)

type Repo struct {
	mu sync.RWMutex

	byID map[string]model.Comment
	// top-level ids per book
	roots    map[string][]string
	children map[string][]string
	banned   map[string]struct{}

	now func() time.Time
}

func New() *Repo {
	return &Repo{
		byID:     make(map[string]model.Comment),
		roots:    make(map[string][]string),
		children: make(map[string][]string),
		banned:   make(map[string]struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repo) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repo) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = uuid.NewString()
	c.Owner = c.AuthorName()
	c.CreatedAt = r.now()
	c.Replies = nil

	// keep insertion order strictly increasing in time so sorting is stable
	for _, id := range r.siblingsLocked(c) {
		if last := r.byID[id].CreatedAt; !c.CreatedAt.After(last) {
			c.CreatedAt = last.Add(time.Microsecond)
		}
	}

	r.byID[c.ID] = c
	if c.ParentID == nil {
		r.roots[c.BookID] = append(r.roots[c.BookID], c.ID)
	} else {
		r.children[*c.ParentID] = append(r.children[*c.ParentID], c.ID)
	}

	return c, nil
}

func (r *Repo) siblingsLocked(c model.Comment) []string {
	if c.ParentID == nil {
		return r.roots[c.BookID]
	}
	return r.children[*c.ParentID]
}

func (r *Repo) Get(ctx context.Context, id string) (model.Comment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return model.Comment{}, storage.ErrNotFound
	}
	return c, nil
}

func (r *Repo) UpdateText(ctx context.Context, id, text string) error {
	return r.update(ctx, id, func(c *model.Comment) {
		c.Text = text
		c.Edited = true
	})
}

func (r *Repo) SoftDelete(ctx context.Context, id string) error {
	return r.update(ctx, id, func(c *model.Comment) {
		c.Deleted = true
		c.Text = ""
		c.Author = nil
	})
}

func (r *Repo) Vote(ctx context.Context, id string, value int) error {
	return r.update(ctx, id, func(c *model.Comment) {
		if value > 0 {
			c.Upvotes++
		} else {
			c.Downvotes++
		}
	})
}

func (r *Repo) update(ctx context.Context, id string, fn func(*model.Comment)) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	fn(&c)
	r.byID[id] = c
	return nil
}

func (r *Repo) Ban(ctx context.Context, username string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banned[username] = struct{}{}
	return nil
}

func (r *Repo) IsBanned(ctx context.Context, username string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.banned[username]
	return ok, nil
}

func (r *Repo) GetTreePage(ctx context.Context, bookID string, page, limit int) (model.Page, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	rootIDs := append([]string(nil), r.roots[bookID]...)
	total := len(rootIDs)

	sort.SliceStable(rootIDs, func(i, j int) bool {
		return r.byID[rootIDs[i]].CreatedAt.After(r.byID[rootIDs[j]].CreatedAt)
	})

	start, ok := storage.PageOffset(page, limit, total)
	if !ok {
		start = total
	}
	end := total
	if limit < total-start {
		end = start + limit
	}
	pageIDs := rootIDs[start:end]

	items := make([]model.Comment, 0, len(pageIDs))
	for _, id := range pageIDs {
		items = append(items, r.buildNodeLocked(id))
	}

	return model.Page{
		Key:        model.PageKey{BookID: bookID, Page: page, PageSize: limit},
		Comments:   items,
		TotalPages: storage.TotalPages(total, limit),
	}, nil
}

func (r *Repo) buildNodeLocked(id string) model.Comment {
	c := r.byID[id]
	childIDs := append([]string(nil), r.children[id]...)

	sort.SliceStable(childIDs, func(i, j int) bool {
		return r.byID[childIDs[i]].CreatedAt.Before(r.byID[childIDs[j]].CreatedAt)
	})

	c.Replies = make([]model.Comment, 0, len(childIDs))
	for _, cid := range childIDs {
		c.Replies = append(c.Replies, r.buildNodeLocked(cid))
	}
	return c
}
