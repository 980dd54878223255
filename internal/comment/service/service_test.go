package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
	inm "github.com/MyNameIsWhaaat/bookcomments/internal/comment/storage/inmemory"
)

// fakeRepo wraps inmemory.Repo and lets tests fail the health ping.
type fakeRepo struct {
	*inm.Repo
	pingErr error
}

func (f *fakeRepo) Ping(ctx context.Context) error {
	return f.pingErr
}

type spyPublisher struct {
	mu    sync.Mutex
	books []string
}

func (p *spyPublisher) Publish(ctx context.Context, bookID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.books = append(p.books, bookID)
	return nil
}

type fixture struct {
	svc      CommentService
	repo     *fakeRepo
	versions *inm.Versions
	pub      *spyPublisher
}

func newFixture() fixture {
	repo := &fakeRepo{Repo: inm.New()}
	versions := inm.NewVersions()
	pub := &spyPublisher{}
	svc := New(repo, versions,
		WithAdmins("root", " "),
		WithPublisher(pub),
		WithLogger(zerolog.Nop()),
	)
	return fixture{svc: svc, repo: repo, versions: versions, pub: pub}
}

func (f fixture) add(t *testing.T, user, text string, parent *string) model.Comment {
	t.Helper()
	c, err := f.svc.Add(context.Background(), model.AddRequest{BookID: "b1", Username: user, Text: text, ParentID: parent})
	if err != nil {
		t.Fatalf("add %q: %v", text, err)
	}
	return c
}

func (f fixture) version(t *testing.T) int64 {
	t.Helper()
	v, err := f.versions.Current(context.Background(), "b1")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	return v
}

func TestAddValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []model.AddRequest{
		{BookID: "b1", Username: "alice", Text: "   "},
		{BookID: "b1", Username: "alice", Text: strings.Repeat("x", MaxTextLen+1)},
		{BookID: "", Username: "alice", Text: "hi"},
		{BookID: "b1", Username: "", Text: "hi"},
	}
	for _, r := range cases {
		if _, err := f.svc.Add(ctx, r); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", r, err)
		}
	}

	_, err := f.svc.Add(ctx, model.AddRequest{BookID: "b1", Username: "alice", Text: "hi", ParentID: model.StringPtr("nope")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing parent, got %v", err)
	}
	if f.version(t) != 0 {
		t.Fatalf("rejected adds must not bump the version")
	}
}

func TestReplyMustStayInBook(t *testing.T) {
	f := newFixture()
	root := f.add(t, "alice", "root", nil)

	_, err := f.svc.Add(context.Background(), model.AddRequest{BookID: "b2", Username: "bob", Text: "x", ParentID: &root.ID})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-book reply, got %v", err)
	}
}

func TestListOrderingAndPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var roots []model.Comment
	for i := 0; i < 5; i++ {
		roots = append(roots, f.add(t, "alice", "root", nil))
	}
	f.add(t, "bob", "r1", &roots[4].ID)
	f.add(t, "bob", "r2", &roots[4].ID)

	res, err := f.svc.List(ctx, model.PageKey{BookID: "b1", Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", res.TotalPages)
	}
	if len(res.Comments) != 2 || res.Comments[0].ID != roots[4].ID {
		t.Fatalf("expected newest root first")
	}
	replies := res.Comments[0].Replies
	if len(replies) != 2 || replies[0].Text != "r1" || replies[1].Text != "r2" {
		t.Fatalf("expected replies oldest first, got %+v", replies)
	}
	if res.Version != 7 {
		t.Fatalf("expected version 7 after 7 adds, got %d", res.Version)
	}

	res, err = f.svc.List(ctx, model.PageKey{BookID: "b1", Page: 9, PageSize: 2})
	if err != nil {
		t.Fatalf("list far page: %v", err)
	}
	if len(res.Comments) != 0 || res.TotalPages != 3 {
		t.Fatalf("expected empty far page, got %+v", res)
	}

	if _, err := f.svc.List(ctx, model.PageKey{BookID: "b1", Page: 1, PageSize: MaxPageSize + 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized page, got %v", err)
	}
}

func TestListHugePage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.add(t, "alice", "root", nil)

	for _, page := range []int{100000000000000000, math.MaxInt} {
		res, err := f.svc.List(ctx, model.PageKey{BookID: "b1", Page: page, PageSize: MaxPageSize})
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		if len(res.Comments) != 0 || res.TotalPages != 1 {
			t.Fatalf("page %d: expected empty page of 1, got %+v", page, res)
		}
	}
}

func TestEditRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.add(t, "alice", "hello", nil)

	if err := f.svc.Edit(ctx, model.EditRequest{CommentID: c.ID, Username: "bob", Text: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-author, got %v", err)
	}
	if err := f.svc.Edit(ctx, model.EditRequest{CommentID: c.ID, Username: "root", Text: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("admins cannot edit other people's comments, got %v", err)
	}
	if err := f.svc.Edit(ctx, model.EditRequest{CommentID: c.ID, Username: "alice", Text: " fixed "}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	got, _ := f.repo.Get(ctx, c.ID)
	if got.Text != "fixed" || !got.Edited {
		t.Fatalf("expected edited text, got %+v", got)
	}

	if err := f.svc.Delete(ctx, model.DeleteRequest{CommentID: c.ID, Username: "alice"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Edit(ctx, model.EditRequest{CommentID: c.ID, Username: "alice", Text: "again"}); !errors.Is(err, ErrDeleted) {
		t.Fatalf("expected ErrDeleted, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	root := f.add(t, "alice", "root", nil)
	reply := f.add(t, "bob", "reply", &root.ID)

	if err := f.svc.Delete(ctx, model.DeleteRequest{CommentID: root.ID, Username: "bob"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.svc.Delete(ctx, model.DeleteRequest{CommentID: root.ID, Username: "root"}); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	v := f.version(t)

	if err := f.svc.Delete(ctx, model.DeleteRequest{CommentID: root.ID, Username: "alice"}); err != nil {
		t.Fatalf("second delete must succeed, got %v", err)
	}
	if f.version(t) != v {
		t.Fatalf("second delete must not bump the version")
	}
	if err := f.svc.Delete(ctx, model.DeleteRequest{CommentID: root.ID, Username: "bob"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger deleting a deleted comment: expected ErrForbidden, got %v", err)
	}

	res, err := f.svc.List(ctx, model.PageKey{BookID: "b1", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := res.Comments[0]
	if !got.Deleted || got.Author != nil || got.Text != "" {
		t.Fatalf("expected redacted root, got %+v", got)
	}
	if len(got.Replies) != 1 || got.Replies[0].ID != reply.ID {
		t.Fatalf("deleted comment must keep its replies")
	}
}

func TestVoteCountsEveryCall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.add(t, "alice", "hello", nil)

	for _, v := range []int{1, 1, -1} {
		if err := f.svc.Vote(ctx, model.VoteRequest{CommentID: c.ID, Value: v}); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if err := f.svc.Vote(ctx, model.VoteRequest{CommentID: c.ID, Value: 2}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	got, _ := f.repo.Get(ctx, c.ID)
	if got.Upvotes != 2 || got.Downvotes != 1 {
		t.Fatalf("expected 2/1 votes, got %d/%d", got.Upvotes, got.Downvotes)
	}
}

func TestBan(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.Ban(ctx, model.BanRequest{AdminUsername: "alice", TargetUsername: "bob"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}
	if err := f.svc.Ban(ctx, model.BanRequest{AdminUsername: "", TargetUsername: "bob"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("blank admin name must not match, got %v", err)
	}
	if err := f.svc.Ban(ctx, model.BanRequest{AdminUsername: "root", TargetUsername: "bob"}); err != nil {
		t.Fatalf("ban: %v", err)
	}

	_, err := f.svc.Add(ctx, model.AddRequest{BookID: "b1", Username: "bob", Text: "hi"})
	if !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
}

func TestHasNew(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.add(t, "alice", "one", nil)

	probe := model.ProbeRequest{BookID: "b1", Page: 1, PageSize: 10}
	if hit, err := f.svc.HasNew(ctx, probe); err != nil || hit {
		t.Fatalf("probe without since must be false, got %v (%v)", hit, err)
	}

	since := f.version(t)
	probe.Since = &since
	if hit, _ := f.svc.HasNew(ctx, probe); hit {
		t.Fatalf("expected no news at current version")
	}

	f.add(t, "bob", "two", nil)
	if hit, _ := f.svc.HasNew(ctx, probe); !hit {
		t.Fatalf("expected news after add")
	}

	if _, err := f.svc.HasNew(ctx, model.ProbeRequest{BookID: "b1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMutationsPublish(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.add(t, "alice", "hello", nil)
	_ = f.svc.Vote(ctx, model.VoteRequest{CommentID: c.ID, Value: 1})
	_ = f.svc.Edit(ctx, model.EditRequest{CommentID: c.ID, Username: "alice", Text: "x"})
	_ = f.svc.Delete(ctx, model.DeleteRequest{CommentID: c.ID, Username: "alice"})

	f.pub.mu.Lock()
	defer f.pub.mu.Unlock()
	if len(f.pub.books) != 4 {
		t.Fatalf("expected 4 notifications, got %v", f.pub.books)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()
	if err := f.svc.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	f.repo.pingErr = errors.New("down")
	if err := f.svc.Health(context.Background()); err == nil {
		t.Fatalf("expected health error")
	}
}
