package feed

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

var (
	ErrEmptyText   = errors.New("comment text is empty")
	ErrInvalidVote = errors.New("vote must be 1 or -1")
	ErrNotLoggedIn = errors.New("log in to do that")
	ErrNotAdmin    = errors.New("admin rights required")
)

// Mutator is the write side of the remote comment store.
type Mutator interface {
	AddComment(ctx context.Context, r model.AddRequest) error
	EditComment(ctx context.Context, r model.EditRequest) error
	DeleteComment(ctx context.Context, r model.DeleteRequest) error
	VoteComment(ctx context.Context, r model.VoteRequest) error
	BanUser(ctx context.Context, r model.BanRequest) error
}

// Gate is waited on before every mutating call.
type Gate interface {
	Wait(ctx context.Context) error
}

// Refresher is the part of the synchronizer a session drives.
type Refresher interface {
	Key() model.PageKey
	Refresh()
}

// Session performs mutations for one viewer. Local state is never patched:
// each completed mutation bumps the refresh counter and the next fetch is
// what the user sees.
type Session struct {
	store  Mutator
	gate   Gate
	feed   Refresher
	viewer *model.Viewer
	log    zerolog.Logger
}

func NewSession(store Mutator, gate Gate, feed Refresher, viewer *model.Viewer) *Session {
	return &Session{
		store:  store,
		gate:   gate,
		feed:   feed,
		viewer: viewer,
		log:    zlog.Logger.With().Str("component", "comment-session").Logger(),
	}
}

func (s *Session) WithLogger(l zerolog.Logger) *Session {
	s.log = l.With().Str("component", "comment-session").Logger()
	return s
}

func (s *Session) Viewer() *model.Viewer {
	return s.viewer
}

// Add posts a top-level comment, or a reply when parentID is not empty.
func (s *Session) Add(ctx context.Context, text, parentID string) error {
	if !s.viewer.LoggedIn() {
		return ErrNotLoggedIn
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	req := model.AddRequest{
		BookID:   s.feed.Key().BookID,
		Username: s.viewer.Username,
		Text:     text,
	}
	if parentID != "" {
		req.ParentID = model.StringPtr(parentID)
	}

	return s.mutate(ctx, "add", func(ctx context.Context) error {
		return s.store.AddComment(ctx, req)
	})
}

func (s *Session) Edit(ctx context.Context, commentID, text string) error {
	if !s.viewer.LoggedIn() {
		return ErrNotLoggedIn
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	req := model.EditRequest{CommentID: commentID, Username: s.viewer.Username, Text: text}
	return s.mutate(ctx, "edit", func(ctx context.Context) error {
		return s.store.EditComment(ctx, req)
	})
}

func (s *Session) Delete(ctx context.Context, commentID string) error {
	if !s.viewer.LoggedIn() {
		return ErrNotLoggedIn
	}

	req := model.DeleteRequest{CommentID: commentID, Username: s.viewer.Username}
	return s.mutate(ctx, "delete", func(ctx context.Context) error {
		return s.store.DeleteComment(ctx, req)
	})
}

// Vote is fire-and-forget: store and transport failures are only logged,
// and the page is refreshed either way.
func (s *Session) Vote(ctx context.Context, commentID string, value int) error {
	if value != 1 && value != -1 {
		return ErrInvalidVote
	}
	if !s.viewer.LoggedIn() {
		return ErrNotLoggedIn
	}

	s.fireAndForget(ctx, "vote", func(ctx context.Context) error {
		return s.store.VoteComment(ctx, model.VoteRequest{CommentID: commentID, Value: value})
	})
	return nil
}

// Ban is fire-and-forget like Vote. Only admins get this far; the store
// decides whether the ban sticks.
func (s *Session) Ban(ctx context.Context, target string) error {
	if !s.viewer.LoggedIn() {
		return ErrNotLoggedIn
	}
	if !s.viewer.Admin {
		return ErrNotAdmin
	}

	s.fireAndForget(ctx, "ban", func(ctx context.Context) error {
		return s.store.BanUser(ctx, model.BanRequest{
			AdminUsername:  s.viewer.Username,
			TargetUsername: target,
		})
	})
	return nil
}

func (s *Session) mutate(ctx context.Context, op string, call func(context.Context) error) error {
	if err := s.waitHealthy(ctx); err != nil {
		return err
	}
	if err := call(ctx); err != nil {
		s.log.Info().Err(err).Str("op", op).Msg("comment mutation refused")
		return err
	}
	s.feed.Refresh()
	return nil
}

func (s *Session) fireAndForget(ctx context.Context, op string, call func(context.Context) error) {
	if err := s.waitHealthy(ctx); err != nil {
		s.log.Debug().Err(err).Str("op", op).Msg("gave up waiting for store")
		return
	}
	if err := call(ctx); err != nil {
		s.log.Debug().Err(err).Str("op", op).Msg("fire-and-forget call failed")
	}
	s.feed.Refresh()
}

func (s *Session) waitHealthy(ctx context.Context) error {
	if s.gate == nil {
		return nil
	}
	return s.gate.Wait(ctx)
}
