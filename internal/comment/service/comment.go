package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/notify"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/storage"
)

const (
	MaxTextLen  = 2000
	MaxPageSize = 100
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrBanned       = errors.New("user is banned")
	ErrDeleted      = errors.New("comment is deleted")
)

type commentService struct {
	repo      storage.Repository
	versions  storage.Versions
	publisher notify.Publisher
	admins    map[string]struct{}
	log       zerolog.Logger
}

type Option func(*commentService)

func WithAdmins(names ...string) Option {
	return func(s *commentService) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				s.admins[n] = struct{}{}
			}
		}
	}
}

func WithPublisher(p notify.Publisher) Option {
	return func(s *commentService) { s.publisher = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *commentService) { s.log = l }
}

func New(repo storage.Repository, versions storage.Versions, opts ...Option) CommentService {
	s := &commentService{
		repo:     repo,
		versions: versions,
		admins:   make(map[string]struct{}),
		log:      zlog.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "comment-service").Logger()
	return s
}

func (s *commentService) Add(ctx context.Context, r model.AddRequest) (model.Comment, error) {
	text, err := validateText(r.Text)
	if err != nil {
		return model.Comment{}, err
	}
	if strings.TrimSpace(r.BookID) == "" || strings.TrimSpace(r.Username) == "" {
		return model.Comment{}, ErrInvalidInput
	}

	banned, err := s.repo.IsBanned(ctx, r.Username)
	if err != nil {
		return model.Comment{}, err
	}
	if banned {
		return model.Comment{}, ErrBanned
	}

	c := model.Comment{
		BookID: r.BookID,
		Author: model.StringPtr(r.Username),
		Text:   text,
	}
	if r.ParentID != nil && *r.ParentID != "" {
		parent, err := s.get(ctx, *r.ParentID)
		if err != nil {
			return model.Comment{}, err
		}
		if parent.BookID != r.BookID {
			return model.Comment{}, ErrNotFound
		}
		c.ParentID = model.StringPtr(parent.ID)
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return model.Comment{}, err
	}
	s.changed(ctx, created.BookID)
	return created, nil
}

func (s *commentService) Edit(ctx context.Context, r model.EditRequest) error {
	text, err := validateText(r.Text)
	if err != nil {
		return err
	}
	if r.Username == "" {
		return ErrInvalidInput
	}

	c, err := s.get(ctx, r.CommentID)
	if err != nil {
		return err
	}
	if c.Deleted {
		return ErrDeleted
	}
	if c.AuthorName() != r.Username {
		return ErrForbidden
	}

	if err := s.repo.UpdateText(ctx, c.ID, text); err != nil {
		return mapRepoErr(err)
	}
	s.changed(ctx, c.BookID)
	return nil
}

// Delete is idempotent for the author and admins: deleting a deleted
// comment succeeds and changes nothing. Anyone else is refused either way.
func (s *commentService) Delete(ctx context.Context, r model.DeleteRequest) error {
	if r.Username == "" {
		return ErrInvalidInput
	}

	c, err := s.get(ctx, r.CommentID)
	if err != nil {
		return err
	}
	if c.Owner != r.Username && !s.isAdmin(r.Username) {
		return ErrForbidden
	}
	if c.Deleted {
		return nil
	}

	if err := s.repo.SoftDelete(ctx, c.ID); err != nil {
		return mapRepoErr(err)
	}
	s.changed(ctx, c.BookID)
	return nil
}

// Vote counts every call; requests carry no voter identity.
func (s *commentService) Vote(ctx context.Context, r model.VoteRequest) error {
	if r.Value != 1 && r.Value != -1 {
		return ErrInvalidInput
	}

	c, err := s.get(ctx, r.CommentID)
	if err != nil {
		return err
	}
	if c.Deleted {
		return ErrDeleted
	}

	if err := s.repo.Vote(ctx, c.ID, r.Value); err != nil {
		return mapRepoErr(err)
	}
	s.changed(ctx, c.BookID)
	return nil
}

func (s *commentService) List(ctx context.Context, key model.PageKey) (model.ListResponse, error) {
	if err := validateKey(key); err != nil {
		return model.ListResponse{}, err
	}

	p, err := s.repo.GetTreePage(ctx, key.BookID, key.Page, key.PageSize)
	if err != nil {
		return model.ListResponse{}, err
	}
	v, err := s.versions.Current(ctx, key.BookID)
	if err != nil {
		return model.ListResponse{}, err
	}

	comments := p.Comments
	if comments == nil {
		comments = []model.Comment{}
	}
	return model.ListResponse{
		Comments:   comments,
		TotalPages: p.TotalPages,
		Version:    v,
	}, nil
}

// HasNew answers whether the book changed after the caller's version. A
// probe without a version always answers false.
func (s *commentService) HasNew(ctx context.Context, r model.ProbeRequest) (bool, error) {
	if err := validateKey(model.PageKey{BookID: r.BookID, Page: r.Page, PageSize: r.PageSize}); err != nil {
		return false, err
	}
	if r.Since == nil {
		return false, nil
	}
	v, err := s.versions.Current(ctx, r.BookID)
	if err != nil {
		return false, err
	}
	return v > *r.Since, nil
}

func (s *commentService) Ban(ctx context.Context, r model.BanRequest) error {
	target := strings.TrimSpace(r.TargetUsername)
	if target == "" {
		return ErrInvalidInput
	}
	if !s.isAdmin(r.AdminUsername) || target == r.AdminUsername {
		return ErrForbidden
	}
	if err := s.repo.Ban(ctx, target); err != nil {
		return err
	}
	s.log.Info().Str("admin", r.AdminUsername).Str("target", target).Msg("user banned")
	return nil
}

func (s *commentService) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *commentService) get(ctx context.Context, id string) (model.Comment, error) {
	if strings.TrimSpace(id) == "" {
		return model.Comment{}, ErrInvalidInput
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Comment{}, mapRepoErr(err)
	}
	return c, nil
}

// changed bumps the book version and announces it. The mutation already
// happened, so failures here are only logged.
func (s *commentService) changed(ctx context.Context, bookID string) {
	v, err := s.versions.Bump(ctx, bookID)
	if err != nil {
		s.log.Error().Err(err).Str("book_id", bookID).Msg("version bump failed")
		return
	}
	s.log.Debug().Str("book_id", bookID).Int64("version", v).Msg("book changed")

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, bookID); err != nil {
		s.log.Warn().Err(err).Str("book_id", bookID).Msg("change notification failed")
	}
}

func (s *commentService) isAdmin(username string) bool {
	_, ok := s.admins[username]
	return ok && username != ""
}

func mapRepoErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func validateKey(k model.PageKey) error {
	if k.Validate() != nil || k.PageSize > MaxPageSize {
		return ErrInvalidInput
	}
	return nil
}

func validateText(text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" || utf8.RuneCountInString(t) > MaxTextLen {
		return "", ErrInvalidInput
	}
	return t, nil
}
