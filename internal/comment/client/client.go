package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/zlog"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

const (
	pathList    = "/api/get-comments"
	pathProbe   = "/api/has-new-comments"
	pathAdd     = "/api/add-comment"
	pathEdit    = "/api/edit-comment"
	pathDelete  = "/api/delete-comment"
	pathVote    = "/api/vote-comment"
	pathBan     = "/api/admin/ban-user"
	pathHealth  = "/api/server-health"
	contentType = "application/json"
)

// Client talks to a remote comment store over its JSON HTTP surface.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zlog.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "comment-client").Logger()
	return c
}

func (c *Client) ListComments(ctx context.Context, key model.PageKey) (model.Page, error) {
	q := url.Values{}
	q.Set("book_id", key.BookID)
	q.Set("page", strconv.Itoa(key.Page))
	q.Set("page_size", strconv.Itoa(key.PageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathList+"?"+q.Encode(), nil)
	if err != nil {
		return model.Page{}, fmt.Errorf("list comments: %w", err)
	}

	var resp model.ListResponse
	status, err := c.do(req, &resp)
	if err != nil {
		return model.Page{}, fmt.Errorf("list comments: %w", err)
	}
	if status/100 != 2 {
		return model.Page{}, fmt.Errorf("list comments: %w: status %d", ErrBadResponse, status)
	}

	comments := resp.Comments
	if comments == nil {
		comments = []model.Comment{}
	}
	return model.Page{
		Key:        key,
		Comments:   comments,
		TotalPages: resp.TotalPages,
		Version:    resp.Version,
	}, nil
}

// HasNewComments asks whether the page changed after version since.
func (c *Client) HasNewComments(ctx context.Context, key model.PageKey, since int64) (bool, error) {
	body := model.ProbeRequest{
		BookID:   key.BookID,
		Page:     key.Page,
		PageSize: key.PageSize,
		Since:    &since,
	}
	var resp model.ProbeResponse
	status, err := c.post(ctx, pathProbe, body, &resp)
	if err != nil {
		return false, fmt.Errorf("has new comments: %w", err)
	}
	if status/100 != 2 {
		return false, fmt.Errorf("has new comments: %w: status %d", ErrBadResponse, status)
	}
	return resp.HasNew, nil
}

func (c *Client) AddComment(ctx context.Context, r model.AddRequest) error {
	return c.mutate(ctx, "add comment", pathAdd, r)
}

func (c *Client) EditComment(ctx context.Context, r model.EditRequest) error {
	return c.mutate(ctx, "edit comment", pathEdit, r)
}

func (c *Client) DeleteComment(ctx context.Context, r model.DeleteRequest) error {
	return c.mutate(ctx, "delete comment", pathDelete, r)
}

func (c *Client) VoteComment(ctx context.Context, r model.VoteRequest) error {
	return c.mutate(ctx, "vote comment", pathVote, r)
}

func (c *Client) BanUser(ctx context.Context, r model.BanRequest) error {
	return c.mutate(ctx, "ban user", pathBan, r)
}

// Healthy reports whether the store answers its health check with success.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		return false, err
	}
	var resp model.HealthResponse
	if _, err := c.do(req, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (c *Client) mutate(ctx context.Context, op, path string, body any) error {
	var res model.Result
	if _, err := c.post(ctx, path, body, &res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !res.Success {
		return &StoreError{Op: op, Message: res.Message}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

// do decodes the JSON body whatever the status code: the store reports
// refusals in the body, not only in the status line.
func (c *Client) do(req *http.Request, out any) (int, error) {
	req.Header.Set("Accept", contentType)

	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.log.Debug().
			Str("path", req.URL.Path).
			Int("status", res.StatusCode).
			Err(err).
			Msg("undecodable store response")
		return res.StatusCode, fmt.Errorf("%w: status %d: %v", ErrBadResponse, res.StatusCode, err)
	}
	return res.StatusCode, nil
}
