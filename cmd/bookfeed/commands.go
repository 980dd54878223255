package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/client"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/feed"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

var errQuit = errors.New("quit")

const help = `commands:
  next | prev | page N | size N     move between pages
  refresh                           refetch the page now
  add TEXT                          post a comment
  reply ID TEXT                     reply to a comment
  edit ID TEXT                      edit your comment
  delete ID                         delete a comment
  up ID | down ID                   vote
  ban USER                          ban a user (admins)
  help | quit`

type command struct {
	name string
	id   string
	text string
	n    int
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}
	c := command{name: strings.ToLower(fields[0])}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch c.name {
	case "next", "prev", "refresh", "help", "quit", "exit":
		return c, nil
	case "page", "size":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: %s N", c.name)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("%s needs a positive number", c.name)
		}
		c.n = n
		return c, nil
	case "add":
		c.text = rest
		return c, nil
	case "reply", "edit":
		if len(fields) < 2 {
			return command{}, fmt.Errorf("usage: %s ID TEXT", c.name)
		}
		c.id = fields[1]
		c.text = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
		return c, nil
	case "delete", "up", "down", "ban":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: %s ID", c.name)
		}
		c.id = fields[1]
		return c, nil
	default:
		return command{}, fmt.Errorf("unknown command %q, try help", fields[0])
	}
}

// pager is the part of the synchronizer the commands move around.
type pager interface {
	Key() model.PageKey
	SetKey(model.PageKey) error
	Refresh()
}

func execute(ctx context.Context, p pager, s *feed.Session, c command) (string, error) {
	key := p.Key()

	switch c.name {
	case "":
		return "", nil
	case "help":
		return help, nil
	case "quit", "exit":
		return "", errQuit
	case "next":
		key.Page++
		return "", p.SetKey(key)
	case "prev":
		if key.Page == 1 {
			return "already on the first page", nil
		}
		key.Page--
		return "", p.SetKey(key)
	case "page":
		key.Page = c.n
		return "", p.SetKey(key)
	case "size":
		key.Page, key.PageSize = 1, c.n
		return "", p.SetKey(key)
	case "refresh":
		p.Refresh()
		return "", nil
	case "add":
		return "posted", s.Add(ctx, c.text, "")
	case "reply":
		return "replied", s.Add(ctx, c.text, c.id)
	case "edit":
		return "edited", s.Edit(ctx, c.id, c.text)
	case "delete":
		return "deleted", s.Delete(ctx, c.id)
	case "up":
		return "", s.Vote(ctx, c.id, 1)
	case "down":
		return "", s.Vote(ctx, c.id, -1)
	case "ban":
		return "ban sent", s.Ban(ctx, c.id)
	}
	return "", fmt.Errorf("unknown command %q", c.name)
}

// describe turns a command error into the line shown to the user.
func describe(err error) string {
	var se *client.StoreError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	for _, local := range []error{feed.ErrEmptyText, feed.ErrInvalidVote, feed.ErrNotLoggedIn, feed.ErrNotAdmin, model.ErrInvalidKey} {
		if errors.Is(err, local) {
			return err.Error()
		}
	}
	return client.FallbackMessage
}
