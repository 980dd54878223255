package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

const timeLayout = "2006-01-02 15:04"

// Renderer writes a comment page as an indented text tree.
type Renderer struct {
	Indent string
	Color  bool
}

func NewRenderer(colored bool) *Renderer {
	return &Renderer{Indent: "  ", Color: colored}
}

func (r *Renderer) Render(w io.Writer, p model.Page, viewer *model.Viewer) error {
	author := r.paint(color.FgCyan, color.Bold)
	muted := r.paint(color.FgHiBlack)
	votes := r.paint(color.FgYellow)

	if len(p.Comments) == 0 {
		if _, err := fmt.Fprintln(w, muted("no comments yet")); err != nil {
			return err
		}
	}

	err := Walk(p.Comments, func(depth int, c model.Comment) error {
		shown := Redact(c)
		pad := strings.Repeat(r.Indent, depth)

		name := shown.AuthorName()
		if name == "" {
			name = muted("[unknown]")
		} else {
			name = author(name)
		}

		header := fmt.Sprintf("%s%s %s %s", pad, name,
			muted(shown.CreatedAt.Format(timeLayout)),
			votes(fmt.Sprintf("+%d/-%d", shown.Upvotes, shown.Downvotes)))
		if shown.Edited && !shown.Deleted {
			header += muted(" (edited)")
		}
		header += " " + muted("#"+shown.ID)
		if hints := controls(viewer, c); hints != "" {
			header += " " + muted("["+hints+"]")
		}

		body := shown.Text
		if shown.Deleted {
			body = muted(body)
		}

		_, err := fmt.Fprintf(w, "%s\n%s%s%s\n", header, pad, r.Indent, body)
		return err
	})
	if err != nil {
		return err
	}

	if p.HasPagination() {
		_, err = fmt.Fprintf(w, "%s\n", muted(fmt.Sprintf("page %d of %d", p.Key.Page, p.TotalPages)))
	}
	return err
}

func controls(viewer *model.Viewer, c model.Comment) string {
	var out []string
	if viewer.LoggedIn() && !c.Deleted {
		out = append(out, "reply")
	}
	if viewer.CanEdit(c) {
		out = append(out, "edit")
	}
	if viewer.CanDelete(c) {
		out = append(out, "delete")
	}
	if viewer.CanBan(c) {
		out = append(out, "ban")
	}
	return strings.Join(out, " ")
}

func (r *Renderer) paint(attrs ...color.Attribute) func(a ...interface{}) string {
	if !r.Color {
		return fmt.Sprint
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.SprintFunc()
}
