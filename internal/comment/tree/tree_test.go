package tree

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
)

func node(id string, parent *string, replies ...model.Comment) model.Comment {
	return model.Comment{
		ID:        id,
		BookID:    "b1",
		Author:    model.StringPtr("alice"),
		Text:      "text " + id,
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		ParentID:  parent,
		Replies:   replies,
	}
}

func samplePage() model.Page {
	return model.Page{
		Key:        model.PageKey{BookID: "b1", Page: 1, PageSize: 10},
		TotalPages: 1,
		Comments: []model.Comment{
			node("c1", nil,
				node("c2", model.StringPtr("c1"),
					node("c3", model.StringPtr("c2"))),
				node("c4", model.StringPtr("c1"))),
			node("c5", nil),
		},
	}
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	if err := Validate(samplePage()); err != nil {
		t.Fatalf("expected valid tree, got %v", err)
	}
}

func TestValidateAllowsCrossPageParent(t *testing.T) {
	p := samplePage()
	p.Comments = append(p.Comments, node("c9", model.StringPtr("elsewhere")))
	if err := Validate(p); err != nil {
		t.Fatalf("cross-page parent should be allowed, got %v", err)
	}
}

func TestValidateRejectsMalformedTrees(t *testing.T) {
	cases := map[string]func(p *model.Page){
		"duplicate id": func(p *model.Page) {
			p.Comments = append(p.Comments, node("c3", nil))
		},
		"self parent": func(p *model.Page) {
			p.Comments[1].ParentID = model.StringPtr("c5")
		},
		"detached reply": func(p *model.Page) {
			p.Comments[0].Replies[1].ParentID = model.StringPtr("c5")
		},
		"reply without parent": func(p *model.Page) {
			p.Comments[0].Replies[0].ParentID = nil
		},
		"negative votes": func(p *model.Page) {
			p.Comments[1].Downvotes = -1
		},
		"forward parent": func(p *model.Page) {
			p.Comments[0].ParentID = model.StringPtr("c5")
		},
		"missing id": func(p *model.Page) {
			p.Comments[1].ID = ""
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := samplePage()
			mutate(&p)
			err := Validate(p)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestWalkOrderAndCount(t *testing.T) {
	p := samplePage()

	var got []string
	err := Walk(p.Comments, func(depth int, c model.Comment) error {
		got = append(got, strings.Repeat(">", depth)+c.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	want := []string{"c1", ">c2", ">>c3", ">c4", "c5"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if n := Count(p.Comments); n != 5 {
		t.Fatalf("expected 5 comments, got %d", n)
	}

	c, ok := Find(p.Comments, "c3")
	if !ok || c.ID != "c3" {
		t.Fatalf("expected to find c3, got %v %v", c.ID, ok)
	}
	if _, ok := Find(p.Comments, "nope"); ok {
		t.Fatalf("expected missing id not to be found")
	}
}

func TestRedactKeepsPosition(t *testing.T) {
	c := node("c1", nil, node("c2", model.StringPtr("c1")))
	c.Deleted = true

	r := Redact(c)
	if r.Text != DeletedText {
		t.Fatalf("expected redacted body, got %q", r.Text)
	}
	if r.Author != nil {
		t.Fatalf("expected author hidden")
	}
	if r.ID != "c1" || len(r.Replies) != 1 {
		t.Fatalf("expected id and replies kept, got %s with %d replies", r.ID, len(r.Replies))
	}
	if c.Text == DeletedText {
		t.Fatalf("redact must not modify the original")
	}
}

func TestRenderHidesPaginationForSinglePage(t *testing.T) {
	p := samplePage()
	p.Comments[1].Deleted = true
	p.Comments[1].Text = "secret"

	var buf bytes.Buffer
	if err := NewRenderer(false).Render(&buf, p, &model.Viewer{Username: "alice"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "page 1 of") {
		t.Fatalf("pagination must be hidden when total_pages <= 1:\n%s", out)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("deleted body leaked:\n%s", out)
	}
	if !strings.Contains(out, DeletedText) {
		t.Fatalf("expected deleted marker:\n%s", out)
	}
	if !strings.Contains(out, "[reply edit delete]") {
		t.Fatalf("expected author controls:\n%s", out)
	}
	if !strings.Contains(out, "    text c3") {
		t.Fatalf("expected nested indentation:\n%s", out)
	}
}

func TestRenderShowsPaginationForManyPages(t *testing.T) {
	p := samplePage()
	p.TotalPages = 3
	p.Key.Page = 2

	var buf bytes.Buffer
	if err := NewRenderer(false).Render(&buf, p, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "page 2 of 3") {
		t.Fatalf("expected pagination footer:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "[reply") {
		t.Fatalf("anonymous viewer must not see controls:\n%s", buf.String())
	}
}
