package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/model"
	"github.com/MyNameIsWhaaat/bookcomments/internal/comment/storage"
)

//go:embed schema.sql
var schema string

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var commentColumns = []string{
	"id", "book_id", "parent_id", "username", "text",
	"created_at", "edited", "deleted", "upvotes", "downvotes", "owner",
}

var _ storage.Repository = (*Repo)(nil)

type Repo struct {
	db *sql.DB
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Open connects through the pgx database/sql driver.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type nodePtr struct {
	c        model.Comment
	children []*nodePtr
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	c.ID = uuid.NewString()

	query, args, err := psql.Insert("comments").
		Columns("id", "book_id", "parent_id", "username", "text", "owner").
		Values(c.ID, c.BookID, c.ParentID, c.Author, c.Text, c.AuthorName()).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return model.Comment{}, err
	}

	out, err := scanComment(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return model.Comment{}, err
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (model.Comment, error) {
	query, args, err := psql.Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Comment{}, err
	}

	c, err := scanComment(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Comment{}, storage.ErrNotFound
	}
	return c, err
}

func (r *Repo) UpdateText(ctx context.Context, id, text string) error {
	return r.exec(ctx, psql.Update("comments").
		Set("text", text).
		Set("edited", true).
		Where(sq.Eq{"id": id}))
}

func (r *Repo) SoftDelete(ctx context.Context, id string) error {
	return r.exec(ctx, psql.Update("comments").
		Set("deleted", true).
		Set("text", "").
		Set("username", nil).
		Where(sq.Eq{"id": id}))
}

func (r *Repo) Vote(ctx context.Context, id string, value int) error {
	col := "downvotes"
	if value > 0 {
		col = "upvotes"
	}
	return r.exec(ctx, psql.Update("comments").
		Set(col, sq.Expr(col+" + 1")).
		Where(sq.Eq{"id": id}))
}

func (r *Repo) exec(ctx context.Context, b sq.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repo) Ban(ctx context.Context, username string) error {
	query, args, err := psql.Insert("banned_users").
		Columns("username").
		Values(username).
		Suffix("ON CONFLICT (username) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *Repo) IsBanned(ctx context.Context, username string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM banned_users WHERE username=$1`, username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *Repo) GetTreePage(ctx context.Context, bookID string, page, limit int) (model.Page, error) {
	key := model.PageKey{BookID: bookID, Page: page, PageSize: limit}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM comments WHERE book_id=$1 AND parent_id IS NULL`, bookID,
	).Scan(&total); err != nil {
		return model.Page{}, err
	}

	out := model.Page{
		Key:        key,
		Comments:   []model.Comment{},
		TotalPages: storage.TotalPages(total, limit),
	}
	offset, ok := storage.PageOffset(page, limit, total)
	if !ok {
		return out, nil
	}

	query, args, err := psql.Select("id").
		From("comments").
		Where(sq.Eq{"book_id": bookID, "parent_id": nil}).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return model.Page{}, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Page{}, err
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return model.Page{}, err
		}
		roots = append(roots, id)
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, err
	}

	if len(roots) == 0 {
		return out, nil
	}

	treeRows, err := r.db.QueryContext(ctx, `
		WITH RECURSIVE t AS (
			SELECT `+columnList()+`
			FROM comments
			WHERE id = ANY($1)

			UNION ALL

			SELECT `+columnList("c.")+`
			FROM comments c
			JOIN t ON c.parent_id = t.id
		)
		SELECT `+columnList()+`
		FROM t
	`, roots)
	if err != nil {
		return model.Page{}, err
	}
	defer treeRows.Close()

	nodes := make(map[string]*nodePtr, 256)
	for treeRows.Next() {
		c, err := scanComment(treeRows)
		if err != nil {
			return model.Page{}, err
		}
		nodes[c.ID] = &nodePtr{c: c}
	}
	if err := treeRows.Err(); err != nil {
		return model.Page{}, err
	}

	for _, n := range nodes {
		if n.c.ParentID == nil {
			continue
		}
		if p, ok := nodes[*n.c.ParentID]; ok {
			p.children = append(p.children, n)
		}
	}

	for _, rid := range roots {
		if n, ok := nodes[rid]; ok {
			out.Comments = append(out.Comments, toValueTree(n))
		}
	}
	return out, nil
}

// toValueTree orders replies oldest first.
func toValueTree(n *nodePtr) model.Comment {
	out := n.c

	sort.Slice(n.children, func(i, j int) bool {
		a, b := n.children[i].c, n.children[j].c
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	out.Replies = make([]model.Comment, 0, len(n.children))
	for _, ch := range n.children {
		out.Replies = append(out.Replies, toValueTree(ch))
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (model.Comment, error) {
	var (
		c        model.Comment
		parentID sql.NullString
		author   sql.NullString
		created  time.Time
	)
	err := row.Scan(&c.ID, &c.BookID, &parentID, &author, &c.Text,
		&created, &c.Edited, &c.Deleted, &c.Upvotes, &c.Downvotes, &c.Owner)
	if err != nil {
		return model.Comment{}, err
	}
	if parentID.Valid {
		c.ParentID = model.StringPtr(parentID.String)
	}
	if author.Valid {
		c.Author = model.StringPtr(author.String)
	}
	c.CreatedAt = created.UTC()
	return c, nil
}

func columnList(prefix ...string) string {
	if len(prefix) == 0 {
		return strings.Join(commentColumns, ", ")
	}
	cols := make([]string, len(commentColumns))
	for i, col := range commentColumns {
		cols[i] = prefix[0] + col
	}
	return strings.Join(cols, ", ")
}
