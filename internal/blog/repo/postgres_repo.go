// Package repo contains the storage backends for the blog collection.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/blog/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/content"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
)

// PostgresRepo provides data access for the blog_posts table using sqlx.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureTable creates the blog_posts table if not exists (idempotent).
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS blog_posts (
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  title_slug TEXT NOT NULL UNIQUE,
  content JSONB NOT NULL DEFAULT '[]'::jsonb,
  preview TEXT NOT NULL DEFAULT '',
  meta JSONB NOT NULL DEFAULT '{}'::jsonb,
  author_id TEXT NOT NULL,
  published BOOLEAN NOT NULL DEFAULT false,
  date_added TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  date_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_blog_posts_published ON blog_posts(published, date_added DESC);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type blogRow struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	TitleSlug   string    `db:"title_slug"`
	Content     []byte    `db:"content"`
	Preview     string    `db:"preview"`
	Meta        []byte    `db:"meta"`
	AuthorID    string    `db:"author_id"`
	Published   bool      `db:"published"`
	DateAdded   time.Time `db:"date_added"`
	DateUpdated time.Time `db:"date_updated"`
}

func (row blogRow) toEntity() (entity.BlogPost, error) {
	var sections []content.Section
	if err := json.Unmarshal(row.Content, &sections); err != nil {
		return entity.BlogPost{}, fmt.Errorf("%w: decode content: %v", errs.ErrStorage, err)
	}
	return entity.BlogPost{
		ID:          strconv.FormatInt(row.ID, 10),
		Title:       row.Title,
		TitleSlug:   row.TitleSlug,
		Content:     sections,
		Preview:     row.Preview,
		Meta:        json.RawMessage(row.Meta),
		AuthorID:    row.AuthorID,
		Published:   row.Published,
		DateAdded:   row.DateAdded,
		DateUpdated: row.DateUpdated,
	}, nil
}

func classifyBlogErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return errs.ErrSlugExists
	}
	return fmt.Errorf("%w: %v", errs.ErrStorage, err)
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, errs.ErrNotFound
	}
	return n, nil
}

func encode(sections []content.Section, meta json.RawMessage) ([]byte, []byte, error) {
	if sections == nil {
		sections = []content.Section{}
	}
	c, err := json.Marshal(sections)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encode content: %v", errs.ErrStorage, err)
	}
	if len(meta) == 0 {
		meta = json.RawMessage("{}")
	}
	return c, []byte(meta), nil
}

const blogColumns = `id, title, title_slug, content, preview, meta,
	author_id, published, date_added, date_updated`

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (entity.BlogPost, error) {
	n, err := parseID(id)
	if err != nil {
		return entity.BlogPost{}, err
	}
	var row blogRow
	q := `SELECT ` + blogColumns + ` FROM blog_posts WHERE id=$1`
	if err := r.db.GetContext(ctx, &row, q, n); err != nil {
		return entity.BlogPost{}, classifyBlogErr(err)
	}
	return row.toEntity()
}

func (r *PostgresRepo) GetBySlug(ctx context.Context, slug string) (entity.BlogPost, error) {
	var row blogRow
	q := `SELECT ` + blogColumns + ` FROM blog_posts WHERE title_slug=$1`
	if err := r.db.GetContext(ctx, &row, q, slug); err != nil {
		return entity.BlogPost{}, classifyBlogErr(err)
	}
	return row.toEntity()
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int, publishedOnly bool) ([]entity.BlogPost, error) {
	q := `SELECT ` + blogColumns + ` FROM blog_posts`
	if publishedOnly {
		q += ` WHERE published`
	}
	q += ` ORDER BY date_added DESC LIMIT $1 OFFSET $2`
	var rows []blogRow
	if err := r.db.SelectContext(ctx, &rows, q, limit, offset); err != nil {
		return nil, classifyBlogErr(err)
	}
	posts := make([]entity.BlogPost, 0, len(rows))
	for _, row := range rows {
		p, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (r *PostgresRepo) Add(ctx context.Context, p entity.BlogPost) (entity.BlogPost, error) {
	c, meta, err := encode(p.Content, p.Meta)
	if err != nil {
		return entity.BlogPost{}, err
	}
	const q = `INSERT INTO blog_posts
		(title, title_slug, content, preview, meta, author_id, published)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, date_added, date_updated`
	var (
		id                     int64
		dateAdded, dateUpdated time.Time
	)
	err = r.db.QueryRowxContext(ctx, q,
		p.Title, p.TitleSlug, c, p.Preview, meta, p.AuthorID, p.Published,
	).Scan(&id, &dateAdded, &dateUpdated)
	if err != nil {
		return entity.BlogPost{}, classifyBlogErr(err)
	}
	p.ID = strconv.FormatInt(id, 10)
	p.DateAdded = dateAdded
	p.DateUpdated = dateUpdated
	return p, nil
}

func (r *PostgresRepo) Edit(ctx context.Context, p entity.BlogPost) (entity.BlogPost, error) {
	n, err := parseID(p.ID)
	if err != nil {
		return entity.BlogPost{}, err
	}
	c, meta, err := encode(p.Content, p.Meta)
	if err != nil {
		return entity.BlogPost{}, err
	}
	const q = `UPDATE blog_posts SET
		title=$2, title_slug=$3, content=$4, preview=$5, meta=$6,
		author_id=$7, published=$8, date_updated=NOW()
		WHERE id=$1
		RETURNING date_added, date_updated`
	var dateAdded, dateUpdated time.Time
	err = r.db.QueryRowxContext(ctx, q,
		n, p.Title, p.TitleSlug, c, p.Preview, meta, p.AuthorID, p.Published,
	).Scan(&dateAdded, &dateUpdated)
	if err != nil {
		return entity.BlogPost{}, classifyBlogErr(err)
	}
	p.DateAdded = dateAdded
	p.DateUpdated = dateUpdated
	return p, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id=$1`, n)
	if err != nil {
		return classifyBlogErr(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
