// Package repo contains the storage backends for the page collection.
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

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/content"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/page/entity"
)

// PostgresRepo provides data access for the pages table using sqlx.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureTable creates the pages table if not exists (idempotent).
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS pages (
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  title_slug TEXT NOT NULL UNIQUE,
  content JSONB NOT NULL DEFAULT '[]'::jsonb,
  meta JSONB NOT NULL DEFAULT '{}'::jsonb,
  author_id TEXT NOT NULL,
  last_updated_by TEXT NOT NULL DEFAULT '',
  published BOOLEAN NOT NULL DEFAULT false,
  date_added TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  date_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type pageRow struct {
	ID            int64     `db:"id"`
	Title         string    `db:"title"`
	TitleSlug     string    `db:"title_slug"`
	Content       []byte    `db:"content"`
	Meta          []byte    `db:"meta"`
	AuthorID      string    `db:"author_id"`
	LastUpdatedBy string    `db:"last_updated_by"`
	Published     bool      `db:"published"`
	DateAdded     time.Time `db:"date_added"`
	DateUpdated   time.Time `db:"date_updated"`
}

func (row pageRow) toEntity() (entity.Page, error) {
	var sections []content.Section
	if err := json.Unmarshal(row.Content, &sections); err != nil {
		return entity.Page{}, fmt.Errorf("%w: decode content: %v", errs.ErrStorage, err)
	}
	return entity.Page{
		ID:            strconv.FormatInt(row.ID, 10),
		Title:         row.Title,
		TitleSlug:     row.TitleSlug,
		Content:       sections,
		Meta:          json.RawMessage(row.Meta),
		AuthorID:      row.AuthorID,
		LastUpdatedBy: row.LastUpdatedBy,
		Published:     row.Published,
		DateAdded:     row.DateAdded,
		DateUpdated:   row.DateUpdated,
	}, nil
}

func classifyPageErr(err error) error {
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

const pageColumns = `id, title, title_slug, content, meta, author_id,
	last_updated_by, published, date_added, date_updated`

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (entity.Page, error) {
	n, err := parseID(id)
	if err != nil {
		return entity.Page{}, err
	}
	var row pageRow
	q := `SELECT ` + pageColumns + ` FROM pages WHERE id=$1`
	if err := r.db.GetContext(ctx, &row, q, n); err != nil {
		return entity.Page{}, classifyPageErr(err)
	}
	return row.toEntity()
}

func (r *PostgresRepo) GetBySlug(ctx context.Context, slug string) (entity.Page, error) {
	var row pageRow
	q := `SELECT ` + pageColumns + ` FROM pages WHERE title_slug=$1`
	if err := r.db.GetContext(ctx, &row, q, slug); err != nil {
		return entity.Page{}, classifyPageErr(err)
	}
	return row.toEntity()
}

func (r *PostgresRepo) List(ctx context.Context) ([]entity.Page, error) {
	q := `SELECT ` + pageColumns + ` FROM pages ORDER BY date_added DESC`
	var rows []pageRow
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, classifyPageErr(err)
	}
	pages := make([]entity.Page, 0, len(rows))
	for _, row := range rows {
		p, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func (r *PostgresRepo) Add(ctx context.Context, p entity.Page) (entity.Page, error) {
	c, meta, err := encode(p.Content, p.Meta)
	if err != nil {
		return entity.Page{}, err
	}
	const q = `INSERT INTO pages
		(title, title_slug, content, meta, author_id, last_updated_by, published)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, date_added, date_updated`
	var (
		id                     int64
		dateAdded, dateUpdated time.Time
	)
	err = r.db.QueryRowxContext(ctx, q,
		p.Title, p.TitleSlug, c, meta, p.AuthorID, p.LastUpdatedBy, p.Published,
	).Scan(&id, &dateAdded, &dateUpdated)
	if err != nil {
		return entity.Page{}, classifyPageErr(err)
	}
	p.ID = strconv.FormatInt(id, 10)
	p.DateAdded = dateAdded
	p.DateUpdated = dateUpdated
	return p, nil
}

func (r *PostgresRepo) Edit(ctx context.Context, p entity.Page) (entity.Page, error) {
	n, err := parseID(p.ID)
	if err != nil {
		return entity.Page{}, err
	}
	c, meta, err := encode(p.Content, p.Meta)
	if err != nil {
		return entity.Page{}, err
	}
	const q = `UPDATE pages SET
		title=$2, title_slug=$3, content=$4, meta=$5, author_id=$6,
		last_updated_by=$7, published=$8, date_updated=NOW()
		WHERE id=$1
		RETURNING date_added, date_updated`
	var dateAdded, dateUpdated time.Time
	err = r.db.QueryRowxContext(ctx, q,
		n, p.Title, p.TitleSlug, c, meta, p.AuthorID, p.LastUpdatedBy, p.Published,
	).Scan(&dateAdded, &dateUpdated)
	if err != nil {
		return entity.Page{}, classifyPageErr(err)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE id=$1`, n)
	if err != nil {
		return classifyPageErr(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
