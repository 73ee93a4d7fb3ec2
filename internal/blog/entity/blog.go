// Package entity defines the blog post domain records and validators.
package entity

import (
	"encoding/json"
	"time"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/content"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// BlogPost is a persisted post.
type BlogPost struct {
	ID          string
	Title       string
	TitleSlug   string
	Content     []content.Section
	Preview     string
	Meta        json.RawMessage
	AuthorID    string
	Published   bool
	DateAdded   time.Time
	DateUpdated time.Time
}

// NewBlogPost is the pre-insert form.
type NewBlogPost struct {
	Title     string
	TitleSlug string
	Content   []content.Section
	Preview   string
	Meta      json.RawMessage
	AuthorID  string
	Published bool
}

type rawBlogPost struct {
	ID          *string         `json:"id"`
	Title       *string         `json:"title"`
	TitleSlug   *string         `json:"titleSlug"`
	Content     json.RawMessage `json:"content"`
	Preview     *string         `json:"preview"`
	Meta        json.RawMessage `json:"meta"`
	AuthorID    *string         `json:"authorId"`
	Published   *bool           `json:"published"`
	DateAdded   *int64          `json:"dateAdded"`
	DateUpdated *int64          `json:"dateUpdated"`
}

// resolveSlug applies the slug policy: a caller-supplied slug must be legal,
// an omitted one is derived from the title.
func resolveSlug(supplied *string, title string) (string, error) {
	if supplied != nil && *supplied != "" {
		if !utilities.ValidSlug(*supplied) {
			return "", errs.ErrInvalidSlug
		}
		return *supplied, nil
	}
	slug := utilities.Slugify(title)
	if slug == "" {
		return "", errs.ErrInvalidSlug
	}
	return slug, nil
}

// ParseNewBlogPost validates a create request. Title and authorId are
// required; the slug derives from the title when absent; malformed content
// sections are dropped silently.
func ParseNewBlogPost(raw json.RawMessage) (NewBlogPost, error) {
	var r rawBlogPost
	if err := json.Unmarshal(raw, &r); err != nil {
		return NewBlogPost{}, errs.ErrValidation
	}
	if r.Title == nil || *r.Title == "" || r.AuthorID == nil || *r.AuthorID == "" {
		return NewBlogPost{}, errs.ErrValidation
	}
	slug, err := resolveSlug(r.TitleSlug, *r.Title)
	if err != nil {
		return NewBlogPost{}, err
	}
	sections, ok := content.ParseSections(r.Content)
	if !ok {
		return NewBlogPost{}, errs.ErrValidation
	}

	p := NewBlogPost{
		Title:     *r.Title,
		TitleSlug: slug,
		Content:   sections,
		Meta:      utilities.NormalizeMeta(r.Meta),
		AuthorID:  *r.AuthorID,
	}
	if r.Preview != nil {
		p.Preview = *r.Preview
	}
	if r.Published != nil {
		p.Published = *r.Published
	}
	return p, nil
}

// ParseEditBlogPost validates an edit request. An edit carries the full
// entity shape; requiring dateAdded is what distinguishes it from a create
// request.
func ParseEditBlogPost(raw json.RawMessage) (BlogPost, error) {
	var r rawBlogPost
	if err := json.Unmarshal(raw, &r); err != nil {
		return BlogPost{}, errs.ErrValidation
	}
	if r.ID == nil || *r.ID == "" || r.DateAdded == nil {
		return BlogPost{}, errs.ErrValidation
	}
	base, err := ParseNewBlogPost(raw)
	if err != nil {
		return BlogPost{}, err
	}

	p := BlogPost{
		ID:          *r.ID,
		Title:       base.Title,
		TitleSlug:   base.TitleSlug,
		Content:     base.Content,
		Preview:     base.Preview,
		Meta:        base.Meta,
		AuthorID:    base.AuthorID,
		Published:   base.Published,
		DateAdded:   time.UnixMilli(*r.DateAdded),
		DateUpdated: time.Now(),
	}
	if r.DateUpdated != nil {
		p.DateUpdated = time.UnixMilli(*r.DateUpdated)
	}
	return p, nil
}

// StoredBlogPost is the persisted and client-visible JSON shape of a post,
// timestamps as epoch milliseconds.
type StoredBlogPost struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	TitleSlug   string            `json:"titleSlug"`
	Content     []content.Section `json:"content"`
	Preview     string            `json:"preview"`
	Meta        json.RawMessage   `json:"meta"`
	AuthorID    string            `json:"authorId"`
	Published   bool              `json:"published"`
	DateAdded   int64             `json:"dateAdded"`
	DateUpdated int64             `json:"dateUpdated"`
}

// Stored converts a BlogPost to its JSON shape.
func (p BlogPost) Stored() StoredBlogPost {
	return StoredBlogPost{
		ID:          p.ID,
		Title:       p.Title,
		TitleSlug:   p.TitleSlug,
		Content:     p.Content,
		Preview:     p.Preview,
		Meta:        p.Meta,
		AuthorID:    p.AuthorID,
		Published:   p.Published,
		DateAdded:   p.DateAdded.UnixMilli(),
		DateUpdated: p.DateUpdated.UnixMilli(),
	}
}

// ParseStoredBlogPost strictly validates a persisted record; the file store
// skips records that fail here.
func ParseStoredBlogPost(raw json.RawMessage) (BlogPost, error) {
	var r rawBlogPost
	if err := json.Unmarshal(raw, &r); err != nil {
		return BlogPost{}, errs.ErrValidation
	}
	if r.ID == nil || *r.ID == "" || r.DateAdded == nil || r.DateUpdated == nil {
		return BlogPost{}, errs.ErrValidation
	}
	p, err := ParseEditBlogPost(raw)
	if err != nil {
		return BlogPost{}, err
	}
	return p, nil
}
