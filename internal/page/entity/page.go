// Package entity defines the page domain records and validators.
package entity

import (
	"encoding/json"
	"time"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/content"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// Page is a persisted page. Unlike a blog post it records who last touched
// it; the service stamps LastUpdatedBy from the requester on every mutation.
type Page struct {
	ID            string
	Title         string
	TitleSlug     string
	Content       []content.Section
	Meta          json.RawMessage
	AuthorID      string
	LastUpdatedBy string
	Published     bool
	DateAdded     time.Time
	DateUpdated   time.Time
}

// NewPage is the pre-insert form.
type NewPage struct {
	Title     string
	TitleSlug string
	Content   []content.Section
	Meta      json.RawMessage
	AuthorID  string
	Published bool
}

type rawPage struct {
	ID            *string         `json:"id"`
	Title         *string         `json:"title"`
	TitleSlug     *string         `json:"titleSlug"`
	Content       json.RawMessage `json:"content"`
	Meta          json.RawMessage `json:"meta"`
	AuthorID      *string         `json:"authorId"`
	LastUpdatedBy *string         `json:"lastUpdatedBy"`
	Published     *bool           `json:"published"`
	DateAdded     *int64          `json:"dateAdded"`
	DateUpdated   *int64          `json:"dateUpdated"`
}

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

// ParseNewPage validates a create request. Title and authorId are required;
// the slug derives from the title when absent; malformed content sections
// are dropped silently.
func ParseNewPage(raw json.RawMessage) (NewPage, error) {
	var r rawPage
	if err := json.Unmarshal(raw, &r); err != nil {
		return NewPage{}, errs.ErrValidation
	}
	if r.Title == nil || *r.Title == "" || r.AuthorID == nil || *r.AuthorID == "" {
		return NewPage{}, errs.ErrValidation
	}
	slug, err := resolveSlug(r.TitleSlug, *r.Title)
	if err != nil {
		return NewPage{}, err
	}
	sections, ok := content.ParseSections(r.Content)
	if !ok {
		return NewPage{}, errs.ErrValidation
	}

	p := NewPage{
		Title:     *r.Title,
		TitleSlug: slug,
		Content:   sections,
		Meta:      utilities.NormalizeMeta(r.Meta),
		AuthorID:  *r.AuthorID,
	}
	if r.Published != nil {
		p.Published = *r.Published
	}
	return p, nil
}

// ParseEditPage validates an edit request carrying the full entity shape;
// requiring dateAdded distinguishes it from a create request. LastUpdatedBy
// is ignored on input, the service overwrites it with the requester.
func ParseEditPage(raw json.RawMessage) (Page, error) {
	var r rawPage
	if err := json.Unmarshal(raw, &r); err != nil {
		return Page{}, errs.ErrValidation
	}
	if r.ID == nil || *r.ID == "" || r.DateAdded == nil {
		return Page{}, errs.ErrValidation
	}
	base, err := ParseNewPage(raw)
	if err != nil {
		return Page{}, err
	}

	p := Page{
		ID:          *r.ID,
		Title:       base.Title,
		TitleSlug:   base.TitleSlug,
		Content:     base.Content,
		Meta:        base.Meta,
		AuthorID:    base.AuthorID,
		Published:   base.Published,
		DateAdded:   time.UnixMilli(*r.DateAdded),
		DateUpdated: time.Now(),
	}
	if r.LastUpdatedBy != nil {
		p.LastUpdatedBy = *r.LastUpdatedBy
	}
	if r.DateUpdated != nil {
		p.DateUpdated = time.UnixMilli(*r.DateUpdated)
	}
	return p, nil
}

// StoredPage is the persisted and client-visible JSON shape of a page.
type StoredPage struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	TitleSlug     string            `json:"titleSlug"`
	Content       []content.Section `json:"content"`
	Meta          json.RawMessage   `json:"meta"`
	AuthorID      string            `json:"authorId"`
	LastUpdatedBy string            `json:"lastUpdatedBy"`
	Published     bool              `json:"published"`
	DateAdded     int64             `json:"dateAdded"`
	DateUpdated   int64             `json:"dateUpdated"`
}

// Stored converts a Page to its JSON shape.
func (p Page) Stored() StoredPage {
	return StoredPage{
		ID:            p.ID,
		Title:         p.Title,
		TitleSlug:     p.TitleSlug,
		Content:       p.Content,
		Meta:          p.Meta,
		AuthorID:      p.AuthorID,
		LastUpdatedBy: p.LastUpdatedBy,
		Published:     p.Published,
		DateAdded:     p.DateAdded.UnixMilli(),
		DateUpdated:   p.DateUpdated.UnixMilli(),
	}
}

// ParseStoredPage strictly validates a persisted record; the file store
// skips records that fail here.
func ParseStoredPage(raw json.RawMessage) (Page, error) {
	var r rawPage
	if err := json.Unmarshal(raw, &r); err != nil {
		return Page{}, errs.ErrValidation
	}
	if r.ID == nil || *r.ID == "" || r.DateAdded == nil || r.DateUpdated == nil || r.LastUpdatedBy == nil {
		return Page{}, errs.ErrValidation
	}
	return ParseEditPage(raw)
}
