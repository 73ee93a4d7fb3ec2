package page

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/page/entity"
)

// Repository is the storage contract for pages. The error taxonomy matches
// the blog repository: errs.ErrNotFound for missing records,
// errs.ErrSlugExists for titleSlug collisions, errs.ErrStorage for the rest.
type Repository interface {
	GetByID(ctx context.Context, id string) (entity.Page, error)
	GetBySlug(ctx context.Context, slug string) (entity.Page, error)

	// List returns every page, newest first. The page collection is small
	// by construction so the admin listing is unpaginated.
	List(ctx context.Context) ([]entity.Page, error)

	Add(ctx context.Context, p entity.Page) (entity.Page, error)
	Edit(ctx context.Context, p entity.Page) (entity.Page, error)
	Delete(ctx context.Context, id string) error
}
