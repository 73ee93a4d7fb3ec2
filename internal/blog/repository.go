package blog

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/blog/entity"
)

// Repository is the storage contract for blog posts. Lookups return
// errs.ErrNotFound when nothing matches; Add and Edit return
// errs.ErrSlugExists when the titleSlug collides with another post; other
// backend failures come back wrapped in errs.ErrStorage.
type Repository interface {
	GetByID(ctx context.Context, id string) (entity.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (entity.BlogPost, error)

	// List returns posts ordered newest first. publishedOnly filters out
	// drafts for the public listing.
	List(ctx context.Context, limit, offset int, publishedOnly bool) ([]entity.BlogPost, error)

	// Add persists a new post; id and timestamps are assigned by the backend.
	Add(ctx context.Context, p entity.BlogPost) (entity.BlogPost, error)

	// Edit replaces the stored post by id. The stored dateAdded is kept and
	// dateUpdated is stamped by the backend; both are immutable to callers.
	Edit(ctx context.Context, p entity.BlogPost) (entity.BlogPost, error)

	Delete(ctx context.Context, id string) error
}
