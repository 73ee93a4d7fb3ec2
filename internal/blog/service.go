// Package blog implements the blog-post vertical.
package blog

import (
	"context"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/blog/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Service wraps the repository with listing defaults and fills in a derived
// slug on create. Route-level privilege filtering happens in the router;
// slug uniqueness is enforced by the storage backend.
type Service struct {
	repo Repository
	log  *zap.SugaredLogger
}

func NewService(repo Repository, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) GetByID(ctx context.Context, id string) (entity.BlogPost, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (entity.BlogPost, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// List returns a page of posts, newest first. pagination is the page size,
// page is 1-based; out-of-range values fall back to sane defaults.
// includeUnpublished is only offered to the admin listing.
func (s *Service) List(ctx context.Context, pagination, page int, includeUnpublished bool) ([]entity.BlogPost, error) {
	if pagination < 1 || pagination > maxPageSize {
		pagination = defaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return s.repo.List(ctx, pagination, (page-1)*pagination, !includeUnpublished)
}

func (s *Service) Add(ctx context.Context, n entity.NewBlogPost) (entity.BlogPost, error) {
	if n.TitleSlug == "" {
		n.TitleSlug = utilities.Slugify(n.Title)
		if n.TitleSlug == "" {
			return entity.BlogPost{}, errs.ErrInvalidSlug
		}
	}
	p, err := s.repo.Add(ctx, entity.BlogPost{
		Title:     n.Title,
		TitleSlug: n.TitleSlug,
		Content:   n.Content,
		Preview:   n.Preview,
		Meta:      n.Meta,
		AuthorID:  n.AuthorID,
		Published: n.Published,
	})
	if err != nil {
		return entity.BlogPost{}, err
	}
	s.log.Infow("blog post added", "id", p.ID, "slug", p.TitleSlug)
	return p, nil
}

func (s *Service) Edit(ctx context.Context, p entity.BlogPost) (entity.BlogPost, error) {
	return s.repo.Edit(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infow("blog post deleted", "id", id)
	return nil
}
