// Package page implements the page vertical. Pages differ from blog posts
// in one respect: every mutation records who performed it.
package page

import (
	"context"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/page/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// Service wraps the repository, fills in a derived slug on create, and
// stamps lastUpdatedBy from the requester on every mutation. Whatever the
// client sent in that field is discarded.
type Service struct {
	repo Repository
	log  *zap.SugaredLogger
}

func NewService(repo Repository, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) GetByID(ctx context.Context, id string) (entity.Page, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (entity.Page, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) List(ctx context.Context) ([]entity.Page, error) {
	return s.repo.List(ctx)
}

func (s *Service) Add(ctx context.Context, n entity.NewPage, requester token.UserToken) (entity.Page, error) {
	if n.TitleSlug == "" {
		n.TitleSlug = utilities.Slugify(n.Title)
		if n.TitleSlug == "" {
			return entity.Page{}, errs.ErrInvalidSlug
		}
	}
	p, err := s.repo.Add(ctx, entity.Page{
		Title:         n.Title,
		TitleSlug:     n.TitleSlug,
		Content:       n.Content,
		Meta:          n.Meta,
		AuthorID:      n.AuthorID,
		LastUpdatedBy: requester.UserID,
		Published:     n.Published,
	})
	if err != nil {
		return entity.Page{}, err
	}
	s.log.Infow("page added", "id", p.ID, "slug", p.TitleSlug, "by", requester.UserID)
	return p, nil
}

func (s *Service) Edit(ctx context.Context, p entity.Page, requester token.UserToken) (entity.Page, error) {
	p.LastUpdatedBy = requester.UserID
	return s.repo.Edit(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infow("page deleted", "id", id)
	return nil
}
