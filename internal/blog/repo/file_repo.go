package repo

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/blog/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/storage/jsonfile"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// FileRepo keeps the blog collection resident in memory and mirrors
// mutations to blog.json through the coalescing writer.
type FileRepo struct {
	mu     sync.RWMutex
	posts  map[string]entity.BlogPost
	writer *jsonfile.Writer
	log    *zap.SugaredLogger
}

// NewFileRepo loads blog.json from dir, skipping malformed records.
func NewFileRepo(dir string, log *zap.SugaredLogger) (*FileRepo, error) {
	path := filepath.Join(dir, "blog.json")
	records, err := jsonfile.Load(path)
	if err != nil {
		return nil, err
	}
	writer, err := jsonfile.NewWriter(path, log)
	if err != nil {
		return nil, err
	}

	posts := make(map[string]entity.BlogPost, len(records))
	for id, raw := range records {
		p, perr := entity.ParseStoredBlogPost(raw)
		if perr != nil {
			log.Warnw("skipping malformed blog record", "id", id)
			continue
		}
		posts[p.ID] = p
	}
	return &FileRepo{posts: posts, writer: writer, log: log}, nil
}

func (r *FileRepo) flush() {
	stored := make(map[string]entity.StoredBlogPost, len(r.posts))
	for id, p := range r.posts {
		stored[id] = p.Stored()
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		r.log.Errorw("marshal blog collection", "err", err)
		return
	}
	r.writer.Save(data)
}

// Close waits for any pending flush to reach disk.
func (r *FileRepo) Close() {
	r.writer.Wait()
}

func (r *FileRepo) GetByID(_ context.Context, id string) (entity.BlogPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return entity.BlogPost{}, errs.ErrNotFound
	}
	return p, nil
}

func (r *FileRepo) GetBySlug(_ context.Context, slug string) (entity.BlogPost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.posts {
		if p.TitleSlug == slug {
			return p, nil
		}
	}
	return entity.BlogPost{}, errs.ErrNotFound
}

func (r *FileRepo) List(_ context.Context, limit, offset int, publishedOnly bool) ([]entity.BlogPost, error) {
	r.mu.RLock()
	all := make([]entity.BlogPost, 0, len(r.posts))
	for _, p := range r.posts {
		if publishedOnly && !p.Published {
			continue
		}
		all = append(all, p)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].DateAdded.After(all[j].DateAdded)
	})
	if offset >= len(all) {
		return []entity.BlogPost{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// checkSlug mirrors the relational unique constraint. Callers hold the
// write lock; excludeID skips the post being edited.
func (r *FileRepo) checkSlug(slug, excludeID string) error {
	for _, p := range r.posts {
		if p.ID != excludeID && p.TitleSlug == slug {
			return errs.ErrSlugExists
		}
	}
	return nil
}

func (r *FileRepo) Add(_ context.Context, p entity.BlogPost) (entity.BlogPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkSlug(p.TitleSlug, ""); err != nil {
		return entity.BlogPost{}, err
	}
	now := time.Now()
	p.ID = utilities.NewSnowflakeID()
	p.DateAdded = now
	p.DateUpdated = now
	r.posts[p.ID] = p
	r.flush()
	return p, nil
}

func (r *FileRepo) Edit(_ context.Context, p entity.BlogPost) (entity.BlogPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.posts[p.ID]
	if !ok {
		return entity.BlogPost{}, errs.ErrNotFound
	}
	if err := r.checkSlug(p.TitleSlug, p.ID); err != nil {
		return entity.BlogPost{}, err
	}
	p.DateAdded = current.DateAdded
	p.DateUpdated = time.Now()
	r.posts[p.ID] = p
	r.flush()
	return p, nil
}

func (r *FileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.posts, id)
	r.flush()
	return nil
}
