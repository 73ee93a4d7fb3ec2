package repo

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/page/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/storage/jsonfile"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// FileRepo keeps the page collection resident in memory and mirrors
// mutations to pages.json through the coalescing writer.
type FileRepo struct {
	mu     sync.RWMutex
	pages  map[string]entity.Page
	writer *jsonfile.Writer
	log    *zap.SugaredLogger
}

// NewFileRepo loads pages.json from dir, skipping malformed records.
func NewFileRepo(dir string, log *zap.SugaredLogger) (*FileRepo, error) {
	path := filepath.Join(dir, "pages.json")
	records, err := jsonfile.Load(path)
	if err != nil {
		return nil, err
	}
	writer, err := jsonfile.NewWriter(path, log)
	if err != nil {
		return nil, err
	}

	pages := make(map[string]entity.Page, len(records))
	for id, raw := range records {
		p, perr := entity.ParseStoredPage(raw)
		if perr != nil {
			log.Warnw("skipping malformed page record", "id", id)
			continue
		}
		pages[p.ID] = p
	}
	return &FileRepo{pages: pages, writer: writer, log: log}, nil
}

func (r *FileRepo) flush() {
	stored := make(map[string]entity.StoredPage, len(r.pages))
	for id, p := range r.pages {
		stored[id] = p.Stored()
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		r.log.Errorw("marshal page collection", "err", err)
		return
	}
	r.writer.Save(data)
}

// Close waits for any pending flush to reach disk.
func (r *FileRepo) Close() {
	r.writer.Wait()
}

func (r *FileRepo) GetByID(_ context.Context, id string) (entity.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[id]
	if !ok {
		return entity.Page{}, errs.ErrNotFound
	}
	return p, nil
}

func (r *FileRepo) GetBySlug(_ context.Context, slug string) (entity.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.pages {
		if p.TitleSlug == slug {
			return p, nil
		}
	}
	return entity.Page{}, errs.ErrNotFound
}

func (r *FileRepo) List(_ context.Context) ([]entity.Page, error) {
	r.mu.RLock()
	all := make([]entity.Page, 0, len(r.pages))
	for _, p := range r.pages {
		all = append(all, p)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].DateAdded.After(all[j].DateAdded)
	})
	return all, nil
}

func (r *FileRepo) checkSlug(slug, excludeID string) error {
	for _, p := range r.pages {
		if p.ID != excludeID && p.TitleSlug == slug {
			return errs.ErrSlugExists
		}
	}
	return nil
}

func (r *FileRepo) Add(_ context.Context, p entity.Page) (entity.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkSlug(p.TitleSlug, ""); err != nil {
		return entity.Page{}, err
	}
	now := time.Now()
	p.ID = utilities.NewSnowflakeID()
	p.DateAdded = now
	p.DateUpdated = now
	r.pages[p.ID] = p
	r.flush()
	return p, nil
}

func (r *FileRepo) Edit(_ context.Context, p entity.Page) (entity.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.pages[p.ID]
	if !ok {
		return entity.Page{}, errs.ErrNotFound
	}
	if err := r.checkSlug(p.TitleSlug, p.ID); err != nil {
		return entity.Page{}, err
	}
	p.DateAdded = current.DateAdded
	p.DateUpdated = time.Now()
	r.pages[p.ID] = p
	r.flush()
	return p, nil
}

func (r *FileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pages[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.pages, id)
	r.flush()
	return nil
}
