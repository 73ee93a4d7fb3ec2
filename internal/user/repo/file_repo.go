package repo

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/storage/jsonfile"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// FileRepo keeps the whole user collection resident in memory and mirrors
// every mutation to users.json through the coalescing writer. Reads take the
// read lock; mutations take the write lock, update the map and queue a
// flush, so the in-memory state is always ahead of or equal to the file.
type FileRepo struct {
	mu     sync.RWMutex
	users  map[string]entity.User
	writer *jsonfile.Writer
	types  *usertype.Map
	log    *zap.SugaredLogger
}

// NewFileRepo loads users.json from dir. Records failing validation are
// skipped with a warning so one damaged record does not take the whole
// collection down.
func NewFileRepo(dir string, types *usertype.Map, log *zap.SugaredLogger) (*FileRepo, error) {
	path := filepath.Join(dir, "users.json")
	records, err := jsonfile.Load(path)
	if err != nil {
		return nil, err
	}
	writer, err := jsonfile.NewWriter(path, log)
	if err != nil {
		return nil, err
	}

	users := make(map[string]entity.User, len(records))
	for id, raw := range records {
		u, perr := entity.ParseStoredUser(raw, types)
		if perr != nil {
			log.Warnw("skipping malformed user record", "id", id)
			continue
		}
		users[u.ID] = u
	}
	return &FileRepo{users: users, writer: writer, types: types, log: log}, nil
}

// flush queues the current collection state. Callers hold the write lock.
func (r *FileRepo) flush() {
	stored := make(map[string]entity.StoredUser, len(r.users))
	for id, u := range r.users {
		stored[id] = u.Stored()
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		r.log.Errorw("marshal user collection", "err", err)
		return
	}
	r.writer.Save(data)
}

// Close waits for any pending flush to reach disk.
func (r *FileRepo) Close() {
	r.writer.Wait()
}

func (r *FileRepo) GetByID(_ context.Context, id string) (entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return entity.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (r *FileRepo) GetByUsername(_ context.Context, username string) (entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return entity.User{}, errs.ErrNotFound
}

func (r *FileRepo) GetByEmail(_ context.Context, email string) (entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return entity.User{}, errs.ErrNotFound
}

// checkUnique enforces the same constraints the relational schema declares.
// Callers hold the write lock; excludeID skips the record being edited.
func (r *FileRepo) checkUnique(username, email, excludeID string) error {
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		if u.Username == username {
			return errs.ErrUserExists
		}
		if u.Email == email {
			return errs.ErrEmailExists
		}
	}
	return nil
}

func (r *FileRepo) Add(_ context.Context, u entity.User) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnique(u.Username, u.Email, ""); err != nil {
		return entity.User{}, err
	}
	now := time.Now()
	u.ID = utilities.NewSnowflakeID()
	u.DateAdded = now
	u.DateUpdated = now
	r.users[u.ID] = u
	r.flush()
	return u, nil
}

func (r *FileRepo) Edit(_ context.Context, u entity.User) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return entity.User{}, errs.ErrNotFound
	}
	if err := r.checkUnique(u.Username, u.Email, u.ID); err != nil {
		return entity.User{}, err
	}
	u.DateUpdated = time.Now()
	r.users[u.ID] = u
	r.flush()
	return u, nil
}

func (r *FileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.users, id)
	r.flush()
	return nil
}

func (r *FileRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
