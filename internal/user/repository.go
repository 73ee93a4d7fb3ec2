package user

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user/entity"
)

// Repository is the storage contract the user service runs against. Both
// backends honor the same error taxonomy: lookups return errs.ErrNotFound
// when no record matches, Add and Edit return errs.ErrUserExists or
// errs.ErrEmailExists on uniqueness collisions, and unexpected backend
// failures come back wrapped in errs.ErrStorage.
type Repository interface {
	GetByID(ctx context.Context, id string) (entity.User, error)
	GetByUsername(ctx context.Context, username string) (entity.User, error)
	GetByEmail(ctx context.Context, email string) (entity.User, error)

	// Add persists a new record. The id and timestamps are assigned by the
	// backend; the returned User carries them.
	Add(ctx context.Context, u entity.User) (entity.User, error)

	// Edit replaces the stored record with u by id, stamping dateUpdated.
	// Password hash and reset-token fields are part of the record, so
	// password and reset-token mutations also go through Edit.
	Edit(ctx context.Context, u entity.User) (entity.User, error)

	Delete(ctx context.Context, id string) error

	// Count reports the number of stored users. Used for first-run seeding.
	Count(ctx context.Context) (int, error)
}
