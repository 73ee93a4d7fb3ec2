// Package repo contains the storage backends for the user collection.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
)

// PostgresRepo provides data access for the users table using sqlx.
type PostgresRepo struct {
	db    *sqlx.DB
	types *usertype.Map
}

func NewPostgresRepo(db *sqlx.DB, types *usertype.Map) *PostgresRepo {
	return &PostgresRepo{db: db, types: types}
}

// EnsureTable creates the users table if not exists (idempotent).
func (r *PostgresRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  user_type TEXT NOT NULL DEFAULT 'none',
  password_hash TEXT NOT NULL,
  user_meta JSONB NOT NULL DEFAULT '{}'::jsonb,
  enabled BOOLEAN NOT NULL DEFAULT true,
  password_reset_token TEXT NOT NULL DEFAULT '',
  password_reset_date TIMESTAMPTZ,
  date_added TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  date_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_user_type ON users(user_type);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type userRow struct {
	ID                 int64      `db:"id"`
	Username           string     `db:"username"`
	Email              string     `db:"email"`
	FirstName          string     `db:"first_name"`
	LastName           string     `db:"last_name"`
	UserType           string     `db:"user_type"`
	PasswordHash       string     `db:"password_hash"`
	UserMeta           []byte     `db:"user_meta"`
	Enabled            bool       `db:"enabled"`
	PasswordResetToken string     `db:"password_reset_token"`
	PasswordResetDate  *time.Time `db:"password_reset_date"`
	DateAdded          time.Time  `db:"date_added"`
	DateUpdated        time.Time  `db:"date_updated"`
}

func (r *PostgresRepo) toEntity(row userRow) entity.User {
	u := entity.User{
		ID:                 strconv.FormatInt(row.ID, 10),
		Username:           row.Username,
		Email:              row.Email,
		FirstName:          row.FirstName,
		LastName:           row.LastName,
		UserType:           r.types.Get(row.UserType),
		PasswordHash:       row.PasswordHash,
		UserMeta:           json.RawMessage(row.UserMeta),
		Enabled:            row.Enabled,
		PasswordResetToken: row.PasswordResetToken,
		DateAdded:          row.DateAdded,
		DateUpdated:        row.DateUpdated,
	}
	if row.PasswordResetDate != nil {
		u.PasswordResetDate = *row.PasswordResetDate
	}
	return u
}

// classify re-maps driver errors into the shared taxonomy. Unique-constraint
// violations are told apart by constraint name.
func classifyUserErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "users_email_key":
			return errs.ErrEmailExists
		default:
			return errs.ErrUserExists
		}
	}
	return fmt.Errorf("%w: %v", errs.ErrStorage, err)
}

// parseID converts the string id used at the boundary to the BIGSERIAL key.
// A non-numeric id cannot reference any row.
func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, errs.ErrNotFound
	}
	return n, nil
}

const userColumns = `id, username, email, first_name, last_name, user_type,
	password_hash, user_meta, enabled, password_reset_token,
	password_reset_date, date_added, date_updated`

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (entity.User, error) {
	n, err := parseID(id)
	if err != nil {
		return entity.User{}, err
	}
	var row userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if err := r.db.GetContext(ctx, &row, q, n); err != nil {
		return entity.User{}, classifyUserErr(err)
	}
	return r.toEntity(row), nil
}

func (r *PostgresRepo) GetByUsername(ctx context.Context, username string) (entity.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	if err := r.db.GetContext(ctx, &row, q, username); err != nil {
		return entity.User{}, classifyUserErr(err)
	}
	return r.toEntity(row), nil
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return entity.User{}, classifyUserErr(err)
	}
	return r.toEntity(row), nil
}

func (r *PostgresRepo) Add(ctx context.Context, u entity.User) (entity.User, error) {
	const q = `INSERT INTO users
		(username, email, first_name, last_name, user_type, password_hash, user_meta, enabled)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, date_added, date_updated`
	meta := u.UserMeta
	if len(meta) == 0 {
		meta = json.RawMessage("{}")
	}
	var (
		id                     int64
		dateAdded, dateUpdated time.Time
	)
	err := r.db.QueryRowxContext(ctx, q,
		u.Username, u.Email, u.FirstName, u.LastName,
		u.UserType.Name(), u.PasswordHash, []byte(meta), u.Enabled,
	).Scan(&id, &dateAdded, &dateUpdated)
	if err != nil {
		return entity.User{}, classifyUserErr(err)
	}
	u.ID = strconv.FormatInt(id, 10)
	u.DateAdded = dateAdded
	u.DateUpdated = dateUpdated
	return u, nil
}

func (r *PostgresRepo) Edit(ctx context.Context, u entity.User) (entity.User, error) {
	n, err := parseID(u.ID)
	if err != nil {
		return entity.User{}, err
	}
	const q = `UPDATE users SET
		username=$2, email=$3, first_name=$4, last_name=$5, user_type=$6,
		password_hash=$7, user_meta=$8, enabled=$9,
		password_reset_token=$10, password_reset_date=$11, date_updated=NOW()
		WHERE id=$1
		RETURNING date_updated`
	meta := u.UserMeta
	if len(meta) == 0 {
		meta = json.RawMessage("{}")
	}
	var resetDate *time.Time
	if !u.PasswordResetDate.IsZero() {
		resetDate = &u.PasswordResetDate
	}
	var dateUpdated time.Time
	err = r.db.QueryRowxContext(ctx, q,
		n, u.Username, u.Email, u.FirstName, u.LastName, u.UserType.Name(),
		u.PasswordHash, []byte(meta), u.Enabled,
		u.PasswordResetToken, resetDate,
	).Scan(&dateUpdated)
	if err != nil {
		return entity.User{}, classifyUserErr(err)
	}
	u.DateUpdated = dateUpdated
	return u, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, n)
	if err != nil {
		return classifyUserErr(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, classifyUserErr(err)
	}
	return n, nil
}
