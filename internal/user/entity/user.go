// Package entity defines the user domain records and the validators that
// turn untrusted input into them.
package entity

import (
	"encoding/json"
	"time"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// User is a persisted account. The userType string from tokens and JSON is
// resolved through the usertype map at the boundary; internally the resolved
// object travels with the record.
type User struct {
	ID                 string
	Username           string
	Email              string
	FirstName          string
	LastName           string
	UserType           usertype.UserType
	PasswordHash       string
	UserMeta           json.RawMessage
	Enabled            bool
	PasswordResetToken string
	PasswordResetDate  time.Time
	DateAdded          time.Time
	DateUpdated        time.Time
}

// NewUser is the pre-insert form: no id, timestamps or reset token yet, and
// the password is still plaintext until the service hashes it.
type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	UserType  usertype.UserType
	Password  string
	UserMeta  json.RawMessage
	Enabled   bool
}

// EditUser carries a partial edit request. Nil fields keep the current
// value; the service merges it with the stored record after the hierarchy
// checks pass.
type EditUser struct {
	ID        string
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	UserType  *string
	UserMeta  json.RawMessage
	Enabled   *bool
}

type rawNewUser struct {
	Username  *string         `json:"username"`
	Email     *string         `json:"email"`
	Password  *string         `json:"password"`
	FirstName *string         `json:"firstName"`
	LastName  *string         `json:"lastName"`
	UserType  *string         `json:"userType"`
	UserMeta  json.RawMessage `json:"userMeta"`
	Enabled   *bool           `json:"enabled"`
}

// ParseNewUser validates a create request. Username, email and password are
// required; names default to empty, enabled defaults to true, unknown user
// types resolve to the zero-privilege sentinel and bad metadata coerces to
// an empty object.
func ParseNewUser(raw json.RawMessage, types *usertype.Map) (NewUser, error) {
	var r rawNewUser
	if err := json.Unmarshal(raw, &r); err != nil {
		return NewUser{}, errs.ErrValidation
	}
	if r.Username == nil || *r.Username == "" ||
		r.Email == nil || *r.Email == "" ||
		r.Password == nil || *r.Password == "" {
		return NewUser{}, errs.ErrValidation
	}

	u := NewUser{
		Username: *r.Username,
		Email:    *r.Email,
		Password: *r.Password,
		UserMeta: utilities.NormalizeMeta(r.UserMeta),
		Enabled:  true,
	}
	if r.FirstName != nil {
		u.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		u.LastName = *r.LastName
	}
	typeName := ""
	if r.UserType != nil {
		typeName = *r.UserType
	}
	u.UserType = types.Get(typeName)
	if r.Enabled != nil {
		u.Enabled = *r.Enabled
	}
	return u, nil
}

type rawEditUser struct {
	ID        *string         `json:"id"`
	Username  *string         `json:"username"`
	Email     *string         `json:"email"`
	FirstName *string         `json:"firstName"`
	LastName  *string         `json:"lastName"`
	UserType  *string         `json:"userType"`
	UserMeta  json.RawMessage `json:"userMeta"`
	Enabled   *bool           `json:"enabled"`
}

// ParseEditUser validates an edit request. Only the id is required; absent
// fields keep the stored value. The edit path never touches the password.
func ParseEditUser(raw json.RawMessage) (EditUser, error) {
	var r rawEditUser
	if err := json.Unmarshal(raw, &r); err != nil {
		return EditUser{}, errs.ErrValidation
	}
	if r.ID == nil || *r.ID == "" {
		return EditUser{}, errs.ErrValidation
	}
	return EditUser{
		ID:        *r.ID,
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		UserType:  r.UserType,
		UserMeta:  r.UserMeta,
		Enabled:   r.Enabled,
	}, nil
}

// StoredUser is the persisted JSON shape of a user, timestamps as epoch
// milliseconds. It is the full record including the password hash and is
// never sent to API clients.
type StoredUser struct {
	ID                 string          `json:"id"`
	Username           string          `json:"username"`
	Email              string          `json:"email"`
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	UserType           string          `json:"userType"`
	PasswordHash       string          `json:"passwordHash"`
	UserMeta           json.RawMessage `json:"userMeta"`
	Enabled            bool            `json:"enabled"`
	PasswordResetToken string          `json:"passwordResetToken"`
	PasswordResetDate  int64           `json:"passwordResetDate"`
	DateAdded          int64           `json:"dateAdded"`
	DateUpdated        int64           `json:"dateUpdated"`
}

type rawStoredUser struct {
	ID                 *string         `json:"id"`
	Username           *string         `json:"username"`
	Email              *string         `json:"email"`
	FirstName          *string         `json:"firstName"`
	LastName           *string         `json:"lastName"`
	UserType           *string         `json:"userType"`
	PasswordHash       *string         `json:"passwordHash"`
	UserMeta           json.RawMessage `json:"userMeta"`
	Enabled            *bool           `json:"enabled"`
	PasswordResetToken *string         `json:"passwordResetToken"`
	PasswordResetDate  *int64          `json:"passwordResetDate"`
	DateAdded          *int64          `json:"dateAdded"`
	DateUpdated        *int64          `json:"dateUpdated"`
}

// Stored converts a User to its persisted JSON shape.
func (u User) Stored() StoredUser {
	return StoredUser{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              u.Email,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		UserType:           u.UserType.Name(),
		PasswordHash:       u.PasswordHash,
		UserMeta:           u.UserMeta,
		Enabled:            u.Enabled,
		PasswordResetToken: u.PasswordResetToken,
		PasswordResetDate:  u.PasswordResetDate.UnixMilli(),
		DateAdded:          u.DateAdded.UnixMilli(),
		DateUpdated:        u.DateUpdated.UnixMilli(),
	}
}

// ParseStoredUser strictly validates a persisted record. The file store
// skips records that fail here, recovering what it can from a damaged
// collection. The presence of dateAdded is what distinguishes a persisted
// shape from a create request.
func ParseStoredUser(raw json.RawMessage, types *usertype.Map) (User, error) {
	var r rawStoredUser
	if err := json.Unmarshal(raw, &r); err != nil {
		return User{}, errs.ErrValidation
	}
	if r.ID == nil || *r.ID == "" ||
		r.Username == nil || r.Email == nil ||
		r.UserType == nil || r.PasswordHash == nil ||
		r.Enabled == nil || r.DateAdded == nil || r.DateUpdated == nil {
		return User{}, errs.ErrValidation
	}

	u := User{
		ID:           *r.ID,
		Username:     *r.Username,
		Email:        *r.Email,
		UserType:     types.Get(*r.UserType),
		PasswordHash: *r.PasswordHash,
		UserMeta:     utilities.NormalizeMeta(r.UserMeta),
		Enabled:      *r.Enabled,
		DateAdded:    time.UnixMilli(*r.DateAdded),
		DateUpdated:  time.UnixMilli(*r.DateUpdated),
	}
	if r.FirstName != nil {
		u.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		u.LastName = *r.LastName
	}
	if r.PasswordResetToken != nil {
		u.PasswordResetToken = *r.PasswordResetToken
	}
	if r.PasswordResetDate != nil {
		u.PasswordResetDate = time.UnixMilli(*r.PasswordResetDate)
	}
	return u, nil
}

// Profile is the minimal lookup projection returned by the user read
// routes.
type Profile struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Profile returns the minimal lookup projection of the user.
func (u User) Profile() Profile {
	return Profile{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// APIUser is the client-visible projection of a User. It never carries the
// password hash or the reset token.
type APIUser struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	UserType    string          `json:"userType"`
	UserMeta    json.RawMessage `json:"userMeta"`
	Enabled     bool            `json:"enabled"`
	DateAdded   int64           `json:"dateAdded"`
	DateUpdated int64           `json:"dateUpdated"`
}

// API returns the client-visible projection of the user.
func (u User) API() APIUser {
	return APIUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		UserType:    u.UserType.Name(),
		UserMeta:    u.UserMeta,
		Enabled:     u.Enabled,
		DateAdded:   u.DateAdded.UnixMilli(),
		DateUpdated: u.DateUpdated.UnixMilli(),
	}
}
