// Package user implements the account vertical: lifecycle, authentication
// and the privilege checks every mutation must pass.
package user

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// ResetTokenTTL is the validity window of a password-reset token, measured
// from issuance at redemption time.
const ResetTokenTTL = 15 * time.Minute

// PasswordHasher defines the minimal hashing interface (abstract so we can
// swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	return string(h), err
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Service orchestrates authentication, the user lifecycle and the privilege
// checks guarding it. Route-level minimum-type filtering happens in the
// router; everything target-dependent happens here.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	types  *usertype.Map
	signer *token.Signer
	log    *zap.SugaredLogger
}

func NewService(repo Repository, types *usertype.Map, signer *token.Signer, hasher PasswordHasher, log *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{repo: repo, hasher: hasher, types: types, signer: signer, log: log}
}

// requesterType resolves the requester's claimed type name at the boundary.
// Unknown names degrade to zero privilege, never to an error.
func (s *Service) requesterType(ut token.UserToken) usertype.UserType {
	return s.types.Get(ut.UserType)
}

// Login verifies credentials and issues a bearer token. Unknown username,
// disabled account and wrong password all return ErrInvalidCredentials so
// the login route cannot be used to enumerate usernames.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrInvalidCredentials
		}
		return "", err
	}
	if !u.Enabled || !s.hasher.Verify(u.PasswordHash, password) {
		return "", errs.ErrInvalidCredentials
	}
	return s.signer.Issue(token.UserToken{
		Username: u.Username,
		UserID:   u.ID,
		UserType: u.UserType.Name(),
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (entity.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (entity.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Add creates an account. The requester may not create a user above their
// own level. Uniqueness of username and email is enforced by the storage
// backend and surfaces as ErrUserExists / ErrEmailExists.
func (s *Service) Add(ctx context.Context, n entity.NewUser, requester token.UserToken) (entity.User, error) {
	rt := s.requesterType(requester)
	if !rt.CanAccessLevel(n.UserType) {
		return entity.User{}, errs.ErrPromoteAboveLevel
	}
	hash, err := s.hasher.Hash(n.Password)
	if err != nil {
		return entity.User{}, err
	}
	u := entity.User{
		Username:     n.Username,
		Email:        n.Email,
		FirstName:    n.FirstName,
		LastName:     n.LastName,
		UserType:     n.UserType,
		PasswordHash: hash,
		UserMeta:     n.UserMeta,
		Enabled:      n.Enabled,
	}
	added, err := s.repo.Add(ctx, u)
	if err != nil {
		return entity.User{}, err
	}
	s.log.Infow("user added", "id", added.ID, "username", added.Username, "userType", added.UserType.Name())
	return added, nil
}

// Edit applies a partial edit after the hierarchy checks pass: the requester
// must be at or above the target's current level, and a userType change may
// not exceed the requester's own level. Equal levels may act on each other,
// which is what permits self-edit of non-identity fields.
func (s *Service) Edit(ctx context.Context, e entity.EditUser, requester token.UserToken) (entity.User, error) {
	target, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		return entity.User{}, err
	}
	rt := s.requesterType(requester)
	if !rt.CanAccessLevel(target.UserType) {
		return entity.User{}, errs.ErrEditHigherLevel
	}

	if e.Username != nil {
		target.Username = *e.Username
	}
	if e.Email != nil {
		target.Email = *e.Email
	}
	if e.FirstName != nil {
		target.FirstName = *e.FirstName
	}
	if e.LastName != nil {
		target.LastName = *e.LastName
	}
	if e.UserType != nil {
		newType := s.types.Get(*e.UserType)
		if !rt.CanAccessLevel(newType) {
			return entity.User{}, errs.ErrPromoteAboveLevel
		}
		target.UserType = newType
	}
	if e.UserMeta != nil {
		target.UserMeta = utilities.NormalizeMeta(e.UserMeta)
	}
	if e.Enabled != nil {
		target.Enabled = *e.Enabled
	}
	return s.repo.Edit(ctx, target)
}

// Delete removes an account. Self-deletion is rejected unconditionally,
// regardless of privilege; otherwise the requester must be at or above the
// target's level.
func (s *Service) Delete(ctx context.Context, id string, requester token.UserToken) error {
	if id == requester.UserID {
		return errs.ErrSelfDelete
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.requesterType(requester).CanAccessLevel(target.UserType) {
		return errs.ErrDeleteHigherLevel
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infow("user deleted", "id", id, "by", requester.UserID)
	return nil
}

// UpdatePassword changes a password. A user changing their own password must
// prove the old one; a requester changing someone else's skips the old
// password but must clear the hierarchy against the target.
func (s *Service) UpdatePassword(ctx context.Context, id, oldPassword, newPassword string, requester token.UserToken) error {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if requester.UserID == id {
		if !s.hasher.Verify(target.PasswordHash, oldPassword) {
			return errs.ErrInvalidCredentials
		}
	} else if !s.requesterType(requester).CanAccessLevel(target.UserType) {
		return errs.ErrEditHigherLevel
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	target.PasswordHash = hash
	target.PasswordResetToken = ""
	target.PasswordResetDate = time.Time{}
	_, err = s.repo.Edit(ctx, target)
	return err
}

// GetPasswordResetToken issues an opaque reset token for the account after
// verifying the current password, and records the issuance time on the
// record. The token is only redeemable within ResetTokenTTL.
func (s *Service) GetPasswordResetToken(ctx context.Context, id, password string) (string, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrInvalidCredentials
		}
		return "", err
	}
	if !s.hasher.Verify(target.PasswordHash, password) {
		return "", errs.ErrInvalidCredentials
	}
	target.PasswordResetToken = utilities.NewKSUID()
	target.PasswordResetDate = time.Now()
	if _, err := s.repo.Edit(ctx, target); err != nil {
		return "", err
	}
	return target.PasswordResetToken, nil
}

// UpdatePasswordWithToken redeems a reset token. A mismatched or absent
// token fails with ErrInvalidToken; a correct token issued more than
// ResetTokenTTL ago fails with ErrTokenExpired. Expiry is a wall-clock
// comparison at redemption time.
func (s *Service) UpdatePasswordWithToken(ctx context.Context, id, resetToken, newPassword string) error {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.PasswordResetToken == "" ||
		subtle.ConstantTimeCompare([]byte(target.PasswordResetToken), []byte(resetToken)) != 1 {
		return errs.ErrInvalidToken
	}
	if time.Since(target.PasswordResetDate) > ResetTokenTTL {
		return errs.ErrTokenExpired
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	target.PasswordHash = hash
	target.PasswordResetToken = ""
	target.PasswordResetDate = time.Time{}
	_, err = s.repo.Edit(ctx, target)
	return err
}

// EnsureAdmin seeds a SuperAdmin account on an empty store so the first boot
// has a usable login. With no initial password configured a random one is
// generated and printed once to stdout; passwords never enter the log stream.
func (s *Service) EnsureAdmin(ctx context.Context, initialPassword string) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	password := initialPassword
	if password == "" {
		password = utilities.NewKSUID()
		fmt.Fprintf(os.Stdout, "generated initial admin password: %s\n", password)
		s.log.Warn("generated initial admin password, printed to stdout once")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	u := entity.User{
		Username:     "admin",
		Email:        "admin@localhost",
		UserType:     s.types.Get("SuperAdmin"),
		PasswordHash: hash,
		UserMeta:     []byte("{}"),
		Enabled:      true,
	}
	added, err := s.repo.Add(ctx, u)
	if err != nil {
		return err
	}
	s.log.Infow("seeded initial admin account", "id", added.ID)
	return nil
}
