// Package token issues and verifies the signed bearer claim that proves a
// requester's identity and user type.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
)

// TTL is the validity window of an issued bearer token.
const TTL = 12 * time.Hour

// UserToken is the decoded identity claim carried by every authenticated
// request. The userType travels as a bare string and is only meaningful
// after resolution through the usertype map; it is never compared directly
// for privilege decisions.
type UserToken struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}

type claims struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens with a shared secret.
type Signer struct {
	secret []byte
}

// NewSigner constructs a Signer for the given shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Issue signs a bearer token embedding the claim, valid for TTL from now.
func (s *Signer) Issue(ut UserToken) (string, error) {
	now := time.Now()
	c := claims{
		Username: ut.Username,
		UserID:   ut.UserID,
		UserType: ut.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// Verify parses and validates a bearer token. Malformed, mis-signed and
// expired tokens all come back as ErrUnauthorized.
func (s *Signer) Verify(raw string) (UserToken, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return UserToken{}, errs.ErrUnauthorized
	}
	return UserToken{Username: c.Username, UserID: c.UserID, UserType: c.UserType}, nil
}

type ctxKey struct{}

// NewContext returns a context carrying the verified claim. The auth
// middleware stores it here after Verify succeeds.
func NewContext(ctx context.Context, ut UserToken) context.Context {
	return context.WithValue(ctx, ctxKey{}, ut)
}

// FromContext extracts the verified claim stored by the auth middleware.
func FromContext(ctx context.Context) (UserToken, bool) {
	ut, ok := ctx.Value(ctxKey{}).(UserToken)
	return ut, ok
}
