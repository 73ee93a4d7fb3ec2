package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	s := NewSigner("test-secret")
	ut := UserToken{Username: "alice", UserID: "42", UserType: "Admin"}

	raw, err := s.Issue(ut)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := s.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, ut, got)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := NewSigner("secret-a").Issue(UserToken{Username: "a", UserID: "1", UserType: "Writer"})
	require.NoError(t, err)

	_, err = NewSigner("secret-b").Verify(raw)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewSigner("secret")
	for _, raw := range []string{"", "not.a.token", "aaaa.bbbb.cccc"} {
		_, err := s.Verify(raw)
		assert.ErrorIs(t, err, errs.ErrUnauthorized, "token %q", raw)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	secret := "secret"
	c := claims{
		Username: "a",
		UserID:   "1",
		UserType: "Writer",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-13 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewSigner(secret).Verify(raw)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	c := claims{
		Username: "a",
		UserID:   "1",
		UserType: "SuperAdmin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSigner("secret").Verify(raw)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}
