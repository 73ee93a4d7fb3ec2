// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Sentinels shared by the repositories, services and handlers. Repositories
// re-classify driver errors into these before returning; handlers map them to
// HTTP status codes with StatusCode.
var (
	// ErrInvalidCredentials covers login failure. Unknown username and wrong
	// password intentionally produce the same error so usernames cannot be
	// enumerated through the login route.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized indicates a missing, malformed or expired bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the requester is authenticated but lacks the
	// privilege level for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation indicates a malformed request payload.
	ErrValidation = errors.New("invalid data provided")

	// ErrInvalidSlug indicates a caller-supplied slug with illegal characters
	// or length.
	ErrInvalidSlug = errors.New("invalid slug")

	// ErrUserExists / ErrEmailExists / ErrSlugExists are uniqueness violations
	// on add or edit.
	ErrUserExists  = errors.New("username already exists")
	ErrEmailExists = errors.New("email already exists")
	ErrSlugExists  = errors.New("slug already exists")

	// Entity-level hierarchy violations. Unlike ErrForbidden these are
	// business-rule failures on an otherwise authorized route, so they map
	// to 400, not 403.
	ErrEditHigherLevel   = errors.New("cannot edit a user of a higher level")
	ErrDeleteHigherLevel = errors.New("cannot delete a user of a higher level")
	ErrPromoteAboveLevel = errors.New("cannot assign a user type above your own level")
	ErrSelfDelete        = errors.New("cannot delete your own account")

	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidToken / ErrTokenExpired are the two distinct password-reset
	// redemption failures.
	ErrInvalidToken = errors.New("invalid password reset token")
	ErrTokenExpired = errors.New("password reset token expired")

	// ErrStorage wraps unexpected backend failures. The driver error is kept
	// in the chain for logs but is never sent to the client verbatim.
	ErrStorage = errors.New("storage failure")
)
