package errs

import (
	"errors"
	"net/http"
)

// StatusCode maps a sentinel error chain to the HTTP status the API contract
// prescribes: 400 for business-rule violations, 401 for credential/token
// failures, 403 for privilege failures, 404 for missing entities, 500 for
// anything unexpected.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidSlug),
		errors.Is(err, ErrUserExists),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrSlugExists),
		errors.Is(err, ErrEditHigherLevel),
		errors.Is(err, ErrDeleteHigherLevel),
		errors.Is(err, ErrPromoteAboveLevel),
		errors.Is(err, ErrSelfDelete),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message that is safe to show the client. Storage and
// other unclassified failures get a generic message so backend details never
// leak through the API.
func Public(err error) string {
	if StatusCode(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
