package middleware

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// StatusCode maps an authcore error to the HTTP status a handler should
// answer with. Unknown errors map to 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case authcore.IsAuthenticationError(err):
		return http.StatusUnauthorized
	case errors.Is(err, authcore.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, authcore.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, authcore.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, authcore.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, authcore.ErrLoginRateLimited), errors.Is(err, authcore.ErrRefreshRateLimited),
		errors.Is(err, authcore.ErrSignupRateLimited), errors.Is(err, authcore.ErrVerificationRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError answers with StatusCode(err). Internal errors are not echoed.
func WriteError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	http.Error(w, http.StatusText(code), code)
}
