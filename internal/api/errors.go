package api

import (
	"errors"
	"log"
	"net/http"

	"minegem/internal/controller"
	"minegem/internal/game"
	"minegem/internal/profile"
)

// Error codes reported to the presentation layer.
const (
	ErrTypeInvalidInput      = "INVALID_INPUT"
	ErrTypeBetExceedsBalance = "BET_EXCEEDS_BALANCE"
	ErrTypeTooManyMines      = "TOO_MANY_MINES"
	ErrTypeNonPositiveValue  = "NON_POSITIVE_VALUE"
	ErrTypeInvalidCode       = "INVALID_CODE"
	ErrTypeAlreadyUsed       = "ALREADY_USED"
	ErrTypeNoSession         = "NO_SESSION"
	ErrTypeSessionActive     = "SESSION_ACTIVE"
	ErrTypeInternal          = "INTERNAL_ERROR"
)

// apiError is the structured error body returned for rejections.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rejectionStatus maps a domain error to its code and HTTP status. Unknown
// errors map to an internal error.
func rejectionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrInvalidInput):
		return http.StatusBadRequest, ErrTypeInvalidInput
	case errors.Is(err, game.ErrBetExceedsBalance),
		errors.Is(err, profile.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, ErrTypeBetExceedsBalance
	case errors.Is(err, game.ErrTooManyMines):
		return http.StatusUnprocessableEntity, ErrTypeTooManyMines
	case errors.Is(err, game.ErrNonPositiveValue):
		return http.StatusUnprocessableEntity, ErrTypeNonPositiveValue
	case errors.Is(err, profile.ErrPromoInvalidCode):
		return http.StatusUnprocessableEntity, ErrTypeInvalidCode
	case errors.Is(err, profile.ErrPromoAlreadyUsed):
		return http.StatusConflict, ErrTypeAlreadyUsed
	case errors.Is(err, controller.ErrNoSession):
		return http.StatusNotFound, ErrTypeNoSession
	case errors.Is(err, controller.ErrSessionActive):
		return http.StatusConflict, ErrTypeSessionActive
	default:
		return http.StatusInternalServerError, ErrTypeInternal
	}
}

// recoverer converts handler panics into a 500 without killing the server.
func recoverer(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
					writeJSON(w, http.StatusInternalServerError, apiError{
						Type:    ErrTypeInternal,
						Message: "internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
