package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared across domain packages. Services wrap these so the
// HTTP layer can map business failures without inspecting package internals.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate")
	ErrValidation = errors.New("invalid input")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

// IsCategorized reports whether err wraps one of the shared sentinels and will
// therefore map to a 4xx response. Handlers use it to decide whether to log.
func IsCategorized(err error) bool {
	for _, sentinel := range []error{ErrNotFound, ErrDuplicate, ErrValidation, ErrForbidden, ErrConflict} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// RespondError maps a domain error to the failure envelope. Unrecognised
// errors become a generic 500 so internals never leak to the caller.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDuplicate):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrConflict):
		Fail(w, http.StatusConflict, err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}
