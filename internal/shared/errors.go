package shared

import (
	"errors"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure. Kept out of the httpx
	// categories so the auth handler can answer 401 explicitly.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
