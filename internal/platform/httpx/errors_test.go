package httpx

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsCategories(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("invoice %w", ErrNotFound), 404},
		{"duplicate", fmt.Errorf("%w invoice number", ErrDuplicate), 409},
		{"validation", fmt.Errorf("%w: category", ErrValidation), 400},
		{"forbidden", fmt.Errorf("%w: role not authorized", ErrForbidden), 403},
		{"conflict", fmt.Errorf("%w: modified concurrently", ErrConflict), 409},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			require.Equal(t, tc.status, rec.Code)
			require.Contains(t, rec.Body.String(), `"ok":false`)
		})
	}
}

func TestRespondErrorHidesUncategorized(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pool exhausted: connection refused"))
	require.Equal(t, 500, rec.Code)
	require.Contains(t, rec.Body.String(), "internal error")
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestIsCategorized(t *testing.T) {
	require.True(t, IsCategorized(fmt.Errorf("wrapped twice: %w", fmt.Errorf("%w: detail", ErrConflict))))
	require.False(t, IsCategorized(errors.New("pool exhausted")))
	require.False(t, IsCategorized(nil))
}
