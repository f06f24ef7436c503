package suppliers

import (
	"fmt"
	"strings"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
)

// ErrInvalidSupplier marks payloads that fail business validation.
var ErrInvalidSupplier = fmt.Errorf("%w: supplier", httpx.ErrValidation)

func validate(s Supplier) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSupplier)
	}
	if strings.TrimSpace(s.TaxID) == "" {
		return fmt.Errorf("%w: tax id is required", ErrInvalidSupplier)
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s.TaxID)
	if len(digits) != 11 && len(digits) != 14 {
		return fmt.Errorf("%w: tax id must be a CPF (11 digits) or CNPJ (14 digits)", ErrInvalidSupplier)
	}
	return nil
}
