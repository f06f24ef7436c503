package suppliers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	base := Supplier{Name: "Construtora Alfa", TaxID: "12.345.678/0001-95"}
	require.NoError(t, validate(base))

	cpf := base
	cpf.TaxID = "123.456.789-09"
	require.NoError(t, validate(cpf))

	noName := base
	noName.Name = "  "
	require.ErrorIs(t, validate(noName), ErrInvalidSupplier)

	noTax := base
	noTax.TaxID = ""
	require.ErrorIs(t, validate(noTax), ErrInvalidSupplier)

	badTax := base
	badTax.TaxID = "12345"
	require.ErrorIs(t, validate(badTax), ErrInvalidSupplier)
}
