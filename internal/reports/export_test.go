package reports

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, Summary{
		PendingCount:   2,
		ApprovedCount:  1,
		PaidCount:      3,
		PendingAmount:  decimal.RequireFromString("1250.40"),
		ApprovedAmount: decimal.RequireFromString("200.00"),
		PaidAmount:     decimal.RequireFromString("17.50"),
	})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, []string{"bucket", "count", "amount"}, records[0])
	require.Equal(t, []string{"pendentes", "2", "R$ 1.250,40"}, records[1])
	require.Equal(t, []string{"aprovadas", "1", "R$ 200,00"}, records[2])
	require.Equal(t, []string{"pagas", "3", "R$ 17,50"}, records[3])
}

func TestWriteCSVEmptySummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Summarize(nil)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"pendentes", "0", "R$ 0,00"}, records[1])
}
