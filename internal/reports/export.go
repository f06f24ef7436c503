package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// WriteCSV renders the summary as a small CSV for download, with amounts in
// Brazilian money formatting.
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bucket", "count", "amount"}); err != nil {
		return err
	}
	rows := [][]string{
		{"pendentes", itoa(s.PendingCount), formatBRL(s.PendingAmount)},
		{"aprovadas", itoa(s.ApprovedCount), formatBRL(s.ApprovedAmount)},
		{"pagas", itoa(s.PaidCount), formatBRL(s.PaidAmount)},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatBRL(d decimal.Decimal) string {
	f, _ := d.Float64()
	return ptBR.Sprintf("R$ %v", number.Decimal(f, number.Scale(2)))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
