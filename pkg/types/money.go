package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money converts between the BRL decimal amounts used on the wire and the
// integer centavos stored in the database. All ledger arithmetic happens in
// centavos; decimals exist only at the API boundary.

var centsFactor = decimal.NewFromInt(100)

// ParseBRL converts a decimal BRL string (e.g. "199.90") into centavos.
// Amounts with more than two fractional digits are rejected.
func ParseBRL(amount string) (int64, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return decimalToCents(dec)
}

// CentsFromDecimal converts a decimal BRL value into centavos.
func CentsFromDecimal(dec decimal.Decimal) (int64, error) {
	return decimalToCents(dec)
}

func decimalToCents(dec decimal.Decimal) (int64, error) {
	scaled := dec.Mul(centsFactor)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-centavo precision", dec.String())
	}
	return scaled.IntPart(), nil
}

// FormatBRL renders centavos as a two-decimal BRL string.
func FormatBRL(cents int64) string {
	return decimal.NewFromInt(cents).Div(centsFactor).StringFixed(2)
}

// DecimalFromCents converts centavos into a decimal BRL value.
func DecimalFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsFactor)
}
