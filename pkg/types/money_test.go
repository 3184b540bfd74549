package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseBRL(t *testing.T) {
	tests := []struct {
		amount string
		cents  int64
	}{
		{amount: "199.90", cents: 19990},
		{amount: "0.01", cents: 1},
		{amount: "1000", cents: 100000},
		{amount: "10.5", cents: 1050},
		{amount: "0", cents: 0},
	}
	for _, tt := range tests {
		got, err := ParseBRL(tt.amount)
		if err != nil {
			t.Fatalf("ParseBRL(%q): %v", tt.amount, err)
		}
		if got != tt.cents {
			t.Fatalf("ParseBRL(%q) expected %d got %d", tt.amount, tt.cents, got)
		}
	}
}

func TestParseBRLRejectsSubCentavoPrecision(t *testing.T) {
	if _, err := ParseBRL("10.999"); err == nil {
		t.Fatal("expected sub-centavo precision error")
	}
}

func TestParseBRLRejectsGarbage(t *testing.T) {
	if _, err := ParseBRL("abc"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{cents: 19990, want: "199.90"},
		{cents: 1, want: "0.01"},
		{cents: 100000, want: "1000.00"},
		{cents: 0, want: "0.00"},
	}
	for _, tt := range tests {
		if got := FormatBRL(tt.cents); got != tt.want {
			t.Fatalf("FormatBRL(%d) expected %q got %q", tt.cents, tt.want, got)
		}
	}
}

func TestCentsFromDecimalRoundTrip(t *testing.T) {
	dec := decimal.RequireFromString("349.75")
	cents, err := CentsFromDecimal(dec)
	if err != nil {
		t.Fatalf("CentsFromDecimal: %v", err)
	}
	if cents != 34975 {
		t.Fatalf("expected 34975 got %d", cents)
	}
	if !DecimalFromCents(cents).Equal(dec) {
		t.Fatalf("round trip mismatch: %s", DecimalFromCents(cents))
	}
}
