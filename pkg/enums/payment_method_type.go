package enums

import "fmt"

// PaymentMethodType enumerates the supported collection methods.
type PaymentMethodType string

const (
	PaymentMethodPix          PaymentMethodType = "pix"
	PaymentMethodCreditCard   PaymentMethodType = "credit_card"
	PaymentMethodDebitCard    PaymentMethodType = "debit_card"
	PaymentMethodBoleto       PaymentMethodType = "boleto"
	PaymentMethodBankTransfer PaymentMethodType = "bank_transfer"
)

var validPaymentMethodTypes = []PaymentMethodType{
	PaymentMethodPix,
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodBoleto,
	PaymentMethodBankTransfer,
}

// String implements fmt.Stringer.
func (p PaymentMethodType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethodType.
func (p PaymentMethodType) IsValid() bool {
	for _, candidate := range validPaymentMethodTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethodType converts raw input into a PaymentMethodType.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	for _, candidate := range validPaymentMethodTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method type %q", value)
}
