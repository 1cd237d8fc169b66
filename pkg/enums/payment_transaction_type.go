package enums

import "fmt"

// PaymentTransactionType maps to the payment_transaction_type enum in Postgres.
type PaymentTransactionType string

const (
	PaymentTransactionTypePayment       PaymentTransactionType = "payment"
	PaymentTransactionTypeCancel        PaymentTransactionType = "cancel"
	PaymentTransactionTypePartialCancel PaymentTransactionType = "partial_cancel"
)

var validPaymentTransactionTypes = []PaymentTransactionType{
	PaymentTransactionTypePayment,
	PaymentTransactionTypeCancel,
	PaymentTransactionTypePartialCancel,
}

// String implements fmt.Stringer.
func (t PaymentTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known PaymentTransactionType.
func (t PaymentTransactionType) IsValid() bool {
	for _, candidate := range validPaymentTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsCancel reports whether the transaction reduces the payment balance.
func (t PaymentTransactionType) IsCancel() bool {
	return t == PaymentTransactionTypeCancel || t == PaymentTransactionTypePartialCancel
}

// ParsePaymentTransactionType converts raw input into a PaymentTransactionType.
func ParsePaymentTransactionType(value string) (PaymentTransactionType, error) {
	for _, candidate := range validPaymentTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment transaction type %q", value)
}
