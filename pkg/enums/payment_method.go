package enums

import "fmt"

// PaymentMethod describes how the gateway reported funds were collected.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodVirtualAccount PaymentMethod = "virtual_account"
	PaymentMethodTransfer       PaymentMethod = "transfer"
	PaymentMethodMobile         PaymentMethod = "mobile"
	PaymentMethodEasyPay        PaymentMethod = "easy_pay"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodVirtualAccount,
	PaymentMethodTransfer,
	PaymentMethodMobile,
	PaymentMethodEasyPay,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
