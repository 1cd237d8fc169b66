package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a payment against an order.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusReady             PaymentStatus = "ready"
	PaymentStatusInProgress        PaymentStatus = "in_progress"
	PaymentStatusWaitingForDeposit PaymentStatus = "waiting_for_deposit"
	PaymentStatusDone              PaymentStatus = "done"
	PaymentStatusCanceled          PaymentStatus = "canceled"
	PaymentStatusPartialCanceled   PaymentStatus = "partial_canceled"
	PaymentStatusAborted           PaymentStatus = "aborted"
	PaymentStatusExpired           PaymentStatus = "expired"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusReady,
	PaymentStatusInProgress,
	PaymentStatusWaitingForDeposit,
	PaymentStatusDone,
	PaymentStatusCanceled,
	PaymentStatusPartialCanceled,
	PaymentStatusAborted,
	PaymentStatusExpired,
}

// String implements fmt.Stringer.
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentStatus.
func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPendingLike reports whether the payment has not yet collected funds.
func (s PaymentStatus) IsPendingLike() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusReady, PaymentStatusInProgress, PaymentStatusWaitingForDeposit:
		return true
	}
	return false
}

// IsCompleted reports whether funds were collected and may still be held.
func (s PaymentStatus) IsCompleted() bool {
	return s == PaymentStatusDone || s == PaymentStatusPartialCanceled
}

// IsFailed reports whether the payment terminated without collecting funds.
func (s PaymentStatus) IsFailed() bool {
	return s == PaymentStatusAborted || s == PaymentStatusExpired
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
