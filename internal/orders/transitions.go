package orders

import "github.com/evanhart/storefront-backend/pkg/enums"

// allowedTransitions is the full order lifecycle. Anything not listed is
// rejected, including self transitions.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing: {enums.OrderStatusShipping, enums.OrderStatusCancelled},
	enums.OrderStatusShipping:  {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered: {enums.OrderStatusRefunded},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanCancel reports whether the order is still early enough to cancel.
func CanCancel(status enums.OrderStatus) bool {
	return CanTransition(status, enums.OrderStatusCancelled)
}

// CanRefund reports whether the order state admits a refund.
func CanRefund(status enums.OrderStatus) bool {
	return CanTransition(status, enums.OrderStatusRefunded)
}
