package orders

import (
	"testing"

	"github.com/evanhart/storefront-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
		want bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusPreparing, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusShipping, false},
		{enums.OrderStatusPending, enums.OrderStatusDelivered, false},
		{enums.OrderStatusPreparing, enums.OrderStatusShipping, true},
		{enums.OrderStatusPreparing, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPreparing, enums.OrderStatusDelivered, false},
		{enums.OrderStatusShipping, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipping, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusRefunded, true},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusRefunded, enums.OrderStatusDelivered, false},
		{enums.OrderStatusPending, enums.OrderStatusPending, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCancelAndRefundGuards(t *testing.T) {
	if !CanCancel(enums.OrderStatusPending) || !CanCancel(enums.OrderStatusPreparing) {
		t.Fatal("pending and preparing orders must be cancelable")
	}
	if CanCancel(enums.OrderStatusShipping) || CanCancel(enums.OrderStatusDelivered) {
		t.Fatal("shipped orders must not be cancelable")
	}
	if !CanRefund(enums.OrderStatusDelivered) {
		t.Fatal("delivered orders must be refundable")
	}
	if CanRefund(enums.OrderStatusPending) || CanRefund(enums.OrderStatusCancelled) {
		t.Fatal("only delivered orders are refundable")
	}
}
