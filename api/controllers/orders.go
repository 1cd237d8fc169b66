package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/api/middleware"
	"github.com/evanhart/storefront-backend/api/responses"
	"github.com/evanhart/storefront-backend/api/validators"
	ordersvc "github.com/evanhart/storefront-backend/internal/orders"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/pagination"
	"github.com/evanhart/storefront-backend/pkg/types"
)

// Checkout turns the caller's active cart into an order plus a pending payment.
func Checkout(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		owner, err := cartOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateFromCart(r.Context(), ordersvc.CheckoutInput{
			Owner:           owner,
			CustomerName:    validators.SanitizeString(payload.CustomerName, 200),
			CustomerEmail:   validators.SanitizeString(payload.CustomerEmail, 320),
			CustomerPhone:   validators.SanitizeString(payload.CustomerPhone, 50),
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// OrderDetail returns a single order. Customers only see their own orders;
// admins see everything.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !callerMayViewOrder(r, order) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// MyOrders pages through the authenticated user's orders.
func MyOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		raw := middleware.UserIDFromContext(r.Context())
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListOrders(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, ordersvc.ListFilters{UserID: &userID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListResponse(page))
	}
}

// AdminOrderList pages through all orders with optional status filtering.
func AdminOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := ordersvc.ListFilters{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id filter"))
				return
			}
			filters.UserID = &userID
		}

		page, err := svc.ListOrders(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListResponse(page))
	}
}

// AdminTransitionOrder moves an order to the requested status. Illegal moves
// are rejected by the transition table.
func AdminTransitionOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var payload transitionOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.TransitionStatus(r.Context(), id, next)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// CancelOrder lets a customer cancel their own order while it is still
// pending or preparing.
func CancelOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !callerMayViewOrder(r, order) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		cancelled, err := svc.TransitionStatus(r.Context(), id, enums.OrderStatusCancelled)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(cancelled))
	}
}

func callerMayViewOrder(r *http.Request, order *models.Order) bool {
	if middleware.RoleFromContext(r.Context()) == "admin" {
		return true
	}
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" || order.UserID == nil {
		return false
	}
	return order.UserID.String() == raw
}

type checkoutRequest struct {
	CustomerName    string        `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string        `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone   string        `json:"customer_phone" validate:"omitempty,max=50"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
}

type transitionOrderRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          *uuid.UUID          `json:"user_id,omitempty"`
	Status          string              `json:"status"`
	Currency        string              `json:"currency"`
	SubtotalAmount  int                 `json:"subtotal_amount"`
	ShippingCost    int                 `json:"shipping_cost"`
	CouponDiscount  int                 `json:"coupon_discount"`
	TotalAmount     int                 `json:"total_amount"`
	CouponID        *uuid.UUID          `json:"coupon_id,omitempty"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email,omitempty"`
	CustomerPhone   string              `json:"customer_phone,omitempty"`
	ShippingAddress types.Address       `json:"shipping_address"`
	Items           []orderItemResponse `json:"items"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	RefundedAt      *time.Time          `json:"refunded_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	ProductName    string     `json:"product_name"`
	Quantity       int        `json:"quantity"`
	PriceAmount    int        `json:"price_amount"`
	DiscountAmount int        `json:"discount_amount"`
	TotalAmount    int        `json:"total_amount"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			PriceAmount:    item.PriceAmount,
			DiscountAmount: item.DiscountAmount,
			TotalAmount:    item.TotalAmount,
		})
	}

	return orderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		Status:          string(order.Status),
		Currency:        string(order.Currency),
		SubtotalAmount:  order.SubtotalAmount,
		ShippingCost:    order.ShippingCost,
		CouponDiscount:  order.CouponDiscount,
		TotalAmount:     order.TotalAmount,
		CouponID:        order.CouponID,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerPhone:   order.CustomerPhone,
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		CancelledAt:     order.CancelledAt,
		DeliveredAt:     order.DeliveredAt,
		RefundedAt:      order.RefundedAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func newOrderListResponse(page *ordersvc.OrderList) orderListResponse {
	items := make([]orderResponse, 0, len(page.Orders))
	for i := range page.Orders {
		items = append(items, newOrderResponse(&page.Orders[i]))
	}
	return orderListResponse{Orders: items, NextCursor: page.NextCursor}
}
