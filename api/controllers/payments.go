package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/api/responses"
	"github.com/evanhart/storefront-backend/api/validators"
	paymentsvc "github.com/evanhart/storefront-backend/internal/payments"
	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/types"
)

// PaymentDetail returns the payment projection with its transaction log.
func PaymentDetail(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		payment, err := svc.GetPayment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// PaymentConfirm records a gateway approval: the breakdown the gateway
// reported is stored verbatim and the first ledger row is appended.
func PaymentConfirm(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		approvedAt := time.Now().UTC()
		if payload.ApprovedAt != nil {
			approvedAt = payload.ApprovedAt.UTC()
		}

		payment, err := svc.Confirm(r.Context(), paymentsvc.ConfirmInput{
			PaymentID:      id,
			PaymentKey:     payload.PaymentKey,
			Method:         method,
			Amount:         payload.Amount,
			VATAmount:      payload.VATAmount,
			SuppliedAmount: payload.SuppliedAmount,
			Card:           payload.Card,
			ApprovedAt:     approvedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// PaymentCancel reverses part or all of a collected payment.
func PaymentCancel(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		var payload cancelPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Cancel(r.Context(), paymentsvc.CancelInput{
			PaymentID: id,
			Amount:    payload.Amount,
			Reason:    payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// PaymentFail records a gateway failure for a payment that never collected funds.
func PaymentFail(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		var payload failPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePaymentStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}

		payment, err := svc.MarkFailed(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// AdminPaymentBalance re-derives the projection from the transaction log and
// reports drift without repairing anything.
func AdminPaymentBalance(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		report, err := svc.RecomputeBalance(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balanceReportResponse{
			PaymentID:       report.PaymentID,
			StoredBalance:   report.StoredBalance,
			StoredCancel:    report.StoredCancel,
			ComputedBalance: report.ComputedBalance,
			ComputedCancel:  report.ComputedCancel,
			Consistent:      report.Consistent,
		})
	}
}

type confirmPaymentRequest struct {
	PaymentKey     string              `json:"payment_key" validate:"required"`
	Method         string              `json:"method" validate:"required"`
	Amount         int                 `json:"amount" validate:"required,min=1"`
	VATAmount      int                 `json:"vat_amount" validate:"min=0"`
	SuppliedAmount int                 `json:"supplied_amount" validate:"min=0"`
	Card           *types.CardMetadata `json:"card"`
	ApprovedAt     *time.Time          `json:"approved_at"`
}

type cancelPaymentRequest struct {
	Amount int     `json:"amount" validate:"required,min=1"`
	Reason *string `json:"reason" validate:"required"`
}

type failPaymentRequest struct {
	Status string `json:"status" validate:"required"`
}

type paymentResponse struct {
	ID             uuid.UUID                    `json:"id"`
	OrderID        uuid.UUID                    `json:"order_id"`
	PaymentKey     *string                      `json:"payment_key,omitempty"`
	Status         string                       `json:"status"`
	Method         *string                      `json:"method,omitempty"`
	Currency       string                       `json:"currency"`
	TotalAmount    int                          `json:"total_amount"`
	BalanceAmount  int                          `json:"balance_amount"`
	CancelAmount   int                          `json:"cancel_amount"`
	VATAmount      int                          `json:"vat_amount"`
	SuppliedAmount int                          `json:"supplied_amount"`
	Card           *types.CardMetadata          `json:"card,omitempty"`
	Transactions   []paymentTransactionResponse `json:"transactions"`
	ApprovedAt     *time.Time                   `json:"approved_at,omitempty"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}

type paymentTransactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Amount      int        `json:"amount"`
	Reason      *string    `json:"reason,omitempty"`
	ProcessedAt time.Time  `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type balanceReportResponse struct {
	PaymentID       uuid.UUID `json:"payment_id"`
	StoredBalance   int       `json:"stored_balance"`
	StoredCancel    int       `json:"stored_cancel"`
	ComputedBalance int       `json:"computed_balance"`
	ComputedCancel  int       `json:"computed_cancel"`
	Consistent      bool      `json:"consistent"`
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	txns := make([]paymentTransactionResponse, 0, len(payment.Transactions))
	for _, txn := range payment.Transactions {
		txns = append(txns, paymentTransactionResponse{
			ID:          txn.ID,
			Type:        string(txn.Type),
			Amount:      txn.Amount,
			Reason:      txn.Reason,
			ProcessedAt: txn.ProcessedAt,
			CreatedAt:   txn.CreatedAt,
		})
	}

	var method *string
	if payment.Method != nil {
		value := string(*payment.Method)
		method = &value
	}

	return paymentResponse{
		ID:             payment.ID,
		OrderID:        payment.OrderID,
		PaymentKey:     payment.PaymentKey,
		Status:         string(payment.Status),
		Method:         method,
		Currency:       string(payment.Currency),
		TotalAmount:    payment.TotalAmount,
		BalanceAmount:  payment.BalanceAmount,
		CancelAmount:   payment.CancelAmount,
		VATAmount:      payment.VATAmount,
		SuppliedAmount: payment.SuppliedAmount,
		Card:           payment.Card,
		Transactions:   txns,
		ApprovedAt:     payment.ApprovedAt,
		CreatedAt:      payment.CreatedAt,
		UpdatedAt:      payment.UpdatedAt,
	}
}
