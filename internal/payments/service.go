package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanhart/storefront-backend/pkg/db/models"
	"github.com/evanhart/storefront-backend/pkg/enums"
	pkgerrors "github.com/evanhart/storefront-backend/pkg/errors"
	"github.com/evanhart/storefront-backend/pkg/logger"
	"github.com/evanhart/storefront-backend/pkg/metrics"
	"github.com/evanhart/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the payment ledger: one payment per order, an append-only
// transaction log, and a cached balance projection that always satisfies
// balance + cancel == total.
type Service interface {
	OpenInTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	Confirm(ctx context.Context, input ConfirmInput) (*models.Payment, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Payment, error)
	MarkFailed(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) (*models.Payment, error)
	RecomputeBalance(ctx context.Context, paymentID uuid.UUID) (*BalanceReport, error)
}

// ConfirmInput carries the gateway's approval result. The breakdown fields
// are recorded exactly as reported, not derived.
type ConfirmInput struct {
	PaymentID      uuid.UUID
	PaymentKey     string
	Method         enums.PaymentMethod
	Amount         int
	VATAmount      int
	SuppliedAmount int
	Card           *types.CardMetadata
	ApprovedAt     time.Time
}

// CancelInput requests a full or partial cancellation of collected money.
type CancelInput struct {
	PaymentID uuid.UUID
	Amount    int
	Reason    *string
}

// BalanceReport compares the cached projection against the transaction log.
type BalanceReport struct {
	PaymentID       uuid.UUID
	StoredBalance   int
	StoredCancel    int
	ComputedBalance int
	ComputedCancel  int
	Consistent      bool
}

type service struct {
	repo    Repository
	tx      txRunner
	log     *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService builds a payments service backed by the provided stack.
func NewService(repo Repository, tx txRunner, log *logger.Logger, ledgerMetrics *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		log:     log,
		metrics: ledgerMetrics,
	}, nil
}

// OpenInTx creates the pending payment for a freshly created order inside
// the checkout transaction. TotalAmount is fixed here and never changes.
func (s *service) OpenInTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Payment, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "open requires a transaction")
	}
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if order.TotalAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment total must be positive")
	}

	payment := &models.Payment{
		OrderID:     order.ID,
		Status:      enums.PaymentStatusPending,
		Currency:    order.Currency,
		TotalAmount: order.TotalAmount,
	}
	created, err := s.repo.WithTx(tx).Create(ctx, payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open payment")
	}
	return created, nil
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

// Confirm records a gateway approval: the payment moves to done, the full
// amount lands in the balance, and a payment row is appended to the log. The
// approved amount must match the total exactly.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if strings.TrimSpace(input.PaymentKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment key is required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var confirmed *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		payment, err := txRepo.FindByIDForUpdate(ctx, input.PaymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}

		if !payment.Status.IsPendingLike() {
			s.metrics.IncDeclined("confirm")
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment in status %s cannot be confirmed", payment.Status))
		}
		if input.Amount != payment.TotalAmount {
			s.metrics.IncDeclined("confirm")
			return pkgerrors.New(pkgerrors.CodeValidation, "approved amount does not match payment total")
		}

		approvedAt := input.ApprovedAt
		if approvedAt.IsZero() {
			approvedAt = time.Now()
		}

		key := strings.TrimSpace(input.PaymentKey)
		method := input.Method
		payment.PaymentKey = &key
		payment.Method = &method
		payment.Status = enums.PaymentStatusDone
		payment.BalanceAmount = payment.TotalAmount
		payment.VATAmount = input.VATAmount
		payment.SuppliedAmount = input.SuppliedAmount
		payment.Card = input.Card
		payment.ApprovedAt = &approvedAt

		txn := &models.PaymentTransaction{
			PaymentID:   payment.ID,
			Type:        enums.PaymentTransactionTypePayment,
			Amount:      payment.TotalAmount,
			ProcessedAt: approvedAt,
		}
		if err := txRepo.AppendTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append payment transaction")
		}
		payment.Transactions = append(payment.Transactions, *txn)

		if err := s.checkInvariant(ctx, payment); err != nil {
			return err
		}

		confirmed, err = txRepo.Save(ctx, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
	}

	s.metrics.IncConfirmed(confirmed.Method.String())
	return confirmed, nil
}

// Cancel returns collected money in part or in full. The amount moves from
// the balance to the cancel bucket and a matching transaction is appended,
// all under the row lock so concurrent cancels cannot overdraw.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel amount must be positive")
	}
	if input.Reason == nil || strings.TrimSpace(*input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel reason is required")
	}

	var cancelled *models.Payment
	var kind enums.PaymentTransactionType
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		payment, err := txRepo.FindByIDForUpdate(ctx, input.PaymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}

		if !payment.IsCancelable() {
			s.metrics.IncDeclined("cancel")
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no cancelable balance")
		}
		if input.Amount > payment.CancelableAmount() {
			s.metrics.IncDeclined("cancel")
			return pkgerrors.New(pkgerrors.CodeConflict, "cancel amount exceeds remaining balance")
		}

		payment.BalanceAmount -= input.Amount
		payment.CancelAmount += input.Amount
		if payment.BalanceAmount == 0 {
			payment.Status = enums.PaymentStatusCanceled
			kind = enums.PaymentTransactionTypeCancel
		} else {
			payment.Status = enums.PaymentStatusPartialCanceled
			kind = enums.PaymentTransactionTypePartialCancel
		}

		txn := &models.PaymentTransaction{
			PaymentID:   payment.ID,
			Type:        kind,
			Amount:      input.Amount,
			Reason:      input.Reason,
			ProcessedAt: time.Now(),
		}
		if err := txRepo.AppendTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append cancel transaction")
		}
		payment.Transactions = append(payment.Transactions, *txn)

		if err := s.checkInvariant(ctx, payment); err != nil {
			return err
		}

		cancelled, err = txRepo.Save(ctx, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment")
	}

	s.metrics.IncCancelled(kind.String())
	return cancelled, nil
}

// MarkFailed closes a pending payment that will never be collected, for
// example an aborted authorization or an expired virtual account deposit
// window.
func (s *service) MarkFailed(ctx context.Context, paymentID uuid.UUID, status enums.PaymentStatus) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if !status.IsFailed() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be a failure state")
	}

	var failed *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		payment, err := txRepo.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}

		if !payment.Status.IsPendingLike() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment in status %s cannot fail", payment.Status))
		}

		payment.Status = status
		failed, err = txRepo.Save(ctx, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	return failed, nil
}

// RecomputeBalance rebuilds the projection from the transaction log and
// reports whether the cached columns agree. It never repairs; a mismatch is
// surfaced for operators and counted.
func (s *service) RecomputeBalance(ctx context.Context, paymentID uuid.UUID) (*BalanceReport, error) {
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	computedCollected := 0
	computedCancel := 0
	for _, txn := range payment.Transactions {
		if txn.Type.IsCancel() {
			computedCancel += txn.Amount
		} else {
			computedCollected += txn.Amount
		}
	}

	report := &BalanceReport{
		PaymentID:       payment.ID,
		StoredBalance:   payment.BalanceAmount,
		StoredCancel:    payment.CancelAmount,
		ComputedBalance: computedCollected - computedCancel,
		ComputedCancel:  computedCancel,
	}
	report.Consistent = report.StoredBalance == report.ComputedBalance &&
		report.StoredCancel == report.ComputedCancel

	if !report.Consistent {
		s.metrics.IncInvariantViolation()
		s.log.Error(
			s.log.WithField(ctx, "payment_id", payment.ID.String()),
			"payment projection diverges from transaction log",
			fmt.Errorf("stored balance=%d cancel=%d, computed balance=%d cancel=%d",
				report.StoredBalance, report.StoredCancel,
				report.ComputedBalance, report.ComputedCancel),
		)
	}
	return report, nil
}

// checkInvariant verifies balance + cancel == total before a mutation
// commits. A violation aborts the transaction.
func (s *service) checkInvariant(ctx context.Context, payment *models.Payment) error {
	if payment.BalanceAmount+payment.CancelAmount == payment.TotalAmount &&
		payment.BalanceAmount >= 0 && payment.CancelAmount >= 0 {
		return nil
	}

	s.metrics.IncInvariantViolation()
	err := fmt.Errorf("balance=%d cancel=%d total=%d",
		payment.BalanceAmount, payment.CancelAmount, payment.TotalAmount)
	s.log.Error(
		s.log.WithField(ctx, "payment_id", payment.ID.String()),
		"payment ledger invariant violated",
		err,
	)
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment ledger invariant violated")
}
