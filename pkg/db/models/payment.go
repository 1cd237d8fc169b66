package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/pkg/enums"
	"github.com/evanhart/storefront-backend/pkg/types"
)

// Payment tracks money actually collected against an Order. TotalAmount is
// fixed at creation; BalanceAmount and CancelAmount are a cached projection of
// the transaction log and must always satisfy
// balance_amount + cancel_amount == total_amount.
type Payment struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	PaymentKey     *string              `gorm:"column:payment_key;uniqueIndex"`
	Status         enums.PaymentStatus  `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Method         *enums.PaymentMethod `gorm:"column:method;type:payment_method"`
	Currency       enums.Currency       `gorm:"column:currency;not null;default:'KRW'"`
	TotalAmount    int                  `gorm:"column:total_amount;not null"`
	BalanceAmount  int                  `gorm:"column:balance_amount;not null;default:0"`
	CancelAmount   int                  `gorm:"column:cancel_amount;not null;default:0"`
	VATAmount      int                  `gorm:"column:vat_amount;not null;default:0"`
	SuppliedAmount int                  `gorm:"column:supplied_amount;not null;default:0"`
	Card           *types.CardMetadata  `gorm:"column:card;type:jsonb;serializer:json"`
	Transactions   []PaymentTransaction `gorm:"foreignKey:PaymentID;constraint:OnDelete:RESTRICT"`
	ApprovedAt     *time.Time           `gorm:"column:approved_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCancelable reports whether any remaining balance can still be cancelled.
func (p Payment) IsCancelable() bool {
	return p.Status.IsCompleted() && p.BalanceAmount > 0
}

// CancelableAmount returns the balance still available to cancel.
func (p Payment) CancelableAmount() int {
	return p.BalanceAmount
}
