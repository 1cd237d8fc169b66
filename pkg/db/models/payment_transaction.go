package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/pkg/enums"
)

// PaymentTransaction is an append-only audit row for a single money movement.
// Rows are never updated or deleted; the Payment projection is derived from
// this log.
type PaymentTransaction struct {
	ID          uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID   uuid.UUID                    `gorm:"column:payment_id;type:uuid;not null"`
	Type        enums.PaymentTransactionType `gorm:"column:type;type:payment_transaction_type;not null"`
	Amount      int                          `gorm:"column:amount;not null"`
	Reason      *string                      `gorm:"column:reason"`
	ProcessedAt time.Time                    `gorm:"column:processed_at;not null"`
	CreatedAt   time.Time                    `gorm:"column:created_at;autoCreateTime"`
}
