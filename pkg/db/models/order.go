package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/pkg/enums"
	"github.com/evanhart/storefront-backend/pkg/types"
)

// Order is the immutable financial snapshot created at checkout. Customer and
// shipping fields are copied by value so later account edits never rewrite
// history. Status is the only mutable field.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string            `gorm:"column:order_number;not null;uniqueIndex"`
	UserID          *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Currency        enums.Currency    `gorm:"column:currency;not null;default:'KRW'"`
	SubtotalAmount  int               `gorm:"column:subtotal_amount;not null"`
	ShippingCost    int               `gorm:"column:shipping_cost;not null;default:0"`
	CouponDiscount  int               `gorm:"column:coupon_discount;not null;default:0"`
	TotalAmount     int               `gorm:"column:total_amount;not null"`
	CouponID        *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	CustomerEmail   string            `gorm:"column:customer_email;not null;default:''"`
	CustomerPhone   string            `gorm:"column:customer_phone;not null;default:''"`
	ShippingAddress types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	RefundedAt      *time.Time        `gorm:"column:refunded_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
