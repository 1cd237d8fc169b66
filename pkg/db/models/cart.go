package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/pkg/enums"
)

// Cart belongs to either a user or an anonymous session, never both. The
// aggregate fields (TotalItems, SubtotalAmount, DiscountAmount, TotalAmount)
// are a cached projection recomputed transactionally from the item list and
// the attached coupon; the items plus the coupon rule are the source of truth.
type Cart struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID       `gorm:"column:user_id;type:uuid"`
	SessionID      *string          `gorm:"column:session_id"`
	Status         enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	CouponID       *uuid.UUID       `gorm:"column:coupon_id;type:uuid"`
	Coupon         *Coupon          `gorm:"foreignKey:CouponID"`
	Currency       enums.Currency   `gorm:"column:currency;not null;default:'KRW'"`
	TotalItems     int              `gorm:"column:total_items;not null;default:0"`
	SubtotalAmount int              `gorm:"column:subtotal_amount;not null;default:0"`
	DiscountAmount int              `gorm:"column:discount_amount;not null;default:0"`
	TotalAmount    int              `gorm:"column:total_amount;not null;default:0"`
	Items          []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	LastActivityAt time.Time        `gorm:"column:last_activity_at;not null"`
	ConvertedAt    *time.Time       `gorm:"column:converted_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the cart is keyed by an anonymous session.
func (c Cart) IsGuest() bool {
	return c.UserID == nil
}
