package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/evanhart/storefront-backend/pkg/enums"
)

// Coupon is an operator-created discount rule. UsageCount is incremented
// exactly once per successful redemption and never decremented, even when the
// redeeming order is later cancelled or refunded.
type Coupon struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                 string                   `gorm:"column:code;not null;uniqueIndex"`
	Name                 string                   `gorm:"column:name;not null"`
	DiscountType         enums.CouponDiscountType `gorm:"column:discount_type;type:coupon_discount_type;not null"`
	DiscountValue        int                      `gorm:"column:discount_value;not null"`
	MinPurchaseAmount    int                      `gorm:"column:min_purchase_amount;not null;default:0"`
	MaxDiscountAmount    *int                     `gorm:"column:max_discount_amount"`
	ApplicableCategories pq.StringArray           `gorm:"column:applicable_categories;type:text[]"`
	UsageLimit           *int                     `gorm:"column:usage_limit"`
	UsageCount           int                      `gorm:"column:usage_count;not null;default:0"`
	ValidFrom            *time.Time               `gorm:"column:valid_from"`
	ValidUntil           *time.Time               `gorm:"column:valid_until"`
	// No default tag: gorm drops zero-value defaulted fields from the
	// INSERT, which would silently flip a deactivated coupon to active.
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAvailableAt reports whether the coupon can be attached at the given
// instant: active flag, validity window (open-ended bounds unconstrained), and
// usage cap. Discount magnitude is a separate concern.
func (c Coupon) IsAvailableAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return false
	}
	return true
}
