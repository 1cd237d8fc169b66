package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/evanhart/storefront-backend/pkg/enums"
)

// UserCoupon is a per-user issuance record. One row per (user, coupon) pair.
type UserCoupon struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_coupons_user_coupon"`
	CouponID  uuid.UUID              `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:idx_user_coupons_user_coupon"`
	Status    enums.UserCouponStatus `gorm:"column:status;type:user_coupon_status;not null;default:'available'"`
	UsedAt    *time.Time             `gorm:"column:used_at"`
	Coupon    *Coupon                `gorm:"foreignKey:CouponID"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
