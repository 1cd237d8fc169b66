package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a frozen copy of a cart line at checkout time.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ProductName    string     `gorm:"column:product_name;not null"`
	Quantity       int        `gorm:"column:quantity;not null"`
	PriceAmount    int        `gorm:"column:price_amount;not null"`
	DiscountAmount int        `gorm:"column:discount_amount;not null;default:0"`
	TotalAmount    int        `gorm:"column:total_amount;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
