package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a product line inside a Cart. Price and discount are captured at
// the moment the line is added and are not live-linked to the catalog row.
type CartItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductName    string    `gorm:"column:product_name;not null"`
	Category       string    `gorm:"column:category;not null;default:''"`
	Quantity       int       `gorm:"column:quantity;not null"`
	PriceAmount    int       `gorm:"column:price_amount;not null"`
	DiscountAmount int       `gorm:"column:discount_amount;not null;default:0"`
	TotalAmount    int       `gorm:"column:total_amount;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotal computes (price - discount) * quantity for the captured snapshot.
func (i CartItem) LineTotal() int {
	return (i.PriceAmount - i.DiscountAmount) * i.Quantity
}
