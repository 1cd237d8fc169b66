package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the minimal catalog row the checkout core reads: pricing for
// snapshots and stock for quantity validation. Catalog management itself lives
// outside this service.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	Category       string    `gorm:"column:category;not null;default:''"`
	PriceAmount    int       `gorm:"column:price_amount;not null"`
	DiscountAmount int       `gorm:"column:discount_amount;not null;default:0"`
	StockQuantity  int       `gorm:"column:stock_quantity;not null;default:0"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
