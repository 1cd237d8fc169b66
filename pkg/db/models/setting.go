package models

import "time"

// Setting is an operator-tunable storefront value keyed by name. Reads go
// through a short-lived cache, so writes may take up to the cache TTL to be
// visible everywhere.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
