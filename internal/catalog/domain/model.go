package domain

import "time"

type Kind string

const (
	KindProduct  Kind = "PRODUCT"
	KindMaterial Kind = "MATERIAL"
)

func (k Kind) Valid() bool {
	return k == KindProduct || k == KindMaterial
}

// Variant is a stock-keeping unit that owns at most one inventory record.
type Variant struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	SKU       string    `json:"sku" gorm:"type:varchar(64);not null;uniqueIndex:ux_variants_sku"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Kind      Kind      `json:"kind" gorm:"type:varchar(16);not null"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Variant) TableName() string { return "variants" }
