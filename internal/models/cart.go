package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	Base
	UserID     uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"     json:"user_id"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"total_price"`
	Items      []CartItem      `gorm:"foreignKey:CartID"                  json:"items"`
}

type CartItem struct {
	Base
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1;check:quantity > 0"          json:"quantity"`
	AddedAt   time.Time `gorm:"not null"                                       json:"added_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
