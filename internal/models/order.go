package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type ShippingAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type Order struct {
	Base
	UserID            uuid.UUID       `gorm:"type:uuid;index;not null"           json:"user_id"`
	OrderNumber       string          `gorm:"uniqueIndex;not null"               json:"order_number"`
	TotalAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"total_amount"`
	Status            OrderStatus     `gorm:"size:16;not null;default:pending"   json:"status"`
	PaymentStatus     PaymentStatus   `gorm:"size:16;not null;default:pending"   json:"payment_status"`
	PaymentIntentID   string          `gorm:"index"                              json:"payment_intent_id,omitempty"`
	CheckoutSessionID string          `gorm:"index"                              json:"checkout_session_id,omitempty"`
	Backordered       bool            `gorm:"not null;default:false"             json:"backordered"`
	ShippingAddress   ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"  json:"shipping_address"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// OrderItem is a snapshot of a product at purchase time.
type OrderItem struct {
	Base
	OrderID     uuid.UUID       `gorm:"type:uuid;index;not null"    json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;index;not null"    json:"product_id"`
	Name        string          `gorm:"not null"                    json:"name"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Backordered bool            `gorm:"not null;default:false"      json:"backordered"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
