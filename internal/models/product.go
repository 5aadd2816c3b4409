package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Product struct {
	Base
	Name          string          `gorm:"not null;index"                        json:"name"`
	Description   string          `gorm:"type:text;not null"                    json:"description"`
	Category      string          `gorm:"index;not null"                        json:"category"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null"           json:"price"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	Images        pq.StringArray  `gorm:"type:text"                             json:"images"`
	Ingredients   Ingredients     `gorm:"type:text"                             json:"ingredients"`
	ServingSize   string          `json:"serving_size"`
	HowToUse      string          `gorm:"type:text"                             json:"how_to_use"`

	Reviews []Review `gorm:"foreignKey:ProductID" json:"reviews,omitempty"`
}

type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Ingredients is stored as a JSON document in a text column.
type Ingredients []Ingredient

func (i Ingredients) Value() (driver.Value, error) {
	if i == nil {
		return "[]", nil
	}
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (i *Ingredients) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*i = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("ingredients: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*i = nil
		return nil
	}
	return json.Unmarshal(raw, i)
}

type Review struct {
	Base
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_product_user;not null" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_product_user;not null" json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5"             json:"rating"`
	Comment   string    `gorm:"type:text"                                              json:"comment"`
}
