package search

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/veritas_shop/internal/models"
)

type document struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Images        []string        `json:"images"`
}

func toDocument(p *models.Product) document {
	return document{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Images:        p.Images,
	}
}

func (d document) toProduct() models.Product {
	p := models.Product{
		Name:          d.Name,
		Description:   d.Description,
		Category:      d.Category,
		Price:         d.Price,
		StockQuantity: d.StockQuantity,
		Images:        pq.StringArray(d.Images),
	}
	p.ID = d.ID
	return p
}
