package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/transport"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

type CatalogService struct {
	Repo      *repo.GormRepo
	Index     ProductIndex // nil falls back to SQL search
	Publisher Publisher
}

func (s *CatalogService) List(ctx context.Context, category string, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, strings.TrimSpace(category), offset, limit)
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) Search(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}
	if s.Index == nil {
		return s.Repo.SearchProducts(ctx, query, offset, limit)
	}

	total, items, err := s.Index.Search(ctx, query, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "reason", "falling back to sql", "error", err)
		return s.Repo.SearchProducts(ctx, query, offset, limit)
	}
	return total, items, nil
}

// changedColumns lists only the columns req sets, with the values applyProduct
// normalised onto p.
func changedColumns(p *models.Product, req transport.ProductRequest) map[string]any {
	cols := map[string]any{}
	if req.Name != nil {
		cols["name"] = p.Name
	}
	if req.Description != nil {
		cols["description"] = p.Description
	}
	if req.Category != nil {
		cols["category"] = p.Category
	}
	if req.Price != nil {
		cols["price"] = p.Price
	}
	if req.StockQuantity != nil {
		cols["stock_quantity"] = p.StockQuantity
	}
	if req.Images != nil {
		cols["images"] = p.Images
	}
	if req.Ingredients != nil {
		cols["ingredients"] = p.Ingredients
	}
	if req.ServingSize != nil {
		cols["serving_size"] = p.ServingSize
	}
	if req.HowToUse != nil {
		cols["how_to_use"] = p.HowToUse
	}
	return cols
}

// applyProduct copies the present fields of req onto p and validates the result.
func applyProduct(p *models.Product, req transport.ProductRequest) error {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.StockQuantity != nil {
		p.StockQuantity = *req.StockQuantity
	}
	if req.Images != nil {
		p.Images = pq.StringArray(req.Images)
	}
	if req.Ingredients != nil {
		p.Ingredients = models.Ingredients(req.Ingredients)
	}
	if req.ServingSize != nil {
		p.ServingSize = strings.TrimSpace(*req.ServingSize)
	}
	if req.HowToUse != nil {
		p.HowToUse = *req.HowToUse
	}

	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case p.Description == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case p.Category == "":
		return fmt.Errorf("%w: category is required", ErrValidation)
	case p.ServingSize == "":
		return fmt.Errorf("%w: serving_size is required", ErrValidation)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock_quantity must be >= 0", ErrValidation)
	}
	for _, ing := range p.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return fmt.Errorf("%w: ingredient name is required", ErrValidation)
		}
	}
	return nil
}

func (s *CatalogService) Create(ctx context.Context, req transport.ProductRequest) (*models.Product, error) {
	if req.Price == nil {
		return nil, fmt.Errorf("%w: price is required", ErrValidation)
	}
	if req.StockQuantity == nil {
		return nil, fmt.Errorf("%w: stock_quantity is required", ErrValidation)
	}

	p := &models.Product{Images: pq.StringArray{}, Ingredients: models.Ingredients{}}
	if err := applyProduct(p, req); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.reindex(ctx, p)
	publish(ctx, s.Publisher, events.TopicProduct, p.ID.String(), "product_created", productEventData(p))
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, req transport.ProductRequest) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	if err := applyProduct(p, req); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateProductFields(ctx, id, changedColumns(p, req)); err != nil {
		return nil, notFound(err, "product")
	}
	// stock may have moved since the read above
	if p, err = s.Repo.GetProduct(ctx, id); err != nil {
		return nil, notFound(err, "product")
	}

	s.reindex(ctx, p)
	publish(ctx, s.Publisher, events.TopicProduct, p.ID.String(), "product_updated", productEventData(p))
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product")
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Error("search_index_delete_error", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Publisher, events.TopicProduct, id.String(), "product_deleted", map[string]any{"product_id": id})
	return nil
}

// AddReview accepts one review per user for products they have bought.
func (s *CatalogService) AddReview(ctx context.Context, userID, productID uuid.UUID, req transport.ReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	ok, err := s.Repo.ProductExists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: product not found", ErrNotFound)
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}

	bought, err := s.Repo.HasPurchased(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !bought {
		return nil, fmt.Errorf("%w: only customers who bought this product can review it", ErrForbidden)
	}
	reviewed, err := s.Repo.HasReviewed(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if reviewed {
		return nil, fmt.Errorf("%w: product already reviewed", ErrConflict)
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    userID,
		UserName:  user.Name,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := s.Repo.AddReview(ctx, review); err != nil {
		return nil, conflict(err, "product already reviewed")
	}
	return review, nil
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Error("search_index_error", "product_id", p.ID, "error", err)
	}
}

func productEventData(p *models.Product) map[string]any {
	return map[string]any{
		"product_id":     p.ID,
		"name":           p.Name,
		"category":       p.Category,
		"price":          p.Price,
		"stock_quantity": p.StockQuantity,
	}
}
