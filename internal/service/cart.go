package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

type CartService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
}

func emptyCart(userID uuid.UUID) *models.Cart {
	return &models.Cart{UserID: userID, TotalPrice: decimal.Zero, Items: []models.CartItem{}}
}

// GetCart returns the user's cart with products populated, or an empty cart
// when the user never added anything.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.GetCartByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return emptyCart(userID), nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		ok, err := tx.ProductExists(ctx, productID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: product not found", ErrNotFound)
		}

		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.UpsertCartItem(ctx, cart.ID, productID, qty); err != nil {
			return err
		}
		_, err = recomputeTotal(ctx, tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Publisher, events.TopicCart, userID.String(), "item_added", map[string]any{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   qty,
	})
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	var removed bool
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.LockCartByUser(ctx, userID)
		if err != nil {
			return notFound(err, "cart")
		}

		removed, err = tx.RemoveCartItem(ctx, cart.ID, productID, qty)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: item not in cart", ErrValidation)
		}
		if err != nil {
			return err
		}
		_, err = recomputeTotal(ctx, tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Publisher, events.TopicCart, userID.String(), "item_removed", map[string]any{
		"user_id":      userID,
		"product_id":   productID,
		"quantity":     qty,
		"line_removed": removed,
	})
	return s.GetCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.LockCartByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		return err
	}

	publish(ctx, s.Publisher, events.TopicCart, userID.String(), "cart_cleared", map[string]any{
		"user_id": userID,
	})
	return nil
}

// recomputeTotal re-reads current prices for every line and stores the sum.
// Lines whose product was deleted are left out.
func recomputeTotal(ctx context.Context, tx *repo.GormRepo, cartID uuid.UUID) (decimal.Decimal, error) {
	l := logging.FromContext(ctx)

	items, err := tx.CartItems(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := tx.GetProductsByIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			l.Warn("cart_total_missing_product", "cart_id", cartID, "product_id", it.ProductID)
			continue
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	if err := tx.SetCartTotal(ctx, cartID, total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
