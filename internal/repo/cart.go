package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/veritas_shop/internal/models"
)

func (r *GormRepo) GetCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("added_at ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// LockCart loads a cart with its items and takes a row lock where supported.
func (r *GormRepo) LockCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", cartID).First(&cart).Error; err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Order("added_at ASC").Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) LockCartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := r.LockCartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &models.Cart{UserID: userID, TotalPrice: decimal.Zero}
	if err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(cart).Error; err != nil {
		return nil, err
	}
	return r.LockCartByUser(ctx, userID)
}

// UpsertCartItem adds qty to an existing line or appends a new one.
func (r *GormRepo) UpsertCartItem(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.CartItem, error) {
	var item models.CartItem
	res := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		if err := r.DB.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil
	}

	item = models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
		AddedAt:   time.Now().UTC(),
	}
	if err := r.DB.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveCartItem drops qty units of a line and deletes the line when nothing
// is left. gorm.ErrRecordNotFound means the product is not in the cart.
func (r *GormRepo) RemoveCartItem(ctx context.Context, cartID, productID uuid.UUID, qty int) (removed bool, err error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error; err != nil {
		return false, err
	}

	if qty >= item.Quantity {
		if err := r.DB.WithContext(ctx).Delete(&item).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	if err := r.DB.WithContext(ctx).Model(&item).Update("quantity", gorm.Expr("quantity - ?", qty)).Error; err != nil {
		return false, err
	}
	return false, nil
}

func (r *GormRepo) CartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Order("added_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if err := r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.SetCartTotal(ctx, cartID, decimal.Zero)
}

func (r *GormRepo) SetCartTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", cartID).
		Updates(map[string]any{"total_price": total, "updated_at": time.Now().UTC()}).Error
}
