// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/pkg/db"
	"github.com/Skotchmaster/veritas_shop/pkg/hash"
)

// NewDB opens a private in-memory SQLite database with all tables migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := db.Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(models.All()...))

	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func CreateUser(t testing.TB, gdb *gorm.DB, email, role string) *models.User {
	t.Helper()

	pw, err := hash.HashPassword("password123")
	require.NoError(t, err)

	u := &models.User{
		Name:            "Test " + role,
		Email:           email,
		PasswordHash:    pw,
		Role:            role,
		IsEmailVerified: true,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func CreateProduct(t testing.TB, gdb *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:          name,
		Description:   name + " description",
		Category:      "skincare",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Images:        pq.StringArray{},
		ServingSize:   "50ml",
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

// CreateCart builds a cart for userID with the given product quantities and a
// total computed from current prices.
func CreateCart(t testing.TB, gdb *gorm.DB, userID uuid.UUID, lines map[*models.Product]int) *models.Cart {
	t.Helper()

	total := decimal.Zero
	cart := &models.Cart{UserID: userID}
	require.NoError(t, gdb.Create(cart).Error)

	for p, qty := range lines {
		item := models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: qty}
		require.NoError(t, gdb.Create(&item).Error)
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	require.NoError(t, gdb.Model(cart).Update("total_price", total).Error)
	cart.TotalPrice = total
	return cart
}

func PlanPtr(s string) *string { return &s }
