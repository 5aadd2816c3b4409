package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/plans"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/testutil"
	"github.com/Skotchmaster/veritas_shop/pkg/hash"
)

func TestEnsureAdmin_Creates(t *testing.T) {
	ctx := context.Background()
	r := repo.New(testutil.NewDB(t))

	u, created, err := ensureAdmin(ctx, r, "Ops", " OPS@Example.com ", "long-enough")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ops@example.com", u.Email)

	got, err := r.GetUserByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.True(t, got.IsEmailVerified)
	assert.True(t, hash.CheckPassword(got.PasswordHash, "long-enough"))
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	r := repo.New(gdb)
	existing := testutil.CreateUser(t, gdb, "ann@example.com", models.RoleUser)
	require.NoError(t, gdb.Model(existing).Update("is_banned", true).Error)

	u, created, err := ensureAdmin(ctx, r, "", "ann@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, u.ID)

	got, err := r.GetUserByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.False(t, got.IsBanned)
}

func TestEnsureAdmin_Rejects(t *testing.T) {
	r := repo.New(testutil.NewDB(t))

	_, _, err := ensureAdmin(context.Background(), r, "Ops", "not-an-email", "long-enough")
	assert.Error(t, err)

	_, _, err = ensureAdmin(context.Background(), r, "Ops", "ops@example.com", "short")
	assert.ErrorContains(t, err, "at least")
}

type fakeBulk struct {
	added   int
	batches int
	failAdd bool
}

func (f *fakeBulk) Add(ctx context.Context, products []models.Product) error {
	if f.failAdd {
		return errors.New("indexer closed")
	}
	f.batches++
	f.added += len(products)
	return nil
}

func (f *fakeBulk) Close(ctx context.Context) (uint64, int64, error) {
	return uint64(f.added), 0, nil
}

func TestReindex(t *testing.T) {
	gdb := testutil.NewDB(t)
	for _, name := range []string{"Serum", "Mask", "Cleanser", "Toner", "Balm"} {
		testutil.CreateProduct(t, gdb, name, "10.00", 1)
	}

	bulk := &fakeBulk{}
	indexed, failed, err := reindex(context.Background(), repo.New(gdb), bulk, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, indexed)
	assert.Zero(t, failed)
	assert.Equal(t, 3, bulk.batches)

	_, _, err = reindex(context.Background(), repo.New(gdb), &fakeBulk{failAdd: true}, 2)
	assert.ErrorContains(t, err, "read products")
}

func TestPrintPlans(t *testing.T) {
	table := plans.MustDefault()

	var buf bytes.Buffer
	require.NoError(t, printPlans(&buf, table, false))
	assert.Contains(t, buf.String(), "Veritas Sculpt")
	assert.Contains(t, buf.String(), "89.00 USD")

	buf.Reset()
	require.NoError(t, printPlans(&buf, table, true))
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, len(table.Plans))
	assert.Equal(t, "Veritas Glow", out[0]["tier"])
}
