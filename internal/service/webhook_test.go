package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/cache"
	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/payment"
	"github.com/Skotchmaster/veritas_shop/internal/plans"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/testutil"
)

const webhookSecret = "whsec_service_test"

func newWebhookService(t *testing.T) (*WebhookService, *gorm.DB, *fakePublisher) {
	t.Helper()
	gdb := testutil.NewDB(t)
	pub := &fakePublisher{}
	return &WebhookService{
		Repo:      repo.New(gdb),
		Verifier:  payment.NewVerifier(webhookSecret),
		Plans:     plans.MustDefault(),
		Locker:    &fakeLocker{},
		Publisher: pub,
		Currency:  "usd",
	}, gdb, pub
}

func checkoutEvent(t *testing.T, eventID, eventType string, metadata map[string]string) []byte {
	t.Helper()
	return paidEvent(t, eventID, eventType, metadata, 2500, "usd")
}

func paidEvent(t *testing.T, eventID, eventType string, metadata map[string]string, amount int64, currency string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":     eventID,
		"object": "event",
		"type":   eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":             "cs_" + eventID,
				"object":         "checkout.session",
				"payment_intent": "pi_" + eventID,
				"amount_total":   amount,
				"currency":       currency,
				"metadata":       metadata,
			},
		},
	})
	require.NoError(t, err)
	return body
}

func signed(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func countOrders(t *testing.T, gdb *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&models.Order{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func stockOf(t *testing.T, gdb *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, gdb.First(&p, "id = ?", id).Error)
	return p.StockQuantity
}

func TestWebhook_CartPaymentCreatesOrder(t *testing.T) {
	t.Parallel()
	svc, gdb, pub := newWebhookService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "paid@example.com", models.RoleUser)
	a := testutil.CreateProduct(t, gdb, "A", "10.00", 5)
	b := testutil.CreateProduct(t, gdb, "B", "5.00", 3)
	cart := testutil.CreateCart(t, gdb, user.ID, map[*models.Product]int{a: 2, b: 1})

	payload := checkoutEvent(t, "evt_cart_1", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID: user.ID.String(),
		payment.MetaCartID: cart.ID.String(),
	})
	res, err := svc.Handle(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderCreated, res.Outcome)
	assert.Equal(t, "Order created", res.Message)
	require.NotNil(t, res.Order)

	order, err := repo.New(gdb).GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(dec("25")), order.TotalAmount.String())
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, "pi_evt_cart_1", order.PaymentIntentID)
	assert.Equal(t, "cs_evt_cart_1", order.CheckoutSessionID)
	assert.Regexp(t, `^ORD-[0-9A-Z]{26}$`, order.OrderNumber)
	assert.Len(t, order.Items, 2)
	assert.False(t, order.Backordered)

	assert.Equal(t, 3, stockOf(t, gdb, a.ID))
	assert.Equal(t, 2, stockOf(t, gdb, b.ID))

	var items int64
	require.NoError(t, gdb.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&items).Error)
	assert.Zero(t, items)
	var fresh models.Cart
	require.NoError(t, gdb.First(&fresh, "id = ?", cart.ID).Error)
	assert.True(t, fresh.TotalPrice.IsZero())

	history, err := repo.New(gdb).ListPurchaseHistory(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	ev, err := repo.New(gdb).GetProcessedEvent(ctx, "evt_cart_1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderCreated, ev.Outcome)

	assert.Equal(t, []string{"order_created"}, pub.types(events.TopicOrder))
}

func TestWebhook_DuplicateEventIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, gdb, _ := newWebhookService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "twice@example.com", models.RoleUser)
	a := testutil.CreateProduct(t, gdb, "A", "10.00", 5)
	cart := testutil.CreateCart(t, gdb, user.ID, map[*models.Product]int{a: 1})

	payload := checkoutEvent(t, "evt_dup", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID: user.ID.String(),
		payment.MetaCartID: cart.ID.String(),
	})
	first, err := svc.Handle(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderCreated, first.Outcome)

	// The user refills the cart before the provider retries the same event.
	require.NoError(t, gdb.Create(&models.CartItem{CartID: cart.ID, ProductID: a.ID, Quantity: 2}).Error)

	second, err := svc.Handle(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, "Event already processed", second.Message)

	assert.EqualValues(t, 1, countOrders(t, gdb, user.ID))
	assert.Equal(t, 4, stockOf(t, gdb, a.ID))
}

func TestWebhook_ConcurrentDeliveries(t *testing.T) {
	t.Parallel()
	svc, gdb, _ := newWebhookService(t)
	svc.Locker = nil
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "race@example.com", models.RoleUser)
	a := testutil.CreateProduct(t, gdb, "A", "2.00", 50)
	cart := testutil.CreateCart(t, gdb, user.ID, map[*models.Product]int{a: 3})

	payload := checkoutEvent(t, "evt_race", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID: user.ID.String(),
		payment.MetaCartID: cart.ID.String(),
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Handle(ctx, payload, signed(payload))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, countOrders(t, gdb, user.ID))
	assert.Equal(t, 47, stockOf(t, gdb, a.ID))
}

func TestWebhook_LockHeldReturnsConflict(t *testing.T) {
	t.Parallel()
	svc, gdb, _ := newWebhookService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "locked@example.com", models.RoleUser)
	a := testutil.CreateProduct(t, gdb, "A", "2.00", 5)
	cart := testutil.CreateCart(t, gdb, user.ID, map[*models.Product]int{a: 1})

	locker := svc.Locker.(*fakeLocker)
	_, err := locker.TryLock(ctx, cache.WebhookLockKey("evt_locked"), time.Minute)
	require.NoError(t, err)

	payload := checkoutEvent(t, "evt_locked", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID: user.ID.String(),
		payment.MetaCartID: cart.ID.String(),
	})
	_, err = svc.Handle(ctx, payload, signed(payload))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, countOrders(t, gdb, user.ID))
}

func TestWebhook_BackorderedLines(t *testing.T) {
	t.Parallel()
	svc, gdb, pub := newWebhookService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "late@example.com", models.RoleUser)
	plenty := testutil.CreateProduct(t, gdb, "Plenty", "1.00", 10)
	scarce := testutil.CreateProduct(t, gdb, "Scarce", "8.00", 1)
	cart := testutil.CreateCart(t, gdb, user.ID, map[*models.Product]int{plenty: 2, scarce: 3})

	payload := checkoutEvent(t, "evt_back", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID: user.ID.String(),
		payment.MetaCartID: cart.ID.String(),
	})
	res, err := svc.Handle(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderCreated, res.Outcome)

	order, err := repo.New(gdb).GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, order.Backordered)
	assert.True(t, order.TotalAmount.Equal(dec("26")))
	for _, it := range order.Items {
		assert.Equal(t, it.ProductID == scarce.ID, it.Backordered, it.Name)
	}

	assert.Equal(t, 8, stockOf(t, gdb, plenty.ID))
	assert.Equal(t, 1, stockOf(t, gdb, scarce.ID), "stock never goes negative")
	assert.Equal(t, []string{"order_created", "order_backordered"}, pub.types(events.TopicOrder))
}

func TestWebhook_EmptyCartAcknowledged(t *testing.T) {
	t.Parallel()
	svc, gdb, _ := newWebhookService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "gone@example.com", models.RoleUser)
	cart := testutil.CreateCart(t, gdb, user.ID, map[*models.Product]int{})

	payload := checkoutEvent(t, "evt_empty", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID: user.ID.String(),
		payment.MetaCartID: cart.ID.String(),
	})
	res, err := svc.Handle(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCartEmpty, res.Outcome)
	assert.Nil(t, res.Order)
	assert.Zero(t, countOrders(t, gdb, user.ID))

	ev, err := repo.New(gdb).GetProcessedEvent(ctx, "evt_empty")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCartEmpty, ev.Outcome)
}

func TestWebhook_PlanActivation(t *testing.T) {
	t.Parallel()
	svc, gdb, pub := newWebhookService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "member@example.com", models.RoleUser)

	payload := checkoutEvent(t, "evt_plan", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID:   user.ID.String(),
		payment.MetaPlanName: "Veritas Glow",
	})
	res, err := svc.Handle(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomePlanActivated, res.Outcome)
	assert.Equal(t, "Veritas Glow", res.Plan)

	var fresh models.User
	require.NoError(t, gdb.First(&fresh, "id = ?", user.ID).Error)
	require.True(t, fresh.HasPlan())
	assert.Equal(t, "Veritas Glow", *fresh.Plan)
	assert.Equal(t, []string{"plan_activated"}, pub.types(events.TopicUser))

	again, err := svc.Handle(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, again.Outcome)
	assert.Len(t, pub.types(events.TopicUser), 1)
}

func TestWebhook_Rejections(t *testing.T) {
	t.Parallel()
	svc, gdb, _ := newWebhookService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "rej@example.com", models.RoleUser)
	other := testutil.CreateUser(t, gdb, "other@example.com", models.RoleUser)
	p := testutil.CreateProduct(t, gdb, "P", "1.00", 1)
	cart := testutil.CreateCart(t, gdb, other.ID, map[*models.Product]int{p: 1})

	valid := checkoutEvent(t, "evt_sig", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID: user.ID.String(),
		payment.MetaCartID: cart.ID.String(),
	})

	tests := []struct {
		name      string
		payload   []byte
		signature string
		want      error
	}{
		{name: "missing header", payload: valid, signature: "", want: ErrValidation},
		{name: "garbage header", payload: valid, signature: "t=1,v1=deadbeef", want: ErrValidation},
		{
			name:      "tampered body",
			payload:   append([]byte(nil), valid[:len(valid)-1]...),
			signature: signed(valid),
			want:      ErrValidation,
		},
		{
			name: "cart owned by someone else",
			payload: checkoutEvent(t, "evt_owner", payment.EventCheckoutCompleted, map[string]string{
				payment.MetaUserID: user.ID.String(),
				payment.MetaCartID: cart.ID.String(),
			}),
			want: ErrNotFound,
		},
		{
			name: "unknown user",
			payload: checkoutEvent(t, "evt_nouser", payment.EventCheckoutCompleted, map[string]string{
				payment.MetaUserID: uuid.NewString(),
				payment.MetaCartID: cart.ID.String(),
			}),
			want: ErrNotFound,
		},
		{
			name: "malformed user id",
			payload: checkoutEvent(t, "evt_baduser", payment.EventCheckoutCompleted, map[string]string{
				payment.MetaUserID:   "not-a-uuid",
				payment.MetaPlanName: "Veritas Glow",
			}),
			want: ErrNotFound,
		},
		{
			name: "unknown plan",
			payload: checkoutEvent(t, "evt_badplan", payment.EventCheckoutCompleted, map[string]string{
				payment.MetaUserID:   user.ID.String(),
				payment.MetaPlanName: "Veritas Diamond",
			}),
			want: ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := tt.signature
			if sig == "" && tt.name != "missing header" {
				sig = signed(tt.payload)
			}
			_, err := svc.Handle(ctx, tt.payload, sig)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, countOrders(t, gdb, user.ID))
	assert.Zero(t, countOrders(t, gdb, other.ID))
	assert.Equal(t, 1, stockOf(t, gdb, p.ID))
	_, err := repo.New(gdb).GetProcessedEvent(ctx, "evt_owner")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "failed deliveries leave no ledger row")
}

func TestWebhook_AcknowledgedWithoutAction(t *testing.T) {
	t.Parallel()
	svc, gdb, _ := newWebhookService(t)
	ctx := context.Background()

	ignored := checkoutEvent(t, "evt_other", "payment_intent.succeeded", nil)
	res, err := svc.Handle(ctx, ignored, signed(ignored))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, "Event received", res.Message)

	bare := checkoutEvent(t, "evt_bare", payment.EventCheckoutCompleted, map[string]string{"foo": "bar"})
	res, err = svc.Handle(ctx, bare, signed(bare))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoAction, res.Outcome)

	var n int64
	require.NoError(t, gdb.Model(&models.ProcessedEvent{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestWebhook_NotConfigured(t *testing.T) {
	t.Parallel()
	svc, _, _ := newWebhookService(t)
	svc.Verifier = payment.NewVerifier("")

	_, err := svc.Handle(context.Background(), []byte(`{}`), "t=1,v1=x")
	assert.ErrorIs(t, err, ErrWebhookNotConfigured)
}

func TestWebhook_PaidMismatchStillCreatesOrder(t *testing.T) {
	t.Parallel()
	svc, gdb, _ := newWebhookService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, gdb, "mismatch@example.com", models.RoleUser)
	a := testutil.CreateProduct(t, gdb, "A", "10.00", 5)
	cart := testutil.CreateCart(t, gdb, user.ID, map[*models.Product]int{a: 1})

	payload := paidEvent(t, "evt_mismatch", payment.EventCheckoutCompleted, map[string]string{
		payment.MetaUserID: user.ID.String(),
		payment.MetaCartID: cart.ID.String(),
	}, 900, "eur")
	res, err := svc.Handle(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderCreated, res.Outcome)
	assert.EqualValues(t, 1, countOrders(t, gdb, user.ID))
	assert.Equal(t, 4, stockOf(t, gdb, a.ID))
}

func TestWebhook_CheckPaid(t *testing.T) {
	t.Parallel()
	svc := &WebhookService{Currency: "usd"}
	order := &models.Order{TotalAmount: dec("25.00")}

	tests := []struct {
		name     string
		amount   int64
		currency string
		want     []string
	}{
		{name: "match", amount: 2500, currency: "usd"},
		{name: "currency case ignored", amount: 2500, currency: "USD"},
		{name: "no currency on event", amount: 2500},
		{name: "amount", amount: 2499, currency: "usd", want: []string{"amount"}},
		{name: "currency", amount: 2500, currency: "eur", want: []string{"currency"}},
		{name: "both", amount: 1, currency: "eur", want: []string{"amount", "currency"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &payment.Event{ID: "evt", AmountTotal: tt.amount, Currency: tt.currency}
			assert.Equal(t, tt.want, svc.checkPaid(context.Background(), ev, order))
		})
	}
}
