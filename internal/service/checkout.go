package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/metrics"
	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/payment"
	"github.com/Skotchmaster/veritas_shop/internal/plans"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

type CheckoutService struct {
	Repo      *repo.GormRepo
	Payments  PaymentProvider
	Plans     *plans.Table
	Publisher Publisher
}

var hundred = decimal.NewFromInt(100)

// minorUnits converts a major-unit price to cents, rounding half away from zero.
func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// CheckoutCart opens a hosted payment session for the user's current cart.
// Nothing changes locally until the provider confirms the payment.
func (s *CheckoutService) CheckoutCart(ctx context.Context, userID uuid.UUID) (*payment.Session, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.cart", "user_id", userID)

	cart, err := s.Repo.GetCartByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	items := make([]payment.LineItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		if it.Product == nil {
			l.Warn("checkout_missing_product", "product_id", it.ProductID)
			continue
		}
		items = append(items, payment.LineItem{
			Name:        it.Product.Name,
			Description: it.Product.Description,
			UnitAmount:  minorUnits(it.Product.Price),
			Quantity:    int64(it.Quantity),
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	session, err := s.Payments.CreateCheckoutSession(ctx, payment.SessionRequest{
		Items: items,
		Metadata: map[string]string{
			payment.MetaUserID: userID.String(),
			payment.MetaCartID: cart.ID.String(),
		},
	})
	if err != nil {
		metrics.IncCheckoutSession("cart", "error")
		return nil, err
	}

	metrics.IncCheckoutSession("cart", "created")
	l.Info("checkout_session_created", "session_id", session.ID, "cart_id", cart.ID)
	return session, nil
}

// CheckoutPlan opens a payment session for a membership tier.
func (s *CheckoutService) CheckoutPlan(ctx context.Context, userID uuid.UUID, planName string) (*payment.Session, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.plan", "user_id", userID)

	plan, ok := s.Plans.Resolve(planName)
	if !ok {
		return nil, fmt.Errorf("%w: plan %q not found", ErrNotFound, planName)
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if user.HasPlan() {
		return nil, fmt.Errorf("%w: user already has plan %s", ErrConflict, *user.Plan)
	}

	customerID, err := s.Payments.CreateCustomer(ctx, user.Email, user.Name, map[string]string{
		payment.MetaUserID: user.ID.String(),
	})
	if err != nil {
		metrics.IncCheckoutSession("plan", "error")
		return nil, err
	}

	session, err := s.Payments.CreateCheckoutSession(ctx, payment.SessionRequest{
		CustomerID: customerID,
		Items: []payment.LineItem{{
			Name:        plan.Tier,
			Description: plan.Description,
			UnitAmount:  minorUnits(plan.Price),
			Quantity:    1,
		}},
		Metadata: map[string]string{
			payment.MetaUserID:   user.ID.String(),
			payment.MetaPlanName: plan.Tier,
		},
	})
	if err != nil {
		metrics.IncCheckoutSession("plan", "error")
		return nil, err
	}

	metrics.IncCheckoutSession("plan", "created")
	l.Info("plan_checkout_session_created", "session_id", session.ID, "plan", plan.Tier)
	return session, nil
}

// BuyCart creates an order straight from the cart without a payment session.
// The order stays in payment status pending.
func (s *CheckoutService) BuyCart(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var res *fulfillment
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return notFound(err, "user")
		}
		cart, err := tx.LockCartByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: cart is empty", ErrValidation)
		}
		if err != nil {
			return err
		}
		if cart.Items, err = tx.CartItems(ctx, cart.ID); err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return fmt.Errorf("%w: cart is empty", ErrValidation)
		}

		res, err = fulfillCart(ctx, tx, userID, cart, orderPayment{Status: models.PaymentStatusPending})
		return err
	})
	if err != nil {
		return nil, err
	}

	afterOrder(ctx, s.Publisher, res, "direct", s.Payments.Currency())
	return res.Order, nil
}

// afterOrder runs the post-commit side effects of a new order.
func afterOrder(ctx context.Context, p Publisher, res *fulfillment, source, currency string) {
	o := res.Order
	metrics.ObserveOrder(source, currency, o.TotalAmount)
	metrics.AddBackordered(len(res.Backordered))

	publish(ctx, p, events.TopicOrder, o.UserID.String(), "order_created", orderEventData(o))
	if len(res.Backordered) > 0 {
		lines := make([]map[string]any, 0, len(res.Backordered))
		for _, it := range res.Backordered {
			lines = append(lines, map[string]any{"product_id": it.ProductID, "quantity": it.Quantity})
		}
		publish(ctx, p, events.TopicOrder, o.UserID.String(), "order_backordered", map[string]any{
			"order_id":     o.ID,
			"order_number": o.OrderNumber,
			"lines":        lines,
		})
	}
	logging.FromContext(ctx).Info("order_created",
		"order_number", o.OrderNumber, "source", source, "total", o.TotalAmount.StringFixed(2), "backordered", o.Backordered)
}
