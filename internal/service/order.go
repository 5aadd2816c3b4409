package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

type OrderService struct {
	Repo *repo.GormRepo
}

func NewOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order")
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, offset, limit)
}

func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Order, error) {
	return s.Repo.ListUserOrders(ctx, userID, offset, limit)
}

// UpdateStatus sets any status from the fixed set. Transitions are not restricted.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return nil, fmt.Errorf("%w: status is required", ErrValidation)
	}
	st := models.OrderStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}

	if err := s.Repo.UpdateOrderStatus(ctx, id, st); err != nil {
		return nil, notFound(err, "order")
	}
	logging.FromContext(ctx).Info("order_status_updated", "order_id", id, "order_status", st)
	return s.Get(ctx, id)
}

func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteOrder(ctx, id); err != nil {
		return notFound(err, "order")
	}
	return nil
}

type orderPayment struct {
	Status          models.PaymentStatus
	PaymentIntentID string
	SessionID       string
}

type fulfillment struct {
	Order       *models.Order
	Backordered []models.OrderItem
}

// fulfillCart turns the locked cart into an order inside tx: it snapshots the
// lines, writes purchase history, decrements stock where enough is left and
// empties the cart. Lines whose stock ran out are flagged backordered.
func fulfillCart(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID, cart *models.Cart, pay orderPayment) (*fulfillment, error) {
	l := logging.FromContext(ctx)

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := tx.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok {
			l.Warn("order_line_missing_product", "cart_id", cart.ID, "product_id", it.ProductID)
			continue
		}
		line := models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
		}
		total = total.Add(line.LineTotal())
		items = append(items, line)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart has no purchasable items", ErrValidation)
	}

	order := &models.Order{
		UserID:            userID,
		OrderNumber:       NewOrderNumber(),
		TotalAmount:       total,
		Status:            models.OrderStatusPending,
		PaymentStatus:     pay.Status,
		PaymentIntentID:   pay.PaymentIntentID,
		CheckoutSessionID: pay.SessionID,
		Items:             items,
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	history := make([]models.PurchaseHistory, 0, len(order.Items))
	for _, it := range order.Items {
		history = append(history, models.PurchaseHistory{
			UserID:      userID,
			ProductID:   it.ProductID,
			OrderID:     order.ID,
			Quantity:    it.Quantity,
			PurchasedAt: now,
		})
	}
	if err := tx.AddPurchaseHistory(ctx, history); err != nil {
		return nil, err
	}

	res := &fulfillment{Order: order}
	var backorderedIDs []uuid.UUID
	for i := range order.Items {
		it := &order.Items[i]
		ok, err := tx.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			it.Backordered = true
			backorderedIDs = append(backorderedIDs, it.ID)
			res.Backordered = append(res.Backordered, *it)
			l.Warn("order_line_backordered", "order_number", order.OrderNumber, "product_id", it.ProductID, "quantity", it.Quantity)
		}
	}
	if len(backorderedIDs) > 0 {
		if err := tx.MarkOrderBackordered(ctx, order.ID, backorderedIDs); err != nil {
			return nil, err
		}
		order.Backordered = true
	}

	if err := tx.ClearCart(ctx, cart.ID); err != nil {
		return nil, err
	}
	return res, nil
}

func orderEventData(o *models.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"product_id":  it.ProductID,
			"quantity":    it.Quantity,
			"price":       it.Price,
			"backordered": it.Backordered,
		})
	}
	return map[string]any{
		"order_id":       o.ID,
		"order_number":   o.OrderNumber,
		"user_id":        o.UserID,
		"total_amount":   o.TotalAmount,
		"payment_status": o.PaymentStatus,
		"items":          items,
	}
}
