package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/veritas_shop/internal/cache"
	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/metrics"
	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/payment"
	"github.com/Skotchmaster/veritas_shop/internal/plans"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

var ErrWebhookNotConfigured = errors.New("webhook secret not configured")

const (
	OutcomeIgnored       = "ignored"
	OutcomeNoAction      = "no_action"
	OutcomeDuplicate     = "duplicate"
	OutcomeOrderCreated  = "order_created"
	OutcomeCartEmpty     = "cart_empty"
	OutcomePlanActivated = "plan_activated"
	OutcomeRejected      = "rejected"
	OutcomeNotFound      = "not_found"
)

const (
	webhookLockTTL = 30 * time.Second

	msgEventReceived    = "Event received"
	msgNoAction         = "Event acknowledged (no action required)"
	msgAlreadyProcessed = "Event already processed"
	msgOrderCreated     = "Order created"
	msgCartEmpty        = "Cart already empty"
	msgPlanActivated    = "Plan activated"
)

type WebhookResult struct {
	EventID string        `json:"event_id"`
	Outcome string        `json:"outcome"`
	Message string        `json:"message"`
	Order   *models.Order `json:"order,omitempty"`
	Plan    string        `json:"plan,omitempty"`
}

type WebhookService struct {
	Repo      *repo.GormRepo
	Verifier  *payment.Verifier
	Plans     *plans.Table
	Locker    Locker
	Publisher Publisher
	Currency  string
}

var errDuplicateEvent = errors.New("event already processed")

// Handle verifies a provider delivery and applies it at most once per event id.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	l := logging.FromContext(ctx).With("svc", "payment.webhook")

	if !s.Verifier.Configured() {
		l.Error("webhook_error", "status", 500, "reason", "webhook secret not configured")
		return nil, ErrWebhookNotConfigured
	}
	if signature == "" {
		metrics.IncWebhookEvent(OutcomeRejected)
		l.Warn("webhook_error", "status", 400, "reason", "missing signature header")
		return nil, fmt.Errorf("%w: missing %s header", ErrValidation, payment.SignatureHeader)
	}

	ev, err := s.Verifier.Parse(payload, signature)
	if err != nil {
		metrics.IncWebhookEvent(OutcomeRejected)
		l.Warn("webhook_error", "status", 400, "reason", "signature verification failed", "error", err)
		return nil, fmt.Errorf("%w: webhook signature verification failed", ErrValidation)
	}
	l = l.With("event_id", ev.ID, "event_type", ev.Type)
	ctx = logging.IntoContext(ctx, l)

	if ev.Type != payment.EventCheckoutCompleted {
		metrics.IncWebhookEvent(OutcomeIgnored)
		l.Info("webhook_event_ignored")
		return &WebhookResult{EventID: ev.ID, Outcome: OutcomeIgnored, Message: msgEventReceived}, nil
	}

	userID := ev.Metadata[payment.MetaUserID]
	cartID := ev.Metadata[payment.MetaCartID]
	planName := ev.Metadata[payment.MetaPlanName]

	var res *WebhookResult
	switch {
	case userID != "" && cartID != "":
		res, err = s.withLock(ctx, ev.ID, func() (*WebhookResult, error) {
			return s.applyCart(ctx, ev, userID, cartID)
		})
	case userID != "" && planName != "":
		res, err = s.withLock(ctx, ev.ID, func() (*WebhookResult, error) {
			return s.applyPlan(ctx, ev, userID, planName)
		})
	default:
		metrics.IncWebhookEvent(OutcomeNoAction)
		l.Info("webhook_no_action", "reason", "metadata has no cart or plan")
		return &WebhookResult{EventID: ev.ID, Outcome: OutcomeNoAction, Message: msgNoAction}, nil
	}

	if err != nil {
		outcome := OutcomeRejected
		if errors.Is(err, ErrNotFound) {
			outcome = OutcomeNotFound
		}
		metrics.IncWebhookEvent(outcome)
		l.Warn("webhook_error", "reason", outcome, "error", err)
		return nil, err
	}
	metrics.IncWebhookEvent(res.Outcome)
	return res, nil
}

// withLock serializes concurrent deliveries of one event. The ledger alone
// keeps effects exactly-once, so a lock backend failure only gets logged.
func (s *WebhookService) withLock(ctx context.Context, eventID string, fn func() (*WebhookResult, error)) (*WebhookResult, error) {
	if s.Locker == nil {
		return fn()
	}
	key := cache.WebhookLockKey(eventID)
	token, err := s.Locker.TryLock(ctx, key, webhookLockTTL)
	switch {
	case errors.Is(err, cache.ErrLocked):
		return nil, fmt.Errorf("%w: event %s is being processed", ErrConflict, eventID)
	case err != nil:
		logging.FromContext(ctx).Warn("webhook_lock_unavailable", "error", err)
		return fn()
	}
	defer func() {
		if err := s.Locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			logging.FromContext(ctx).Warn("webhook_unlock_error", "error", err)
		}
	}()
	return fn()
}

func (s *WebhookService) applyCart(ctx context.Context, ev *payment.Event, rawUserID, rawCartID string) (*WebhookResult, error) {
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %q not found", ErrNotFound, rawUserID)
	}
	cartID, err := uuid.Parse(rawCartID)
	if err != nil {
		return nil, fmt.Errorf("%w: cart %q not found", ErrNotFound, rawCartID)
	}

	res := &WebhookResult{EventID: ev.ID}
	var done *fulfillment
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		claimed, err := tx.ClaimEvent(ctx, ev.ID, ev.Type, OutcomeOrderCreated)
		if err != nil {
			return err
		}
		if !claimed {
			return errDuplicateEvent
		}

		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return notFound(err, "user")
		}
		cart, err := tx.LockCart(ctx, cartID)
		if err != nil {
			return notFound(err, "cart")
		}
		if cart.UserID != userID {
			return fmt.Errorf("%w: cart not found for user", ErrNotFound)
		}

		if len(cart.Items) == 0 {
			res.Outcome, res.Message = OutcomeCartEmpty, msgCartEmpty
			return tx.SetEventOutcome(ctx, ev.ID, OutcomeCartEmpty)
		}

		done, err = fulfillCart(ctx, tx, userID, cart, orderPayment{
			Status:          models.PaymentStatusCompleted,
			PaymentIntentID: ev.PaymentIntentID,
			SessionID:       ev.SessionID,
		})
		return err
	})
	if errors.Is(err, errDuplicateEvent) {
		logging.FromContext(ctx).Info("webhook_duplicate_event")
		return &WebhookResult{EventID: ev.ID, Outcome: OutcomeDuplicate, Message: msgAlreadyProcessed}, nil
	}
	if err != nil {
		return nil, err
	}

	if done == nil {
		logging.FromContext(ctx).Warn("webhook_cart_empty", "cart_id", cartID)
		return res, nil
	}

	s.checkPaid(ctx, ev, done.Order)
	afterOrder(ctx, s.Publisher, done, "webhook", s.Currency)
	res.Outcome, res.Message, res.Order = OutcomeOrderCreated, msgOrderCreated, done.Order
	return res, nil
}

func (s *WebhookService) applyPlan(ctx context.Context, ev *payment.Event, rawUserID, planName string) (*WebhookResult, error) {
	l := logging.FromContext(ctx)

	plan, ok := s.Plans.Resolve(planName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown plan %q", ErrValidation, planName)
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %q not found", ErrNotFound, rawUserID)
	}

	var previous string
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		claimed, err := tx.ClaimEvent(ctx, ev.ID, ev.Type, OutcomePlanActivated)
		if err != nil {
			return err
		}
		if !claimed {
			return errDuplicateEvent
		}

		user, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		if user.HasPlan() {
			previous = *user.Plan
		}
		return tx.SetUserPlan(ctx, userID, plan.Tier)
	})
	if errors.Is(err, errDuplicateEvent) {
		l.Info("webhook_duplicate_event")
		return &WebhookResult{EventID: ev.ID, Outcome: OutcomeDuplicate, Message: msgAlreadyProcessed}, nil
	}
	if err != nil {
		return nil, err
	}

	if previous != "" {
		l.Warn("plan_replaced", "user_id", userID, "previous_plan", previous, "plan", plan.Tier)
	}
	metrics.IncPlanActivation(plan.Tier)
	publish(ctx, s.Publisher, events.TopicUser, userID.String(), "plan_activated", map[string]any{
		"user_id":       userID,
		"plan":          plan.Tier,
		"previous_plan": previous,
		"session_id":    ev.SessionID,
	})
	l.Info("plan_activated", "user_id", userID, "plan", plan.Tier)

	return &WebhookResult{EventID: ev.ID, Outcome: OutcomePlanActivated, Message: msgPlanActivated, Plan: plan.Tier}, nil
}

// checkPaid reports which of amount and currency on the paid session disagree
// with the order it produced. The order stands either way.
func (s *WebhookService) checkPaid(ctx context.Context, ev *payment.Event, order *models.Order) []string {
	l := logging.FromContext(ctx)
	var fields []string

	if want := minorUnits(order.TotalAmount); ev.AmountTotal != want {
		fields = append(fields, "amount")
		l.Warn("webhook_amount_mismatch", "order_id", order.ID, "paid", ev.AmountTotal, "expected", want)
	}
	if ev.Currency != "" && s.Currency != "" && !strings.EqualFold(ev.Currency, s.Currency) {
		fields = append(fields, "currency")
		l.Warn("webhook_currency_mismatch", "order_id", order.ID, "paid", ev.Currency, "expected", s.Currency)
	}
	for _, f := range fields {
		metrics.IncPaymentMismatch(f)
	}
	return fields
}
