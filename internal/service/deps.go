package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/metrics"
	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/payment"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type PaymentProvider interface {
	Currency() string
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

type ProductIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// publish sends a domain event after the state change is committed. Failures
// are logged and counted but never returned.
func publish(ctx context.Context, p Publisher, topic, key, eventType string, data map[string]any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, key, events.New(eventType, data)); err != nil {
		metrics.IncPublishFailure(topic)
		logging.FromContext(ctx).Error("publish_event_error", "topic", topic, "type", eventType, "error", err)
	}
}
