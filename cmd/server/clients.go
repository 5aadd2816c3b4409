package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/Skotchmaster/veritas_shop/internal/cache"
	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/mailer"
	"github.com/Skotchmaster/veritas_shop/internal/search"
	"github.com/Skotchmaster/veritas_shop/internal/service"
	"github.com/Skotchmaster/veritas_shop/pkg/config"
)

// clients holds the optional backing services. Each one falls back to a local
// implementation when it is not configured or cannot be reached at startup.
type clients struct {
	Publisher service.Publisher
	Index     service.ProductIndex
	Locker    service.Locker
	Limiter   service.RateLimiter
	Mailer    service.Mailer

	closers []func() error
}

func openClients(ctx context.Context, cfg config.Config, l *slog.Logger) *clients {
	out := &clients{
		Publisher: events.LogPublisher{},
		Locker:    cache.NoopLocker{},
		Limiter:   cache.NoopRateLimiter{},
		Mailer:    mailer.LogMailer{},
	}

	if len(cfg.KafkaBrokers) > 0 {
		prod, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			l.Warn("kafka_unavailable", "error", err)
		} else {
			out.Publisher = prod
			out.closers = append(out.closers, prod.Close)
			l.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
		}
	}

	if cfg.ES.URL != "" {
		esCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		es, err := search.NewClient(esCtx, cfg.ES)
		if err == nil {
			err = es.EnsureIndex(esCtx)
		}
		cancel()
		if err != nil {
			l.Warn("elasticsearch_unavailable", "reason", "falling back to sql search", "error", err)
		} else {
			out.Index = es
			l.Info("elasticsearch_enabled", "index", es.Index())
		}
	}

	if cfg.Redis.Addr != "" {
		rCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		rc, err := cache.NewClient(rCtx, cfg.Redis)
		cancel()
		if err != nil {
			l.Warn("redis_unavailable", "reason", "webhook locks and login limits disabled", "error", err)
		} else {
			out.Locker = cache.NewLocker(rc)
			out.Limiter = cache.NewRateLimiter(rc)
			out.closers = append(out.closers, rc.Close)
			l.Info("redis_enabled", "addr", cfg.Redis.Addr)
		}
	}

	if cfg.SMTP.Host != "" {
		out.Mailer = mailer.NewSMTP(cfg.SMTP)
		l.Info("smtp_enabled", "host", cfg.SMTP.Host)
	}

	return out
}

func (c *clients) Close(l *slog.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			l.Warn("client_close_error", "error", err)
		}
	}
}
