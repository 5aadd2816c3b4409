package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/veritas_shop/internal/httpserver"
	"github.com/Skotchmaster/veritas_shop/internal/metrics"
	"github.com/Skotchmaster/veritas_shop/internal/payment"
	"github.com/Skotchmaster/veritas_shop/internal/plans"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/service"
	"github.com/Skotchmaster/veritas_shop/pkg/config"
	pkgdb "github.com/Skotchmaster/veritas_shop/pkg/db"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
	authmw "github.com/Skotchmaster/veritas_shop/pkg/middleware/auth"
	"github.com/Skotchmaster/veritas_shop/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/veritas_shop/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	cfg.MustServer()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	r := repo.New(db)
	if err := r.Migrate(ctx); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}
	cl := openClients(ctx, cfg, logger)
	cancel()

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("stripe_not_configured", "reason", "checkout requests will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("stripe_webhook_not_configured", "reason", "webhook deliveries will be refused")
	}

	table := plans.MustDefault()
	payments := payment.NewStripe(cfg.Stripe)

	authSvc := &service.AuthService{
		Repo:          r,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		FrontendURL:   cfg.FrontendURL,
		Mailer:        cl.Mailer,
		Publisher:     cl.Publisher,
		Limiter:       cl.Limiter,
	}
	checkout := &service.CheckoutService{Repo: r, Payments: payments, Plans: table, Publisher: cl.Publisher}

	metrics.MustRegister()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))
	if cfg.CSRFEnabled {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.SkipPrefixes = append(csrfCfg.SkipPrefixes, "/api/stripe/webhook", "/api/verify-token")
		e.Use(csrf.Middleware(csrfCfg))
	}

	httpserver.Register(e, &httpserver.Deps{
		UserHandler: &httpserver.UserHTTP{
			Auth:         authSvc,
			Users:        &service.UserService{Repo: r, Publisher: cl.Publisher},
			Checkout:     checkout,
			CookieSecure: cfg.CookieSecure,
		},
		ProductHandler: &httpserver.ProductHTTP{Svc: &service.CatalogService{Repo: r, Index: cl.Index, Publisher: cl.Publisher}},
		CartHandler:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Publisher: cl.Publisher}, Checkout: checkout},
		OrderHandler:   &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r}},
		BlogHandler:    &httpserver.BlogHTTP{Svc: &service.BlogService{Repo: r}},
		WebhookHandler: &httpserver.WebhookHTTP{Svc: &service.WebhookService{
			Repo:      r,
			Verifier:  payment.NewVerifier(cfg.Stripe.WebhookSecret),
			Plans:     table,
			Locker:    cl.Locker,
			Publisher: cl.Publisher,
			Currency:  payments.Currency(),
		}},
		Auth:        authmw.NewAutoRefreshMiddleware(cfg.JWTAccessSecret, authSvc, cfg.CookieSecure),
		Ready:       r.Ping,
		FrontendDir: cfg.FrontendDir,
		UploadsDir:  cfg.UploadsDir,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	cl.Close(logger)
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("server_stopped")
}
