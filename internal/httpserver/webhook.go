package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/veritas_shop/internal/payment"
	"github.com/Skotchmaster/veritas_shop/internal/service"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

const maxWebhookBody = 64 << 10

type WebhookHTTP struct {
	Svc *service.WebhookService
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Message  string `json:"message"`
	Outcome  string `json:"outcome"`
	EventID  string `json:"event_id"`
}

// Stripe reads the raw body: the signature covers the exact bytes sent.
func (h *WebhookHTTP) Stripe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}
	if len(payload) > maxWebhookBody {
		l.Warn("webhook_error", "status", 413, "reason", "body too large")
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "body too large")
	}

	res, err := h.Svc.Handle(ctx, payload, c.Request().Header.Get(payment.SignatureHeader))
	if errors.Is(err, service.ErrWebhookNotConfigured) {
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook secret not configured")
	}
	if err != nil {
		status, msg := statusOf(err)
		if status >= http.StatusInternalServerError {
			l.Error("webhook_error", "status", status, "error", err)
		}
		return echo.NewHTTPError(status, msg).SetInternal(err)
	}

	return c.JSON(http.StatusOK, webhookResponse{
		Received: true,
		Message:  res.Message,
		Outcome:  res.Outcome,
		EventID:  res.EventID,
	})
}
