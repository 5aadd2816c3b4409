package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/veritas_shop/internal/service"
	"github.com/Skotchmaster/veritas_shop/internal/transport"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

type CartHTTP struct {
	Svc      *service.CartService
	Checkout *service.CheckoutService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("get_cart_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) bindItem(c echo.Context) (uuid.UUID, transport.CartItemRequest, error) {
	userID, err := GetID(c)
	if err != nil {
		return uuid.Nil, transport.CartItemRequest{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req transport.CartItemRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, req, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return userID, req, nil
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, req, err := h.bindItem(c)
	if err != nil {
		l.Warn("add_to_cart_error", "error", err)
		return err
	}

	cart, err := h.Svc.AddItem(ctx, userID, req.ProductID, req.Qty())
	if err != nil {
		return fail(l, "add_to_cart_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	userID, req, err := h.bindItem(c)
	if err != nil {
		l.Warn("remove_from_cart_error", "error", err)
		return err
	}

	cart, err := h.Svc.RemoveItem(ctx, userID, req.ProductID, req.Qty())
	if err != nil {
		return fail(l, "remove_from_cart_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	userID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.Svc.Clear(ctx, userID); err != nil {
		return fail(l, "clear_cart_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Cart cleared"))
}

// StartCheckout answers with {sessionId, url} for the hosted payment page.
func (h *CartHTTP) StartCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	userID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	session, err := h.Checkout.CheckoutCart(ctx, userID)
	if err != nil {
		return fail(l, "checkout_error", err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *CartHTTP) BuyCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.buy")

	userID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	order, err := h.Checkout.BuyCart(ctx, userID)
	if err != nil {
		return fail(l, "buy_cart_error", err)
	}
	return c.JSON(http.StatusCreated, order)
}
