package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/veritas_shop/internal/service"
	"github.com/Skotchmaster/veritas_shop/internal/transport"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
	"github.com/Skotchmaster/veritas_shop/pkg/tokens"
)

type UserHTTP struct {
	Auth         *service.AuthService
	Users        *service.UserService
	Checkout     *service.CheckoutService
	CookieSecure bool
}

func (h *UserHTTP) setSession(c echo.Context, res *transport.LoginResult) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp, h.CookieSecure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, h.CookieSecure))
}

func (h *UserHTTP) clearSession(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", h.CookieSecure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", h.CookieSecure))
}

func (h *UserHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Auth.Register(ctx, req)
	if err != nil {
		return fail(l, "register_error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Registration successful. Check your email to verify your account.",
		"user":    transport.NewUserResponse(user),
	})
}

func (h *UserHTTP) Login(c echo.Context) error {
	return h.login(c, false)
}

func (h *UserHTTP) AdminLogin(c echo.Context) error {
	return h.login(c, true)
}

func (h *UserHTTP) login(c echo.Context, admin bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.login", "admin", admin)

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var (
		res *transport.LoginResult
		err error
	)
	if admin {
		res, err = h.Auth.AdminLogin(ctx, req, c.RealIP())
	} else {
		res, err = h.Auth.Login(ctx, req, c.RealIP())
	}
	if err != nil {
		return fail(l, "login_failed", err)
	}

	h.setSession(c, res)
	return c.JSON(http.StatusOK, transport.LoginResponse{
		User:    transport.NewUserResponse(res.User),
		IsAdmin: admin,
	})
}

func (h *UserHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.refresh")

	ck, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || ck.Value == "" {
		l.Warn("refresh_error", "status", 401, "reason", "no refresh cookie")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	pair, err := h.Auth.Refresh(ctx, ck.Value)
	if err != nil {
		h.clearSession(c)
		return fail(l, "refresh_error", err)
	}

	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp, h.CookieSecure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp, h.CookieSecure))
	return c.JSON(http.StatusOK, transport.OK("Token refreshed"))
}

func (h *UserHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.logout")

	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		if err := h.Auth.Logout(ctx, ck.Value); err != nil {
			h.clearSession(c)
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot log out")
		}
	}
	h.clearSession(c)

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.OK("Logged out"))
}

func (h *UserHTTP) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.get")

	id, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.Users.Get(ctx, id)
	if err != nil {
		return fail(l, "get_user_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

// GetSession reports who the session cookie belongs to. The token itself
// stays in its HttpOnly cookie.
func (h *UserHTTP) GetSession(c echo.Context) error {
	id, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	role, _ := c.Get("role").(string)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    echo.Map{"id": id, "role": role},
	})
}

// VerifyToken checks an access token sent as "Authorization: Bearer <token>"
// and answers with the holder's current role.
func (h *UserHTTP) VerifyToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.verify_token")

	raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "no token provided")
	}
	claims, err := tokens.AccessClaimsFromToken(raw, h.Auth.AccessSecret)
	if err != nil {
		l.Info("verify_token_rejected", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	user, err := h.Users.Get(ctx, id)
	if err != nil {
		return fail(l, "verify_token_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    echo.Map{"role": user.Role},
	})
}

func (h *UserHTTP) ChangeName(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.change_name")

	id, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req transport.ChangeNameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Users.ChangeName(ctx, id, req.Name)
	if err != nil {
		return fail(l, "change_name_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *UserHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.change_password")

	id, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Users.ChangePassword(ctx, id, req.OldPassword, req.NewPassword); err != nil {
		return fail(l, "change_password_error", err)
	}
	l.Info("password_changed")
	return c.JSON(http.StatusOK, transport.OK("Password updated"))
}

func (h *UserHTTP) CurrentPlan(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.current_plan")

	id, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	plan, err := h.Users.CurrentPlan(ctx, id)
	if err != nil {
		return fail(l, "current_plan_error", err)
	}
	return c.JSON(http.StatusOK, transport.CurrentPlanResponse{Plan: plan, HasPlan: plan != nil})
}

// UpgradePlan starts a hosted checkout for a membership tier. The plan is
// applied when the payment webhook confirms it.
func (h *UserHTTP) UpgradePlan(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.upgrade_plan")

	id, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req transport.UpgradePlanRequest
	if err := c.Bind(&req); err != nil || req.Plan == "" {
		l.Warn("upgrade_plan_error", "status", 400, "reason", "plan is required")
		return echo.NewHTTPError(http.StatusBadRequest, "plan is required")
	}

	session, err := h.Checkout.CheckoutPlan(ctx, id, req.Plan)
	if err != nil {
		return fail(l, "upgrade_plan_error", err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *UserHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.verify_email")

	if err := h.Auth.VerifyEmail(ctx, c.Param("token")); err != nil {
		return fail(l, "verify_email_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Email verified"))
}

func (h *UserHTTP) ResendVerification(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.resend_verification")

	var req transport.EmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Auth.ResendVerification(ctx, req.Email); err != nil {
		return fail(l, "resend_verification_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("If the account exists, a verification email has been sent"))
}

func (h *UserHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.forgot_password")

	var req transport.EmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
		return fail(l, "forgot_password_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("If the account exists, a reset link has been sent"))
}

func (h *UserHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.reset_password")

	var req transport.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Auth.ResetPassword(ctx, req); err != nil {
		return fail(l, "reset_password_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Password has been reset"))
}

func (h *UserHTTP) GetAllUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.get_all")

	p := pagination(c)
	total, users, err := h.Users.List(ctx, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "get_all_users_error", err)
	}

	out := make([]transport.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, transport.NewUserResponse(&users[i]))
	}
	return c.JSON(http.StatusOK, transport.NewPage(out, p.meta(total)))
}

func (h *UserHTTP) BanUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.ban")

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Users.Ban(ctx, id); err != nil {
		return fail(l, "ban_user_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("User banned"))
}

func (h *UserHTTP) UnbanUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.unban")

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Users.Unban(ctx, id); err != nil {
		return fail(l, "unban_user_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("User unbanned"))
}
