package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/cache"
	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/mailer"
	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/transport"
	"github.com/Skotchmaster/veritas_shop/pkg/hash"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
	"github.com/Skotchmaster/veritas_shop/pkg/tokens"
)

const (
	minPasswordLen    = 6
	verificationTTL   = 24 * time.Hour
	resetTTL          = time.Hour
	loginAttemptLimit = 10
	loginWindow       = 15 * time.Minute
)

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	FrontendURL   string

	Mailer    Mailer
	Publisher Publisher
	Limiter   RateLimiter
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return email, nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	return nil
}

// newOneTimeToken returns a raw token for the link and the hash to persist.
func newOneTimeToken() (raw, hashed string, err error) {
	raw, err = hash.RandomToken(32)
	if err != nil {
		return "", "", err
	}
	return raw, hash.Sha256Hex(raw), nil
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	raw, hashed, err := newOneTimeToken()
	if err != nil {
		return nil, err
	}
	exp := time.Now().UTC().Add(verificationTTL)

	user := &models.User{
		Name:                  name,
		Email:                 email,
		PasswordHash:          pwHash,
		Role:                  models.RoleUser,
		VerificationTokenHash: hashed,
		VerificationExpiresAt: &exp,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_error", "status", 400, "reason", "email already registered")
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}

	s.sendVerification(ctx, user, raw)
	publish(ctx, s.Publisher, events.TopicUser, user.ID.String(), "user_registered", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	l.Info("register_success", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest, ip string) (*transport.LoginResult, error) {
	return s.login(ctx, req, ip, false)
}

func (s *AuthService) AdminLogin(ctx context.Context, req transport.LoginRequest, ip string) (*transport.LoginResult, error) {
	return s.login(ctx, req, ip, true)
}

func (s *AuthService) login(ctx context.Context, req transport.LoginRequest, ip string, admin bool) (*transport.LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "admin", admin)

	if s.Limiter != nil && ip != "" {
		ok, err := s.Limiter.Allow(ctx, cache.LoginRateKey(ip), loginAttemptLimit, loginWindow)
		if err != nil {
			l.Warn("login_rate_limit_unavailable", "error", err)
		} else if !ok {
			l.Warn("login_failed", "status", 429, "reason", "too many attempts", "ip", ip)
			return nil, fmt.Errorf("%w: too many login attempts, try again later", ErrRateLimited)
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		l.Warn("login_failed", "status", 401, "reason", "unknown email")
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, errInvalidCredentials
	}

	isAdmin := user.Role == models.RoleAdmin
	if admin && !isAdmin {
		return nil, fmt.Errorf("%w: admin access required", ErrUnauthorized)
	}
	if !admin && isAdmin {
		return nil, fmt.Errorf("%w: admins must use the admin login", ErrUnauthorized)
	}
	if user.IsBanned {
		l.Warn("login_failed", "status", 403, "reason", "user is banned", "user_id", user.ID)
		return nil, fmt.Errorf("%w: account is banned", ErrForbidden)
	}

	pair, rec, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, rec); err != nil {
		return nil, err
	}

	publish(ctx, s.Publisher, events.TopicUser, user.ID.String(), "user_logged_in", map[string]any{
		"user_id": user.ID,
		"admin":   admin,
	})
	l.Info("login_successful", "user_id", user.ID)
	return &transport.LoginResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccessExp:    pair.AccessExp,
		RefreshExp:   pair.RefreshExp,
	}, nil
}

// issue signs a new token pair and the refresh row that backs it.
func (s *AuthService) issue(user *models.User) (*tokens.Pair, *models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)
	jti := tokens.NewJTI()

	access, err := tokens.SignAccess(s.AccessSecret, user.ID.String(), user.Role, accessExp)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := tokens.SignRefresh(s.RefreshSecret, user.ID.String(), jti, refreshExp)
	if err != nil {
		return nil, nil, err
	}

	rec := &models.RefreshToken{
		Token:     hash.Sha256Hex(refresh),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return &tokens.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, rec, nil
}

// Refresh rotates a refresh token. Presenting an already rotated token
// revokes every session of the user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	stored, err := s.Repo.FindRefreshByJTI(ctx, claims.ID)
	if err != nil || stored.Token != hash.Sha256Hex(refreshToken) || stored.UserID != userID {
		return nil, fmt.Errorf("%w: refresh token not found", ErrUnauthorized)
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
	}
	if user.IsBanned {
		return nil, fmt.Errorf("%w: account is banned", ErrForbidden)
	}

	pair, rec, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, rec); err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) {
			if stored.Revoked {
				l.Warn("refresh_token_reuse", "user_id", userID, "jti", claims.ID)
				if err := s.Repo.RevokeUserTokens(ctx, userID); err != nil {
					l.Error("revoke_user_tokens_error", "error", err)
				}
			}
			return nil, fmt.Errorf("%w: refresh token expired or revoked", ErrUnauthorized)
		}
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, refreshToken)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}
	user, err := s.Repo.GetUserByVerificationHash(ctx, hash.Sha256Hex(token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: invalid or expired verification token", ErrValidation)
	}
	if err != nil {
		return err
	}
	if user.VerificationExpiresAt == nil || time.Now().After(*user.VerificationExpiresAt) {
		return fmt.Errorf("%w: invalid or expired verification token", ErrValidation)
	}

	if err := s.Repo.UpdateUser(ctx, user.ID, map[string]any{
		"is_email_verified":       true,
		"verification_token_hash": "",
		"verification_expires_at": nil,
	}); err != nil {
		return err
	}
	publish(ctx, s.Publisher, events.TopicUser, user.ID.String(), "email_verified", map[string]any{"user_id": user.ID})
	return nil
}

// ResendVerification answers the same way for unknown addresses.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return fmt.Errorf("%w: email already verified", ErrValidation)
	}

	raw, hashed, err := newOneTimeToken()
	if err != nil {
		return err
	}
	exp := time.Now().UTC().Add(verificationTTL)
	if err := s.Repo.UpdateUser(ctx, user.ID, map[string]any{
		"verification_token_hash": hashed,
		"verification_expires_at": exp,
	}); err != nil {
		return err
	}
	s.sendVerification(ctx, user, raw)
	return nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		l.Info("password_reset_unknown_email")
		return nil
	}
	if err != nil {
		return err
	}

	raw, hashed, err := newOneTimeToken()
	if err != nil {
		return err
	}
	exp := time.Now().UTC().Add(resetTTL)
	if err := s.Repo.UpdateUser(ctx, user.ID, map[string]any{
		"reset_token_hash": hashed,
		"reset_expires_at": exp,
	}); err != nil {
		return err
	}

	subject, body := mailer.PasswordResetEmail(user.Name, s.link("/reset-password/", raw))
	s.send(ctx, user.Email, subject, body)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req transport.ResetPasswordRequest) error {
	if req.Token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}

	user, err := s.Repo.GetUserByResetHash(ctx, hash.Sha256Hex(req.Token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: invalid or expired reset token", ErrValidation)
	}
	if err != nil {
		return err
	}
	if user.ResetExpiresAt == nil || time.Now().After(*user.ResetExpiresAt) {
		return fmt.Errorf("%w: invalid or expired reset token", ErrValidation)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdateUser(ctx, user.ID, map[string]any{
		"password_hash":    pwHash,
		"reset_token_hash": "",
		"reset_expires_at": nil,
	}); err != nil {
		return err
	}
	return s.Repo.RevokeUserTokens(ctx, user.ID)
}

func (s *AuthService) link(path, token string) string {
	return strings.TrimRight(s.FrontendURL, "/") + path + token
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User, raw string) {
	subject, body := mailer.VerificationEmail(user.Name, s.link("/verify-email/", raw))
	s.send(ctx, user.Email, subject, body)
}

// send delivers mail without failing the calling operation.
func (s *AuthService) send(ctx context.Context, to, subject, body string) {
	if s.Mailer == nil {
		return
	}
	if err := s.Mailer.Send(ctx, to, subject, body); err != nil {
		logging.FromContext(ctx).Error("mail_send_error", "to", to, "subject", subject, "error", err)
	}
}
