package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/veritas_shop/internal/events"
	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/pkg/hash"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

type UserService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *UserService) ChangeName(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := s.Repo.UpdateUser(ctx, id, map[string]any{"name": name}); err != nil {
		return nil, notFound(err, "user")
	}
	return s.Get(ctx, id)
}

func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	if oldPassword == "" {
		return fmt.Errorf("%w: old password is required", ErrValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, oldPassword) {
		return fmt.Errorf("%w: old password is incorrect", ErrUnauthorized)
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Repo.UpdateUser(ctx, id, map[string]any{"password_hash": pwHash})
}

func (s *UserService) CurrentPlan(ctx context.Context, id uuid.UUID) (*string, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.HasPlan() {
		return nil, nil
	}
	return user.Plan, nil
}

func (s *UserService) List(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	return s.Repo.ListUsers(ctx, offset, limit)
}

func (s *UserService) Ban(ctx context.Context, id uuid.UUID) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return fmt.Errorf("%w: admins cannot be banned", ErrForbidden)
	}

	if err := s.Repo.BanUser(ctx, user); err != nil {
		return err
	}
	if err := s.Repo.RevokeUserTokens(ctx, user.ID); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("user_banned", "user_id", user.ID)
	publish(ctx, s.Publisher, events.TopicUser, user.ID.String(), "user_banned", map[string]any{"user_id": user.ID})
	return nil
}

func (s *UserService) Unban(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.UnbanUser(ctx, id); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("user_unbanned", "user_id", id)
	publish(ctx, s.Publisher, events.TopicUser, id.String(), "user_unbanned", map[string]any{"user_id": id})
	return nil
}
