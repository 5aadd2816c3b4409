package main

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/pkg/hash"
)

const minAdminPassword = 8

func createAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing user",
		Example: `  veritasctl create-admin --email ops@example.com --password 's3cret-pass'
  veritasctl create-admin --email existing@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			u, created, err := ensureAdmin(ctx, e.r, name, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s) to admin\n", u.Email, u.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "display name for a new account")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password for a new account")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// ensureAdmin promotes the user with email to admin, creating a verified
// account when none exists. It reports whether a new account was created.
func ensureAdmin(ctx context.Context, r *repo.GormRepo, name, email, password string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, false, fmt.Errorf("invalid email %q", email)
	}

	u, err := r.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := r.UpdateUser(ctx, u.ID, map[string]any{"role": models.RoleAdmin, "is_banned": false}); err != nil {
			return nil, false, fmt.Errorf("promote user: %w", err)
		}
		u.Role = models.RoleAdmin
		u.IsBanned = false
		return u, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	if len(password) < minAdminPassword {
		return nil, false, fmt.Errorf("password must be at least %d characters", minAdminPassword)
	}
	pw, err := hash.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	u = &models.User{
		Name:            strings.TrimSpace(name),
		Email:           email,
		PasswordHash:    pw,
		Role:            models.RoleAdmin,
		IsEmailVerified: true,
	}
	if err := r.CreateUserIfNotExists(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return u, true, nil
}
