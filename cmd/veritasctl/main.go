// Command veritasctl runs maintenance tasks against the shop database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/pkg/config"
	pkgdb "github.com/Skotchmaster/veritas_shop/pkg/db"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "veritasctl",
		Short:         "Maintenance commands for the Veritas shop",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(plansCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env loads configuration and opens the database for a single command run.
type env struct {
	cfg config.Config
	db  *gorm.DB
	r   *repo.GormRepo
	log *slog.Logger
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", "veritasctl")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	return &env{cfg: cfg, db: db, r: repo.New(db), log: logger}, nil
}

func (e *env) Close() {
	if err := pkgdb.Close(e.db); err != nil {
		e.log.Warn("db_close_error", "error", err)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.r.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
