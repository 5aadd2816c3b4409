package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/search"
)

type bulkIndexer interface {
	Add(ctx context.Context, products []models.Product) error
	Close(ctx context.Context) (indexed uint64, failed int64, err error)
}

func reindexCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reindex-products",
		Short: "Rebuild the product search index from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.cfg.ES.URL == "" {
				return fmt.Errorf("ES_URL is not set")
			}
			es, err := search.NewClient(ctx, e.cfg.ES)
			if err != nil {
				return err
			}
			if err := es.EnsureIndex(ctx); err != nil {
				return err
			}
			bulk, err := es.NewBulk(ctx)
			if err != nil {
				return err
			}

			indexed, failed, err := reindex(ctx, e.r, bulk, batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d products into %q (%d failed)\n", indexed, es.Index(), failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 200, "products read per database batch")
	return cmd
}

func reindex(ctx context.Context, r *repo.GormRepo, bulk bulkIndexer, batch int) (uint64, int64, error) {
	if batch <= 0 {
		batch = 200
	}
	walkErr := r.EachProduct(ctx, batch, func(products []models.Product) error {
		return bulk.Add(ctx, products)
	})

	indexed, failed, err := bulk.Close(ctx)
	if walkErr != nil {
		return indexed, failed, fmt.Errorf("read products: %w", walkErr)
	}
	if err != nil {
		return indexed, failed, fmt.Errorf("flush index: %w", err)
	}
	return indexed, failed, nil
}
