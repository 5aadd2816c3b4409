package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v9/esutil"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

// Bulk streams products into the index. Call Close to flush.
type Bulk struct {
	bi     esutil.BulkIndexer
	failed atomic.Int64
}

func (c *Client) NewBulk(ctx context.Context) (*Bulk, error) {
	b := &Bulk{}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        c.es,
		Index:         c.index,
		NumWorkers:    2,
		FlushBytes:    1 << 20,
		FlushInterval: 5 * time.Second,
		OnError: func(ctx context.Context, err error) {
			logging.FromContext(ctx).Error("bulk_index_error", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bulk indexer: %w", err)
	}
	b.bi = bi
	return b, nil
}

func (b *Bulk) Add(ctx context.Context, products []models.Product) error {
	for i := range products {
		body, err := json.Marshal(toDocument(&products[i]))
		if err != nil {
			return err
		}
		err = b.bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: products[i].ID.String(),
			Body:       bytes.NewReader(body),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				b.failed.Add(1)
				logging.FromContext(ctx).Warn("bulk_index_item_failed",
					"id", item.DocumentID, "status", res.Status, "reason", res.Error.Reason, "error", err)
			},
		})
		if err != nil {
			return fmt.Errorf("bulk add %s: %w", products[i].ID, err)
		}
	}
	return nil
}

// Close flushes pending items and reports how many were indexed.
func (b *Bulk) Close(ctx context.Context) (indexed uint64, failed int64, err error) {
	if err := b.bi.Close(ctx); err != nil {
		return 0, 0, err
	}
	st := b.bi.Stats()
	return st.NumFlushed, b.failed.Load(), nil
}
