package repository

import (
	"context"
	"errors"
	"time"

	"github.com/example/orderdesk/pkg/board"
	"github.com/example/orderdesk/pkg/catalog"
	"github.com/example/orderdesk/pkg/models"
	"go.uber.org/zap"
)

const mirrorWriteTimeout = 2 * time.Second

// offer puts v in a one-slot channel, replacing whatever is waiting there.
// Each channel has a single producer.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Mirror copies every catalog and order replacement into Redis from a
// background goroutine. Only the newest pending snapshot of each kind is
// written. The returned function stops mirroring.
func (r *RedisRepository) Mirror(c *catalog.Store, b *board.Store, logger *zap.Logger) (stop func()) {
	logger = logger.Named("snapshot-cache")
	ctx, cancel := context.WithCancel(context.Background())

	catalogs := make(chan catalog.Catalog, 1)
	orders := make(chan []models.Order, 1)

	unsubCatalog := c.Subscribe(func(v catalog.Catalog) { offer(catalogs, v) })
	unsubOrders := b.Subscribe(func(v []models.Order) { offer(orders, v) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var err error
			select {
			case <-ctx.Done():
				return
			case v := <-catalogs:
				wctx, wcancel := context.WithTimeout(ctx, mirrorWriteTimeout)
				err = r.SaveCatalog(wctx, v)
				wcancel()
			case v := <-orders:
				wctx, wcancel := context.WithTimeout(ctx, mirrorWriteTimeout)
				err = r.SaveOrders(wctx, v)
				wcancel()
			}
			if err != nil {
				logger.Warn("Snapshot cache write failed", zap.Error(err))
			}
		}
	}()

	return func() {
		unsubCatalog()
		unsubOrders()
		cancel()
		<-done
	}
}

// WarmStart installs cached snapshots into the stores. Missing snapshots
// are not an error.
func (r *RedisRepository) WarmStart(ctx context.Context, c *catalog.Store, b *board.Store, logger *zap.Logger) {
	if snap, savedAt, err := r.LoadCatalog(ctx); err == nil {
		c.Replace(snap)
		logger.Info("Catalog restored from cache",
			zap.Int("items", snap.Len()),
			zap.Time("saved_at", savedAt))
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Warn("Failed to read cached catalog", zap.Error(err))
	}

	if orders, savedAt, err := r.LoadOrders(ctx); err == nil {
		b.Replace(orders)
		logger.Info("Orders restored from cache",
			zap.Int("orders", len(orders)),
			zap.Time("saved_at", savedAt))
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Warn("Failed to read cached orders", zap.Error(err))
	}
}
