package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/orderdesk/pkg/board"
	"github.com/example/orderdesk/pkg/catalog"
	"github.com/example/orderdesk/pkg/models"
	"github.com/example/orderdesk/pkg/notify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source is the service side of analytics: its own aggregation and status
// histogram.
type Source interface {
	AnalyticsRaw(ctx context.Context) ([]models.ItemIncome, error)
	OrderStatistics(ctx context.Context) (models.OrderStatistics, error)
}

type RemoteStats struct {
	Items      []models.ItemIncome
	Statistics models.OrderStatistics
	FetchedAt  time.Time
}

// View pairs the locally derived snapshot with the last remote stats, if
// any were fetched. The two are never merged.
type View struct {
	Local  Snapshot
	Remote *RemoteStats
}

type Store struct {
	src    Source
	logger *zap.Logger

	mu   sync.RWMutex
	view View

	hub notify.Hub[View]
}

// NewStore creates an analytics store. src may be nil when remote stats are
// disabled.
func NewStore(src Source, logger *zap.Logger) *Store {
	return &Store{
		src:    src,
		logger: logger.Named("analytics"),
		view:   View{Local: Aggregate(nil, nil)},
	}
}

func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Store) Subscribe(fn func(View)) func() {
	return s.hub.Subscribe(fn)
}

// Recompute derives a fresh local snapshot and replaces the old one.
func (s *Store) Recompute(orders []models.Order, menuItems []models.MenuItem) Snapshot {
	snap := Aggregate(orders, menuItems)

	s.mu.Lock()
	s.view.Local = snap
	view := s.view
	s.mu.Unlock()

	s.hub.Publish(view)
	return snap
}

// Bind recomputes whenever either the board or the catalog is replaced.
func (s *Store) Bind(b *board.Store, c *catalog.Store) (unbind func()) {
	var mu sync.Mutex
	// snapshots are read under mu so a slower recompute never lands after
	// a newer one
	recompute := func() {
		mu.Lock()
		defer mu.Unlock()
		s.Recompute(b.Snapshot(), c.Snapshot().Items())
	}
	unsubOrders := b.Subscribe(func([]models.Order) { recompute() })
	unsubCatalog := c.Subscribe(func(catalog.Catalog) { recompute() })
	recompute()

	return func() {
		unsubOrders()
		unsubCatalog()
	}
}

// FetchRemote is the refresh task for the service-side analytics. Both
// endpoints are fetched concurrently and both must succeed.
func (s *Store) FetchRemote() func(ctx context.Context) (func(), error) {
	return func(ctx context.Context) (func(), error) {
		if s.src == nil {
			return nil, fmt.Errorf("remote analytics source not configured")
		}

		var remote RemoteStats
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			remote.Items, err = s.src.AnalyticsRaw(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			remote.Statistics, err = s.src.OrderStatistics(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to fetch remote analytics: %w", err)
		}
		remote.FetchedAt = time.Now().UTC()

		return func() { s.setRemote(remote) }, nil
	}
}

func (s *Store) setRemote(remote RemoteStats) {
	s.mu.Lock()
	s.view.Remote = &remote
	view := s.view
	s.mu.Unlock()

	s.logDrift(view)
	s.hub.Publish(view)
}

// logDrift reports differences between the service histogram and the
// local counts. Polling intervals differ, so a short-lived drift is normal.
func (s *Store) logDrift(v View) {
	if v.Remote == nil {
		return
	}
	remote := v.Remote.Statistics

	if remote.Total != v.Local.TotalOrders {
		s.logger.Debug("Remote order total differs from local",
			zap.Int("remote", remote.Total),
			zap.Int("local", v.Local.TotalOrders))
	}
	for status, n := range remote.Counts() {
		if local := v.Local.StatusCounts[status]; local != n {
			s.logger.Debug("Remote status count differs from local",
				zap.String("status", string(status)),
				zap.Int("remote", n),
				zap.Int("local", local))
		}
	}
}
