package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/orderdesk/pkg/audit"
	"github.com/example/orderdesk/pkg/models"
	"github.com/example/orderdesk/pkg/notify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service is the catalog half of the remote restaurant service.
type Service interface {
	ListMenu(ctx context.Context) ([]models.MenuItem, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error
	CreateCategory(ctx context.Context, c models.Category) (models.Category, error)
}

// Catalog is an immutable snapshot of menu items and categories.
type Catalog struct {
	items      []models.MenuItem
	categories []models.Category
	byID       map[int64]int
}

func NewCatalog(items []models.MenuItem, categories []models.Category) Catalog {
	c := Catalog{
		items:      append([]models.MenuItem(nil), items...),
		categories: append([]models.Category(nil), categories...),
		byID:       make(map[int64]int, len(items)),
	}
	for i, it := range c.items {
		c.byID[it.ID] = i
	}
	return c
}

func (c Catalog) Items() []models.MenuItem {
	return append([]models.MenuItem(nil), c.items...)
}

func (c Catalog) Categories() []models.Category {
	return append([]models.Category(nil), c.categories...)
}

func (c Catalog) Item(id int64) (models.MenuItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.MenuItem{}, false
	}
	return c.items[i], true
}

func (c Catalog) Price(id int64) (decimal.Decimal, bool) {
	it, ok := c.Item(id)
	if !ok {
		return decimal.Zero, false
	}
	return it.Price, true
}

// CategoryNames lists the known category names in service order.
func (c Catalog) CategoryNames() []string {
	out := make([]string, len(c.categories))
	for i, cat := range c.categories {
		out[i] = cat.Name
	}
	return out
}

// HasCategory matches name case-insensitively against the categories the
// service lists. A category only referenced by items does not count.
func (c Catalog) HasCategory(name string) bool {
	for _, cat := range c.categories {
		if strings.EqualFold(cat.Name, name) {
			return true
		}
	}
	return false
}

func (c Catalog) ImageFor(item models.MenuItem) string {
	return ResolveImage(item, c.categories)
}

func (c Catalog) Len() int { return len(c.items) }

// Store holds the latest catalog snapshot. Writes are serialized; readers
// get immutable snapshots.
type Store struct {
	svc    Service
	audit  audit.Recorder
	logger *zap.Logger

	mu      sync.RWMutex
	current Catalog

	hub notify.Hub[Catalog]
}

func NewStore(svc Service, rec audit.Recorder, logger *zap.Logger) *Store {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Store{
		svc:     svc,
		audit:   rec,
		logger:  logger.Named("catalog"),
		current: NewCatalog(nil, nil),
	}
}

// Load fetches menu items and categories. Both must succeed.
func (s *Store) Load(ctx context.Context) (Catalog, error) {
	var (
		items      []models.MenuItem
		categories []models.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.svc.ListMenu(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.svc.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Catalog{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	return NewCatalog(items, categories), nil
}

// RefreshTask adapts Load to the refresh scheduler.
func (s *Store) RefreshTask() func(ctx context.Context) (func(), error) {
	return func(ctx context.Context) (func(), error) {
		c, err := s.Load(ctx)
		if err != nil {
			return nil, err
		}
		return func() { s.Replace(c) }, nil
	}
}

func (s *Store) Snapshot() Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in c and notifies subscribers.
func (s *Store) Replace(c Catalog) {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()

	s.hub.Publish(c)
}

func (s *Store) Subscribe(fn func(Catalog)) func() {
	return s.hub.Subscribe(fn)
}

// CreateItem posts a new menu item, creating its category first when the
// current snapshot does not know it. Local state is left to the next refresh.
func (s *Store) CreateItem(ctx context.Context, in models.MenuItemInput) (models.MenuItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)

	if in.Name == "" {
		return models.MenuItem{}, &models.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.Category == "" {
		return models.MenuItem{}, &models.ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if in.Price.IsNegative() {
		return models.MenuItem{}, &models.ValidationError{Field: "price", Reason: "must not be negative"}
	}

	if !s.Snapshot().HasCategory(in.Category) {
		if _, err := s.CreateCategory(ctx, models.Category{Name: in.Category}); err != nil {
			return models.MenuItem{}, err
		}
	}

	item, err := s.svc.CreateMenuItem(ctx, in)
	if err != nil {
		return models.MenuItem{}, err
	}

	s.record(ctx, audit.Event{
		Action:   audit.ActionCreateMenuItem,
		Entity:   "menu_item",
		EntityID: strconv.FormatInt(item.ID, 10),
		Data: map[string]any{
			"name":     item.Name,
			"category": item.Category,
			"price":    item.Price.String(),
		},
	})
	return item, nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	if err := s.svc.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.record(ctx, audit.Event{
		Action:   audit.ActionDeleteMenuItem,
		Entity:   "menu_item",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.Category{}, &models.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	created, err := s.svc.CreateCategory(ctx, c)
	if err != nil {
		return models.Category{}, err
	}

	s.record(ctx, audit.Event{
		Action:   audit.ActionCreateCategory,
		Entity:   "category",
		EntityID: created.Name,
		Data:     map[string]any{"image_url": created.ImageURL},
	})
	return created, nil
}

func (s *Store) record(ctx context.Context, ev audit.Event) {
	ev.At = time.Now().UTC()
	if err := s.audit.Record(ctx, ev); err != nil {
		s.logger.Warn("Failed to record audit event",
			zap.String("action", ev.Action),
			zap.String("entity_id", ev.EntityID),
			zap.Error(err))
	}
}
