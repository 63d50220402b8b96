package board

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
	"go.uber.org/zap"
)

// Service is the order half of the remote restaurant service.
type Service interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	CreateOrder(ctx context.Context, customerRef string, lines []models.OrderLine) (models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// Store is the order board. It holds the last order list fetched from the
// service and forwards mutations without touching local state; the next
// refresh brings the authoritative result.
type Store struct {
	svc    Service
	audit  audit.Recorder
	logger *zap.Logger

	mu     sync.RWMutex
	orders []models.Order

	hub notify.Hub[[]models.Order]
}

func NewStore(svc Service, rec audit.Recorder, logger *zap.Logger) *Store {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Store{
		svc:    svc,
		audit:  rec,
		logger: logger.Named("board"),
	}
}

// Snapshot returns the current orders. Callers must not modify the slice.
func (s *Store) Snapshot() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders
}

func (s *Store) Order(id int64) (models.Order, bool) {
	for _, o := range s.Snapshot() {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// Replace installs a copy of orders and notifies subscribers.
func (s *Store) Replace(orders []models.Order) {
	next := append(make([]models.Order, 0, len(orders)), orders...)

	s.mu.Lock()
	s.orders = next
	s.mu.Unlock()

	s.hub.Publish(next)
}

func (s *Store) Subscribe(fn func([]models.Order)) func() {
	return s.hub.Subscribe(fn)
}

// RefreshTask fetches the order list for the refresh scheduler.
func (s *Store) RefreshTask() func(ctx context.Context) (func(), error) {
	return func(ctx context.Context) (func(), error) {
		orders, err := s.svc.ListOrders(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
		return func() { s.Replace(orders) }, nil
	}
}

// SetStatus asks the service to move an order to status. Any of the five
// statuses is sent as is, terminal source states included.
func (s *Store) SetStatus(ctx context.Context, id int64, status models.OrderStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, &models.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown order status %q", status)}
	}

	prev, known := s.Order(id)

	order, err := s.svc.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return models.Order{}, err
	}

	fields := []zap.Field{zap.Int64("order_id", id), zap.String("status", string(status))}
	if known && !CanTransition(prev.Status, status) {
		s.logger.Info("Order status set outside offered transitions",
			append(fields, zap.String("from", string(prev.Status)))...)
	}

	data := map[string]any{"status": string(status)}
	if known {
		data["from"] = string(prev.Status)
	}
	s.record(ctx, audit.Event{
		Action:   audit.ActionSetStatus,
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Data:     data,
	})
	return order, nil
}

// Submit places a new order. Input is validated before any network call.
func (s *Store) Submit(ctx context.Context, customerRef string, lines []models.OrderLine) (models.Order, error) {
	customerRef = strings.TrimSpace(customerRef)
	if customerRef == "" {
		return models.Order{}, &models.ValidationError{Field: "customer", Reason: "must not be empty"}
	}
	if len(lines) == 0 {
		return models.Order{}, &models.ValidationError{Field: "items", Reason: "order has no items"}
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return models.Order{}, &models.ValidationError{
				Field:  "quantity",
				Reason: fmt.Sprintf("item %d has non-positive quantity %d", l.ItemID, l.Quantity),
			}
		}
	}

	order, err := s.svc.CreateOrder(ctx, customerRef, lines)
	if err != nil {
		return models.Order{}, err
	}

	s.record(ctx, audit.Event{
		Action:   audit.ActionCreateOrder,
		Entity:   "order",
		EntityID: strconv.FormatInt(order.ID, 10),
		Data: map[string]any{
			"customer":     customerRef,
			"lines":        len(lines),
			"total_amount": order.TotalAmount.String(),
		},
	})
	return order, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.svc.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.record(ctx, audit.Event{
		Action:   audit.ActionDeleteOrder,
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
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
