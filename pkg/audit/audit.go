package audit

import (
	"context"
	"time"
)

const (
	ActionCreateMenuItem = "create_menu_item"
	ActionDeleteMenuItem = "delete_menu_item"
	ActionCreateCategory = "create_category"
	ActionCreateOrder    = "create_order"
	ActionSetStatus      = "set_order_status"
	ActionDeleteOrder    = "delete_order"
)

// Event describes one successful mutation sent to the service.
type Event struct {
	Action   string
	Entity   string
	EntityID string
	Data     map[string]any
	At       time.Time
}

type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
