package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order as reported by the service.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusPreparing OrderStatus = "Preparing"
	StatusReady     OrderStatus = "Ready"
	StatusCompleted OrderStatus = "Completed"
	StatusCancelled OrderStatus = "Cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
	StatusCancelled,
}

// ParseOrderStatus matches s case-insensitively against the known statuses.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range AllStatuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// Valid reports whether s is exactly one of the known status names.
func (s OrderStatus) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// UnmarshalJSON normalizes known statuses to their canonical spelling.
// Unknown values are kept verbatim and report !Valid().
func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed to decode order status: %w", err)
	}
	if st, ok := ParseOrderStatus(raw); ok {
		*s = st
		return nil
	}
	*s = OrderStatus(raw)
	return nil
}

type Order struct {
	ID           int64           `json:"id"`
	CustomerRef  string          `json:"user_details"`
	Items        []OrderItem     `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       OrderStatus     `json:"order_status"`
	TrackingCode string          `json:"tracking_code,omitempty"`
	CreatedAt    Timestamp       `json:"created_at"`
}

type OrderItem struct {
	ItemID   int64      `json:"item_id"`
	Quantity int        `json:"quantity"`
	MenuItem Resolution `json:"menu_item"`
}

// DisplayName is the resolved menu item name, or "Item {id}" when the
// referenced item no longer exists.
func (i OrderItem) DisplayName() string {
	if m, ok := i.MenuItem.Get(); ok {
		return m.Name
	}
	return fmt.Sprintf("Item %d", i.ItemID)
}

// OrderLine is one requested line of a new order.
type OrderLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// Resolution is the optional join from an order line to its menu item.
// The zero value is unresolved.
type Resolution struct {
	item    MenuItem
	present bool
}

func Resolved(m MenuItem) Resolution { return Resolution{item: m, present: true} }

func Unresolved() Resolution { return Resolution{} }

func (r Resolution) Get() (MenuItem, bool) { return r.item, r.present }

func (r Resolution) MarshalJSON() ([]byte, error) {
	if !r.present {
		return []byte("null"), nil
	}
	return json.Marshal(r.item)
}

func (r *Resolution) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = Resolution{}
		return nil
	}
	var m MenuItem
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("failed to decode menu_item: %w", err)
	}
	*r = Resolved(m)
	return nil
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO form the
// service emits, which is read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, *s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", *s)
}
