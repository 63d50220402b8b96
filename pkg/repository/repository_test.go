package repository

import (
	"testing"
	"time"

	"github.com/example/orderdesk/pkg/audit"
	"github.com/stretchr/testify/assert"
)

func TestOfferKeepsNewest(t *testing.T) {
	ch := make(chan int, 1)

	offer(ch, 1)
	offer(ch, 2)
	offer(ch, 3)

	assert.Equal(t, 3, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestNewAuditLog(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := audit.Event{
		Action:   audit.ActionSetStatus,
		Entity:   "order",
		EntityID: "12",
		Data:     map[string]any{"status": "Ready"},
		At:       at,
	}

	log := newAuditLog(ev)

	assert.Equal(t, "orderdesk", log.Service)
	assert.Equal(t, "set_order_status", log.Action)
	assert.Equal(t, "order", log.Entity)
	assert.Equal(t, "12", log.EntityID)
	assert.Equal(t, "Ready", log.Data["status"])
	assert.Equal(t, at, log.CreatedAt)

	ev.Data["status"] = "Completed"
	assert.Equal(t, "Ready", log.Data["status"], "data is copied")
}

func TestNewAuditLogStampsMissingTime(t *testing.T) {
	log := newAuditLog(audit.Event{Action: audit.ActionDeleteOrder})
	assert.False(t, log.CreatedAt.IsZero())
	assert.NotNil(t, log.Data)
}
