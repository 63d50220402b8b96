package board

import (
	"encoding/json"
	"testing"

	"github.com/example/orderdesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferedTransitionsAreExactlySix(t *testing.T) {
	type edge struct{ from, to models.OrderStatus }

	want := map[edge]bool{
		{models.StatusPending, models.StatusPreparing}:   true,
		{models.StatusPreparing, models.StatusReady}:     true,
		{models.StatusReady, models.StatusCompleted}:     true,
		{models.StatusPending, models.StatusCancelled}:   true,
		{models.StatusPreparing, models.StatusCancelled}: true,
		{models.StatusReady, models.StatusCancelled}:     true,
	}

	got := map[edge]bool{}
	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			if CanTransition(from, to) {
				got[edge{from, to}] = true
			}
		}
	}
	assert.Equal(t, want, got)

	offered := 0
	for _, from := range models.AllStatuses {
		offered += len(NextStatuses(from))
	}
	assert.Equal(t, 6, offered)
}

func TestTerminalStatesOfferNothing(t *testing.T) {
	for _, s := range []models.OrderStatus{models.StatusCompleted, models.StatusCancelled} {
		assert.True(t, IsTerminal(s))
		assert.Empty(t, NextStatuses(s))
	}
	assert.False(t, IsTerminal(models.StatusReady))
	assert.Empty(t, NextStatuses("Lost"))
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextStatuses(models.StatusPending)
	next[0] = models.StatusCompleted

	assert.Equal(t, []models.OrderStatus{models.StatusPreparing, models.StatusCancelled}, NextStatuses(models.StatusPending))
}

func TestDecodedStatusOffersTransitions(t *testing.T) {
	var o models.Order
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "order_status": "pending"}`), &o))

	assert.True(t, CanTransition(o.Status, models.StatusPreparing))
	assert.Equal(t, []models.OrderStatus{models.StatusPreparing, models.StatusCancelled}, NextStatuses(o.Status))
}
