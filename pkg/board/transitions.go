package board

import "github.com/example/orderdesk/pkg/models"

// transitions is the control surface: the only moves the dashboard offers.
// The service itself accepts any status, so this table is advisory.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:   {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing: {models.StatusReady, models.StatusCancelled},
	models.StatusReady:     {models.StatusCompleted, models.StatusCancelled},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses offered from `from`, empty for terminal
// or unknown states.
func NextStatuses(from models.OrderStatus) []models.OrderStatus {
	next := transitions[from]
	return append(make([]models.OrderStatus, 0, len(next)), next...)
}

func IsTerminal(s models.OrderStatus) bool {
	return s == models.StatusCompleted || s == models.StatusCancelled
}
