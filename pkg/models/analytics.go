package models

import "github.com/shopspring/decimal"

// ItemIncome is one row of the service's own per-item aggregation.
type ItemIncome struct {
	Name     string          `json:"name"`
	Income   decimal.Decimal `json:"income"`
	Quantity int             `json:"quantity"`
}

// OrderStatistics is the service's status histogram.
type OrderStatistics struct {
	Pending   int `json:"pending"`
	Preparing int `json:"preparing"`
	Ready     int `json:"ready"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

func (s OrderStatistics) Counts() map[OrderStatus]int {
	return map[OrderStatus]int{
		StatusPending:   s.Pending,
		StatusPreparing: s.Preparing,
		StatusReady:     s.Ready,
		StatusCompleted: s.Completed,
		StatusCancelled: s.Cancelled,
	}
}
