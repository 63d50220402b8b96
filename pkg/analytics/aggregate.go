package analytics

import (
	"sort"

	"github.com/example/orderdesk/pkg/models"
	"github.com/shopspring/decimal"
)

type ItemStats struct {
	Name         string
	QuantitySold int
	Revenue      decimal.Decimal
}

// RevenueString renders revenue rounded to cents.
func (s ItemStats) RevenueString() string {
	return s.Revenue.StringFixed(2)
}

// Snapshot is derived from one set of orders and never patched.
// StatusCounts holds exactly the known statuses; orders in any other state
// are tallied in UnknownStatus.
type Snapshot struct {
	PerItem       map[string]ItemStats
	StatusCounts  map[models.OrderStatus]int
	UnknownStatus int
	TotalOrders   int
}

// Items returns per-item stats by revenue descending, then name.
func (s Snapshot) Items() []ItemStats {
	out := make([]ItemStats, 0, len(s.PerItem))
	for _, st := range s.PerItem {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s Snapshot) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, st := range s.PerItem {
		total = total.Add(st.Revenue)
	}
	return total
}

// Aggregate computes per-item and per-status metrics over every order,
// whatever its status. A line's unit price comes from its resolved menu
// item, then from the catalog entry with the same id, else zero.
func Aggregate(orders []models.Order, menuItems []models.MenuItem) Snapshot {
	prices := make(map[int64]decimal.Decimal, len(menuItems))
	for _, m := range menuItems {
		prices[m.ID] = m.Price
	}

	snap := Snapshot{
		PerItem:      make(map[string]ItemStats),
		StatusCounts: make(map[models.OrderStatus]int, len(models.AllStatuses)),
		TotalOrders:  len(orders),
	}
	for _, st := range models.AllStatuses {
		snap.StatusCounts[st] = 0
	}

	for _, o := range orders {
		if o.Status.Valid() {
			snap.StatusCounts[o.Status]++
		} else {
			snap.UnknownStatus++
		}

		for _, line := range o.Items {
			unit := prices[line.ItemID]
			if m, ok := line.MenuItem.Get(); ok {
				unit = m.Price
			}

			name := line.DisplayName()
			st := snap.PerItem[name]
			st.Name = name
			st.QuantitySold += line.Quantity
			st.Revenue = st.Revenue.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
			snap.PerItem[name] = st
		}
	}

	return snap
}
