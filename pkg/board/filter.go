package board

import (
	"strconv"
	"strings"

	"github.com/example/orderdesk/pkg/models"
)

// Filter returns the orders and menu items matching query. Matching is a
// case-insensitive substring test, OR across fields, with the query taken
// as typed. A blank query matches everything.
func Filter(orders []models.Order, items []models.MenuItem, query string) ([]models.Order, []models.MenuItem) {
	if strings.TrimSpace(query) == "" {
		return append([]models.Order(nil), orders...), append([]models.MenuItem(nil), items...)
	}
	q := strings.ToLower(query)

	matchedOrders := make([]models.Order, 0)
	for _, o := range orders {
		if orderMatches(o, q) {
			matchedOrders = append(matchedOrders, o)
		}
	}

	matchedItems := make([]models.MenuItem, 0)
	for _, it := range items {
		if itemMatches(it, q) {
			matchedItems = append(matchedItems, it)
		}
	}

	return matchedOrders, matchedItems
}

func contains(field, q string) bool {
	return strings.Contains(strings.ToLower(field), q)
}

func orderMatches(o models.Order, q string) bool {
	if contains(o.CustomerRef, q) ||
		contains(strconv.FormatInt(o.ID, 10), q) ||
		contains(string(o.Status), q) {
		return true
	}
	for _, line := range o.Items {
		// unresolved lines have no name to match
		if m, ok := line.MenuItem.Get(); ok && contains(m.Name, q) {
			return true
		}
	}
	return false
}

func itemMatches(it models.MenuItem, q string) bool {
	return contains(it.Name, q) || contains(it.Category, q) || contains(it.Description, q)
}
