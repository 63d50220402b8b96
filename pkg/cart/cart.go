package cart

import (
	"sort"

	"github.com/example/orderdesk/pkg/models"
	"github.com/shopspring/decimal"
)

// Pricer looks up the current price of a menu item.
type Pricer interface {
	Price(itemID int64) (decimal.Decimal, bool)
}

// Cart maps item ids to quantities. It is a value: every operation returns
// a new Cart and leaves the receiver untouched. No line ever holds a
// quantity below 1.
type Cart struct {
	lines map[int64]int
}

type Line struct {
	ItemID   int64
	Quantity int
}

func New() Cart { return Cart{} }

func (c Cart) clone() Cart {
	lines := make(map[int64]int, len(c.lines)+1)
	for id, q := range c.lines {
		lines[id] = q
	}
	return Cart{lines: lines}
}

// Add increments the quantity of item, inserting it at 1.
func (c Cart) Add(item models.MenuItem) Cart {
	next := c.clone()
	next.lines[item.ID]++
	return next
}

// Remove decrements the quantity of item and drops the line when it would
// reach zero. Removing an absent item is a no-op.
func (c Cart) Remove(item models.MenuItem) Cart {
	if _, ok := c.lines[item.ID]; !ok {
		return c
	}
	next := c.clone()
	if next.lines[item.ID] <= 1 {
		delete(next.lines, item.ID)
	} else {
		next.lines[item.ID]--
	}
	return next
}

// Merge adds every line of other to c.
func (c Cart) Merge(other Cart) Cart {
	if other.IsEmpty() {
		return c
	}
	next := c.clone()
	for id, q := range other.lines {
		next.lines[id] += q
	}
	return next
}

func (c Cart) Quantity(itemID int64) int { return c.lines[itemID] }

func (c Cart) Len() int { return len(c.lines) }

func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns the cart content ordered by item id.
func (c Cart) Lines() []Line {
	out := make([]Line, 0, len(c.lines))
	for id, q := range c.lines {
		out = append(out, Line{ItemID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// OrderLines translates the cart into the lines of a new order.
func (c Cart) OrderLines() []models.OrderLine {
	lines := c.Lines()
	out := make([]models.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = models.OrderLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return out
}

// Total is the pre-submission estimate: the sum of price x quantity over
// lines whose item is still in the catalog. Unknown items contribute zero.
func (c Cart) Total(p Pricer) decimal.Decimal {
	total := decimal.Zero
	for id, q := range c.lines {
		price, ok := p.Price(id)
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(q))))
	}
	return total
}
