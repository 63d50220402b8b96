package cart

import (
	"math/rand"
	"testing"

	"github.com/example/orderdesk/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceTable map[int64]decimal.Decimal

func (p priceTable) Price(id int64) (decimal.Decimal, bool) {
	v, ok := p[id]
	return v, ok
}

func item(id int64, price string) models.MenuItem {
	return models.MenuItem{ID: id, Name: "item", Price: decimal.RequireFromString(price)}
}

func TestCartRoundTrip(t *testing.T) {
	burger := item(3, "4.50")
	prices := priceTable{3: burger.Price}

	c := New().Add(burger).Add(burger)
	require.Equal(t, 2, c.Quantity(3))
	assert.Equal(t, "9.00", c.Total(prices).StringFixed(2))

	c = c.Add(burger)
	require.Equal(t, 3, c.Quantity(3))
	assert.Equal(t, "13.50", c.Total(prices).StringFixed(2))

	c = c.Remove(burger)
	require.Equal(t, 2, c.Quantity(3))
	assert.Equal(t, "9.00", c.Total(prices).StringFixed(2))
}

func TestCartValueSemantics(t *testing.T) {
	fries := item(1, "2.00")

	empty := New()
	one := empty.Add(fries)

	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 1, one.Quantity(1))

	none := one.Remove(fries)
	assert.Equal(t, 1, one.Quantity(1), "receiver must not change")
	assert.True(t, none.IsEmpty())
}

func TestCartRemoveDropsLine(t *testing.T) {
	fries := item(1, "2.00")

	c := New().Add(fries).Remove(fries)
	assert.Equal(t, 0, c.Len())

	c = c.Remove(fries)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Lines())
}

func TestCartNeverHoldsNonPositiveQuantity(t *testing.T) {
	items := []models.MenuItem{item(1, "1.25"), item(2, "3.10"), item(3, "0.99")}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		c := New()
		for step := 0; step < 50; step++ {
			it := items[rng.Intn(len(items))]
			if rng.Intn(2) == 0 {
				c = c.Add(it)
			} else {
				c = c.Remove(it)
			}
			for _, l := range c.Lines() {
				require.Greater(t, l.Quantity, 0, "run %d step %d", run, step)
			}
		}
	}
}

func TestCartTotalMatchesLineSum(t *testing.T) {
	items := []models.MenuItem{item(1, "1.25"), item(2, "3.10"), item(3, "0.99")}
	prices := priceTable{1: items[0].Price, 2: items[1].Price, 3: items[2].Price}
	rng := rand.New(rand.NewSource(7))

	c := New()
	for i := 0; i < 100; i++ {
		c = c.Add(items[rng.Intn(len(items))])
	}

	want := decimal.Zero
	for _, l := range c.Lines() {
		want = want.Add(prices[l.ItemID].Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	assert.True(t, want.Equal(c.Total(prices)), "want %s got %s", want, c.Total(prices))
}

func TestCartTotalIgnoresItemsMissingFromCatalog(t *testing.T) {
	kept := item(1, "5.00")
	pruned := item(99, "100.00")

	c := New().Add(kept).Add(pruned).Add(pruned)

	total := c.Total(priceTable{1: kept.Price})
	assert.Equal(t, "5.00", total.StringFixed(2))
}

func TestCartOrderLinesSortedByID(t *testing.T) {
	c := New().Add(item(9, "1")).Add(item(2, "1")).Add(item(5, "1")).Add(item(2, "1"))

	assert.Equal(t, []models.OrderLine{
		{ItemID: 2, Quantity: 2},
		{ItemID: 5, Quantity: 1},
		{ItemID: 9, Quantity: 1},
	}, c.OrderLines())
}

func TestSessions(t *testing.T) {
	s := NewSessions()
	fries := item(1, "2.00")

	s.Update("a", func(c Cart) Cart { return c.Add(fries) })
	s.Update("a", func(c Cart) Cart { return c.Add(fries) })
	s.Update("b", func(c Cart) Cart { return c.Add(fries) })

	assert.Equal(t, 2, s.Get("a").Quantity(1))
	assert.Equal(t, 1, s.Get("b").Quantity(1))

	s.Update("b", func(c Cart) Cart { return c.Remove(fries) })
	assert.True(t, s.Get("b").IsEmpty())

	s.Take("a")
	assert.True(t, s.Get("a").IsEmpty())
}

func TestCartMerge(t *testing.T) {
	a := New().Add(item(1, "1")).Add(item(1, "1"))
	b := New().Add(item(1, "1")).Add(item(2, "1"))

	merged := a.Merge(b)
	assert.Equal(t, 3, merged.Quantity(1))
	assert.Equal(t, 1, merged.Quantity(2))
	assert.Equal(t, 2, a.Quantity(1), "receiver must not change")
	assert.Equal(t, a, a.Merge(New()))
}

func TestSessionsTakeAndRestore(t *testing.T) {
	s := NewSessions()
	fries := item(1, "2.00")
	cola := item(2, "1.50")

	s.Update("a", func(c Cart) Cart { return c.Add(fries).Add(fries) })

	taken := s.Take("a")
	assert.Equal(t, 2, taken.Quantity(1))
	assert.True(t, s.Get("a").IsEmpty())

	// added while the taken cart is being submitted
	s.Update("a", func(c Cart) Cart { return c.Add(cola) })
	assert.Equal(t, 1, s.Get("a").Quantity(2), "later additions are kept")

	s.Restore("a", taken)
	assert.Equal(t, 2, s.Get("a").Quantity(1))
	assert.Equal(t, 1, s.Get("a").Quantity(2))

	s.Restore("b", New())
	assert.True(t, s.Get("b").IsEmpty())
}
