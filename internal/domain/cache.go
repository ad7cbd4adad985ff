package domain

import "github.com/shopspring/decimal"

// InitialOrderID is the pseudo order id that carries fills executed in a
// previous run, reloaded from the backend on restart.
const InitialOrderID = "initial"

// CachedItem is one placed-order fragment: cumulative filled units and the
// average price they filled at.
type CachedItem struct {
	Amount int64
	Price  decimal.Decimal
}

// OrdersCache is the per-asset ledger of placed-order fragments. It maps
// order id to (filled amount, fill price) and keeps the aggregate filled
// amount and volume-weighted average price up to date.
type OrdersCache struct {
	orders   map[string]CachedItem
	amount   int64
	avgPrice decimal.Decimal
}

// NewOrdersCache creates a cache, seeding the "initial" entry when a prior
// session already executed part of the target.
func NewOrdersCache(amount int64, price decimal.Decimal) (*OrdersCache, error) {
	if amount < 0 {
		return nil, NewValidationError("cache amount must not be negative")
	}
	c := &OrdersCache{
		orders:   make(map[string]CachedItem),
		avgPrice: decimal.Zero,
	}
	if amount > 0 {
		if err := c.Update(InitialOrderID, amount, price); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Update records the cumulative fill for an order id. Brokers report
// cumulative amounts, so an update smaller than the cached value is a
// regression in the report stream and is ignored, never subtracted.
func (c *OrdersCache) Update(orderID string, amount int64, price decimal.Decimal) error {
	if orderID == "" {
		return NewValidationError("cache order id must not be empty")
	}
	if amount < 0 {
		return NewValidationError("cache amount must not be negative")
	}
	if prev, ok := c.orders[orderID]; ok && amount <= prev.Amount {
		return nil
	}
	c.orders[orderID] = CachedItem{Amount: amount, Price: price}
	c.recount()
	return nil
}

func (c *OrdersCache) recount() {
	var amount int64
	sum := decimal.Zero
	for _, item := range c.orders {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(item.Amount)))
		amount += item.Amount
	}
	c.amount = amount
	if amount == 0 {
		c.avgPrice = decimal.Zero
		return
	}
	c.avgPrice = sum.Div(decimal.NewFromInt(amount))
}

// Amount returns the total filled amount over all order ids.
func (c *OrdersCache) Amount() int64 {
	return c.amount
}

// AvgPrice returns the volume-weighted average fill price, zero when empty.
func (c *OrdersCache) AvgPrice() decimal.Decimal {
	return c.avgPrice
}

// AmountByID returns the filled amount recorded for one order id,
// zero when the id is unknown.
func (c *OrdersCache) AmountByID(orderID string) int64 {
	return c.orders[orderID].Amount
}

// PriceByID returns the fill price recorded for one order id,
// zero when the id is unknown.
func (c *OrdersCache) PriceByID(orderID string) decimal.Decimal {
	item, ok := c.orders[orderID]
	if !ok {
		return decimal.Zero
	}
	return item.Price
}

// Items returns a copy of the ledger for reporting.
func (c *OrdersCache) Items() map[string]CachedItem {
	items := make(map[string]CachedItem, len(c.orders))
	for id, item := range c.orders {
		items[id] = item
	}
	return items
}
