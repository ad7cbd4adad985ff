package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"trade_go/pkg/quant"
)

// Asset classes as stored by the backend.
const (
	AssetTypeStock  = "S"
	AssetTypeFuture = "F"
	AssetTypeBond   = "B"
)

// Asset is one tradable instrument inside one trading program. It owns
// price discovery, order placement and fill reconciliation for its leg.
// An Asset is mutated by exactly one execution loop at a time.
type Asset struct {
	ID             int64
	Ticker         string
	Figi           string
	Increment      decimal.Decimal
	Lot            int64
	AssetType      string
	Sell           bool
	Amount         int64
	Price          decimal.Decimal // last known quote, used for stop sizing
	MorningTrading bool
	EveningTrading bool

	// Live quote state refreshed every cycle.
	NewPrice         decimal.Decimal
	LastPrice        decimal.Decimal
	ClosestExecPrice decimal.Decimal

	// Current open order, if any.
	OrderID     string
	OrderPlaced bool

	broker Broker
	cache  *OrdersCache
}

// NewAsset builds an Asset from a backend record. A nonzero executed amount
// seeds the order cache under the "initial" pseudo id so the loop resumes
// where the previous run stopped.
func NewAsset(rec AssetRecord, broker Broker) (*Asset, error) {
	if rec.Lot <= 0 {
		return nil, NewValidationError(fmt.Sprintf("%s: lot size must be positive", rec.Ticker))
	}
	if rec.Increment.Sign() <= 0 {
		return nil, NewValidationError(fmt.Sprintf("%s: price increment must be positive", rec.Ticker))
	}
	cache, err := NewOrdersCache(rec.Executed, rec.AvgPrice)
	if err != nil {
		return nil, err
	}
	return &Asset{
		ID:             rec.ID,
		Ticker:         rec.Ticker,
		Figi:           rec.Figi,
		Increment:      rec.Increment,
		Lot:            rec.Lot,
		AssetType:      rec.AssetType,
		Sell:           rec.Sell,
		Amount:         rec.Amount,
		Price:          rec.Price,
		MorningTrading: rec.MorningTrading,
		EveningTrading: rec.EveningTrading,
		broker:         broker,
		cache:          cache,
	}, nil
}

func (a *Asset) String() string {
	return a.Ticker
}

// Cache exposes the order ledger for reporting.
func (a *Asset) Cache() *OrdersCache {
	return a.cache
}

// Executed is the cumulative filled amount, derived from the cache.
func (a *Asset) Executed() int64 {
	return a.cache.Amount()
}

// AvgExecPrice is the volume-weighted average fill price.
func (a *Asset) AvgExecPrice() decimal.Decimal {
	return a.cache.AvgPrice()
}

// NextOrderAmount is the remaining target. A negative value means execution
// overshot the target, which is an invariant violation upstream.
func (a *Asset) NextOrderAmount() int64 {
	return a.Amount - a.Executed()
}

// Done reports whether the residual is too small to trade. A remainder
// below one lot is accepted as complete.
func (a *Asset) Done() bool {
	return a.NextOrderAmount() < a.Lot
}

// CorrectPrice floors a price to the instrument's tick size.
func (a *Asset) CorrectPrice(price decimal.Decimal) (decimal.Decimal, error) {
	p, err := quant.CorrectPrice(price, a.Increment)
	if err != nil {
		return decimal.Zero, NewValidationError(fmt.Sprintf("%s: %v", a.Ticker, err))
	}
	return p, nil
}

// Lots converts raw units into whole lots for this instrument.
func (a *Asset) Lots(units int64) int64 {
	return quant.Lots(units, a.Lot)
}

// RefreshOrderPrice queries the order book for the best price to cross:
// the ask for a buy, the bid for a sell. The result lands in NewPrice.
func (a *Asset) RefreshOrderPrice(ctx context.Context) error {
	book, err := a.broker.OrderBook(ctx, a.Figi)
	if err != nil {
		return err
	}
	if a.Sell {
		a.NewPrice = book.SellPrice()
	} else {
		a.NewPrice = book.BuyPrice()
	}
	return nil
}

// RefreshClosestExecPrice queries the price an immediate trade in this
// asset's direction would execute at. Spread legs use it for the
// economics check before the far leg commits.
func (a *Asset) RefreshClosestExecPrice(ctx context.Context) error {
	book, err := a.broker.OrderBook(ctx, a.Figi)
	if err != nil {
		return err
	}
	if a.Sell {
		a.ClosestExecPrice = book.SellPrice()
	} else {
		a.ClosestExecPrice = book.BuyPrice()
	}
	return nil
}

// PlaceLimitOrder submits a limit order for the remaining target at
// NewPrice floored to the tick size. Submitting less than one lot is a
// programming error and is rejected before the broker sees it.
func (a *Asset) PlaceLimitOrder(ctx context.Context) error {
	lots := a.Lots(a.NextOrderAmount())
	if lots < 1 {
		return NewValidationError(fmt.Sprintf("%s: order below one lot", a.Ticker))
	}
	price, err := a.CorrectPrice(a.NewPrice)
	if err != nil {
		return err
	}
	res, err := a.broker.PostOrder(ctx, OrderRequest{
		Figi:  a.Figi,
		Sell:  a.Sell,
		Lots:  lots,
		Price: price,
	})
	if err != nil {
		a.OrderPlaced = false
		return err
	}
	a.OrderID = res.OrderID
	a.OrderPlaced = true
	a.Price = price
	return nil
}

// PlaceMarketOrder submits an immediate order for the given unit count,
// accepting slippage. Used by spread leg coupling where the near leg must
// follow fills, not seek price improvement.
func (a *Asset) PlaceMarketOrder(ctx context.Context, units int64) error {
	lots := a.Lots(units)
	if lots < 1 {
		return NewValidationError(fmt.Sprintf("%s: market order below one lot", a.Ticker))
	}
	res, err := a.broker.PostOrder(ctx, OrderRequest{
		Figi:   a.Figi,
		Sell:   a.Sell,
		Market: true,
		Lots:   lots,
	})
	if err != nil {
		return err
	}
	// Market orders do not rest; keep the id for fill reconciliation only.
	a.OrderID = res.OrderID
	a.OrderPlaced = false
	return nil
}

// CancelOrder asks the broker to pull the resting order. A cancel that
// raced a full fill is a benign no-op, the fill shows up in the next
// reconciliation.
func (a *Asset) CancelOrder(ctx context.Context) error {
	if a.OrderID == "" {
		return nil
	}
	if err := a.broker.CancelOrder(ctx, a.OrderID); err != nil && !errors.Is(err, ErrAlreadyFilled) {
		return err
	}
	a.OrderPlaced = false
	return nil
}

// UpdateExecuted reconciles the current order's cumulative fill into the
// cache. The cache update is monotonic, so a broker report of fewer filled
// lots than already recorded changes nothing.
func (a *Asset) UpdateExecuted(ctx context.Context) error {
	if a.OrderID == "" {
		return nil
	}
	state, err := a.broker.OrderState(ctx, a.OrderID)
	if err != nil {
		return err
	}
	if state.LotsExecuted > 0 {
		return a.cache.Update(a.OrderID, state.LotsExecuted*a.Lot, state.ExecPrice)
	}
	return nil
}
