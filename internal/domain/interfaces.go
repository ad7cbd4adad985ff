package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderBook is the top of book for one instrument.
type OrderBook struct {
	Figi string
	Bid  decimal.Decimal
	Ask  decimal.Decimal
}

// BuyPrice is the price an immediate buy would cross at.
func (b OrderBook) BuyPrice() decimal.Decimal { return b.Ask }

// SellPrice is the price an immediate sell would cross at.
func (b OrderBook) SellPrice() decimal.Decimal { return b.Bid }

// OrderRequest describes one order to place. Price is ignored for
// market orders. Lots is always whole lots, never raw units.
type OrderRequest struct {
	Figi   string
	Sell   bool
	Market bool
	Lots   int64
	Price  decimal.Decimal
}

// OrderResult is the broker's acknowledgement of a placed order.
type OrderResult struct {
	OrderID      string
	LotsExecuted int64
	ExecPrice    decimal.Decimal
}

// OrderState is the cumulative execution status of one order.
type OrderState struct {
	LotsExecuted int64
	ExecPrice    decimal.Decimal
}

// StopOrderRequest describes one protective stop to submit.
type StopOrderRequest struct {
	Figi     string
	Sell     bool
	Price    decimal.Decimal
	Lots     int64
	ExpireAt time.Time
}

// Broker is the remote order-routing service. Calls are stateless
// request/response; retry policy lives behind this interface, the caller's
// contract is only to tolerate transient failures.
type Broker interface {
	OrderBook(ctx context.Context, figi string) (OrderBook, error)
	LastPrices(ctx context.Context, figis []string) (map[string]decimal.Decimal, error)
	PostOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	OrderState(ctx context.Context, orderID string) (OrderState, error)
	PostStopOrder(ctx context.Context, req StopOrderRequest) (string, error)
	CancelAllOrders(ctx context.Context) error
}

// Backend is the persistence/API collaborator storing asset metadata and
// execution progress. Patch failures are logged and retried on the next
// cycle, never fatal.
type Backend interface {
	Health(ctx context.Context) error
	SellBuyTargets(ctx context.Context) ([]AssetRecord, error)
	SpreadTargets(ctx context.Context) ([]SpreadRecord, error)
	StopTargets(ctx context.Context, program Program) ([]AssetRecord, error)
	TickerInfo(ctx context.Context, ticker string) (AssetRecord, error)
	PatchExecuted(ctx context.Context, program Program, id int64, executed int64, avgPrice decimal.Decimal) error
}

// Notifier delivers operator-facing progress and warning messages.
type Notifier interface {
	Notify(text string)
}

// Program identifies one trading routine against the backend API.
type Program string

const (
	ProgramSellBuy      Program = "sellbuy"
	ProgramSpreads      Program = "spreads"
	ProgramStops        Program = "stops"
	ProgramShorts       Program = "shorts"
	ProgramRestoreStops Program = "restorestops"
)
