package broker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trade_go/internal/domain"
)

// Paper is a dry-run Broker. Quotes come from an upstream market-data
// source (normally the live Client), order placement is simulated: every
// order fills in full at its limit price, market orders at the crossing
// side of the current book.
type Paper struct {
	quotes domain.Broker
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]domain.OrderState
	stops  []domain.StopOrderRequest
}

var _ domain.Broker = (*Paper)(nil)

func NewPaper(quotes domain.Broker, logger *slog.Logger) *Paper {
	return &Paper{
		quotes: quotes,
		logger: logger,
		states: make(map[string]domain.OrderState),
	}
}

func (p *Paper) OrderBook(ctx context.Context, figi string) (domain.OrderBook, error) {
	return p.quotes.OrderBook(ctx, figi)
}

func (p *Paper) LastPrices(ctx context.Context, figis []string) (map[string]decimal.Decimal, error) {
	return p.quotes.LastPrices(ctx, figis)
}

func (p *Paper) PostOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	price := req.Price
	if req.Market {
		book, err := p.quotes.OrderBook(ctx, req.Figi)
		if err != nil {
			return domain.OrderResult{}, err
		}
		if req.Sell {
			price = book.SellPrice()
		} else {
			price = book.BuyPrice()
		}
	}

	id := uuid.NewString()
	p.mu.Lock()
	p.states[id] = domain.OrderState{LotsExecuted: req.Lots, ExecPrice: price}
	p.mu.Unlock()

	p.logger.Info("paper fill",
		"figi", req.Figi,
		"sell", req.Sell,
		"lots", req.Lots,
		"price", price.String(),
	)
	return domain.OrderResult{OrderID: id, LotsExecuted: req.Lots, ExecPrice: price}, nil
}

func (p *Paper) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	_, ok := p.states[orderID]
	p.mu.Unlock()
	if !ok {
		return domain.ErrOrderNotFound
	}
	// Paper orders fill instantly, so from the caller's point of view any
	// cancel arrives after the fill.
	return domain.ErrAlreadyFilled
}

func (p *Paper) OrderState(ctx context.Context, orderID string) (domain.OrderState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[orderID]
	if !ok {
		return domain.OrderState{}, domain.ErrOrderNotFound
	}
	return st, nil
}

func (p *Paper) PostStopOrder(ctx context.Context, req domain.StopOrderRequest) (string, error) {
	p.mu.Lock()
	p.stops = append(p.stops, req)
	p.mu.Unlock()
	p.logger.Info("paper stop",
		"figi", req.Figi,
		"sell", req.Sell,
		"lots", req.Lots,
		"price", req.Price.String(),
	)
	return uuid.NewString(), nil
}

func (p *Paper) CancelAllOrders(ctx context.Context) error {
	p.mu.Lock()
	p.stops = nil
	p.mu.Unlock()
	return nil
}
