package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// fakeBroker is a scripted Broker for domain tests.
type fakeBroker struct {
	book      OrderBook
	bookErr   error
	posted    []OrderRequest
	postRes   OrderResult
	postErr   error
	cancelled []string
	cancelErr error
	states    map[string]OrderState
	stateErr  error
	stops     []StopOrderRequest
}

var _ Broker = (*fakeBroker)(nil)

func (f *fakeBroker) OrderBook(ctx context.Context, figi string) (OrderBook, error) {
	if f.bookErr != nil {
		return OrderBook{}, f.bookErr
	}
	return f.book, nil
}

func (f *fakeBroker) LastPrices(ctx context.Context, figis []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(figis))
	for _, figi := range figis {
		prices[figi] = f.book.Bid
	}
	return prices, nil
}

func (f *fakeBroker) PostOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if f.postErr != nil {
		return OrderResult{}, f.postErr
	}
	f.posted = append(f.posted, req)
	res := f.postRes
	if res.OrderID == "" {
		res.OrderID = fmt.Sprintf("order-%d", len(f.posted))
	}
	return res, nil
}

func (f *fakeBroker) CancelOrder(ctx context.Context, orderID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeBroker) OrderState(ctx context.Context, orderID string) (OrderState, error) {
	if f.stateErr != nil {
		return OrderState{}, f.stateErr
	}
	return f.states[orderID], nil
}

func (f *fakeBroker) PostStopOrder(ctx context.Context, req StopOrderRequest) (string, error) {
	f.stops = append(f.stops, req)
	return fmt.Sprintf("stop-%d", len(f.stops)), nil
}

func (f *fakeBroker) CancelAllOrders(ctx context.Context) error {
	return nil
}
