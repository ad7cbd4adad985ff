package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"trade_go/internal/domain"
)

// Client talks to the order-routing gateway over REST. It implements
// domain.Broker. Order endpoints and market-data endpoints are throttled
// by separate token buckets so a burst of quote polling cannot starve
// order placement.
type Client struct {
	baseURL    string
	token      string
	accountID  string
	httpClient *http.Client
	logger     *slog.Logger

	orderLimiter  *rate.Limiter
	marketLimiter *rate.Limiter

	stream *Stream // optional, consulted for fresh quotes before REST
}

var _ domain.Broker = (*Client)(nil)

func NewClient(baseURL, token, accountID string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		token:         token,
		accountID:     accountID,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		logger:        logger,
		orderLimiter:  rate.NewLimiter(10, 5),
		marketLimiter: rate.NewLimiter(20, 10),
	}
}

// AttachStream makes the client answer OrderBook calls from the websocket
// quote cache when the cached entry is fresh.
func (c *Client) AttachStream(s *Stream) { c.stream = s }

func (c *Client) OrderBook(ctx context.Context, figi string) (domain.OrderBook, error) {
	if c.stream != nil {
		if book, ok := c.stream.Book(figi); ok {
			return book, nil
		}
	}
	if err := c.marketLimiter.Wait(ctx); err != nil {
		return domain.OrderBook{}, err
	}
	var resp orderBookResponse
	q := url.Values{"figi": {figi}, "depth": {"1"}}
	if err := c.do(ctx, http.MethodGet, "/v1/order-book?"+q.Encode(), nil, &resp); err != nil {
		return domain.OrderBook{}, err
	}
	if len(resp.Bids) == 0 || len(resp.Asks) == 0 {
		return domain.OrderBook{}, &domain.NetworkError{Op: "order-book " + figi, Err: fmt.Errorf("empty book"), Retriable: true}
	}
	return domain.OrderBook{Figi: resp.Figi, Bid: resp.Bids[0].Price, Ask: resp.Asks[0].Price}, nil
}

func (c *Client) LastPrices(ctx context.Context, figis []string) (map[string]decimal.Decimal, error) {
	if err := c.marketLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	q := url.Values{}
	for _, f := range figis {
		q.Add("figi", f)
	}
	var resp lastPricesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/last-prices?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(resp.LastPrices))
	for _, lp := range resp.LastPrices {
		out[lp.Figi] = lp.Price
	}
	return out, nil
}

func (c *Client) PostOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := c.orderLimiter.Wait(ctx); err != nil {
		return domain.OrderResult{}, err
	}
	body := postOrderRequest{
		Figi:          req.Figi,
		Direction:     direction(req.Sell),
		OrderType:     "limit",
		Quantity:      req.Lots,
		ClientOrderID: uuid.NewString(),
		AccountID:     c.accountID,
	}
	if req.Market {
		body.OrderType = "market"
	} else {
		body.Price = req.Price.String()
	}
	var resp postOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &resp); err != nil {
		return domain.OrderResult{}, err
	}
	if !accepted(resp.Status) {
		c.logger.Warn("order rejected", "figi", req.Figi, "status", resp.Status)
		return domain.OrderResult{}, domain.ErrOrderRejected
	}
	return domain.OrderResult{
		OrderID:      resp.OrderID,
		LotsExecuted: resp.LotsExecuted,
		ExecPrice:    resp.ExecutedOrderPrice,
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.orderLimiter.Wait(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/v1/orders/cancel", cancelOrderRequest{OrderID: orderID, AccountID: c.accountID}, nil)
}

func (c *Client) OrderState(ctx context.Context, orderID string) (domain.OrderState, error) {
	if err := c.orderLimiter.Wait(ctx); err != nil {
		return domain.OrderState{}, err
	}
	q := url.Values{"order_id": {orderID}, "account_id": {c.accountID}}
	var resp orderStateResponse
	if err := c.do(ctx, http.MethodGet, "/v1/orders/state?"+q.Encode(), nil, &resp); err != nil {
		return domain.OrderState{}, err
	}
	return domain.OrderState{
		LotsExecuted: resp.LotsExecuted,
		ExecPrice:    resp.ExecutedOrderPrice,
	}, nil
}

func (c *Client) PostStopOrder(ctx context.Context, req domain.StopOrderRequest) (string, error) {
	if err := c.orderLimiter.Wait(ctx); err != nil {
		return "", err
	}
	body := postStopOrderRequest{
		Figi:           req.Figi,
		Direction:      direction(req.Sell),
		StopOrderType:  "take_profit",
		ExpirationType: "good_till_date",
		Quantity:       req.Lots,
		Price:          req.Price.String(),
		StopPrice:      req.Price.String(),
		ExpireDate:     req.ExpireAt.UTC().Format(time.RFC3339),
		AccountID:      c.accountID,
	}
	var resp postStopOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/stop-orders", body, &resp); err != nil {
		return "", err
	}
	return resp.StopOrderID, nil
}

func (c *Client) CancelAllOrders(ctx context.Context) error {
	if err := c.orderLimiter.Wait(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/v1/orders/cancel-all", cancelOrderRequest{AccountID: c.accountID}, nil)
}

// do performs one request and decodes either the success payload or the
// gateway's error envelope. Transport failures and 5xx responses are
// retriable, business codes map to domain sentinels.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: method + " " + path, Err: err, Retriable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &domain.NetworkError{Op: method + " " + path, Err: fmt.Errorf("decode: %w", err), Retriable: true}
		}
		return nil
	}

	var apiErr apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &apiErr)
	switch apiErr.Code {
	case codeOrderRejected:
		return domain.ErrOrderRejected
	case codeAlreadyFilled:
		return domain.ErrAlreadyFilled
	case codeOrderNotFound:
		return domain.ErrOrderNotFound
	}
	return &domain.NetworkError{
		Op:        method + " " + path,
		Err:       fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Message),
		Retriable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
	}
}
