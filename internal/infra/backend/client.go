package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"trade_go/internal/domain"
)

// Client reads trade targets from the backend REST API and reports
// execution progress back. The backend owns asset metadata; this client
// never caches across calls.
type Client struct {
	host       string
	httpClient *http.Client
}

var _ domain.Backend = (*Client)(nil)

func NewClient(host string, timeout time.Duration) *Client {
	return &Client{
		host:       host,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Health(ctx context.Context) error {
	if err := c.get(ctx, "/api/v1/health/", nil); err != nil {
		return domain.ErrBackendDown
	}
	return nil
}

func (c *Client) SellBuyTargets(ctx context.Context) ([]domain.AssetRecord, error) {
	var recs []domain.AssetRecord
	if err := c.get(ctx, "/api/v1/sellbuy/", &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) SpreadTargets(ctx context.Context) ([]domain.SpreadRecord, error) {
	var recs []domain.SpreadRecord
	if err := c.get(ctx, "/api/v1/spreads/", &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) StopTargets(ctx context.Context, program domain.Program) ([]domain.AssetRecord, error) {
	var recs []domain.AssetRecord
	if err := c.get(ctx, fmt.Sprintf("/api/v1/%s/", program), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) TickerInfo(ctx context.Context, ticker string) (domain.AssetRecord, error) {
	var rec domain.AssetRecord
	if err := c.get(ctx, "/api/v1/tickers/"+ticker+"/", &rec); err != nil {
		return domain.AssetRecord{}, err
	}
	return rec, nil
}

// PatchExecuted reports cumulative executed units and the running average
// execution price for one target row.
func (c *Client) PatchExecuted(ctx context.Context, program domain.Program, id int64, executed int64, avgPrice decimal.Decimal) error {
	payload := map[string]any{
		"executed":   executed,
		"exec_price": avgPrice,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	path := fmt.Sprintf("/api/v1/%s/%d/", program, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.host+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build patch %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: "PATCH " + path, Err: err, Retriable: true}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.NetworkError{
			Op:        "PATCH " + path,
			Err:       fmt.Errorf("status %d", resp.StatusCode),
			Retriable: resp.StatusCode >= 500,
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: "GET " + path, Err: err, Retriable: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &domain.NetworkError{
			Op:        "GET " + path,
			Err:       fmt.Errorf("status %d", resp.StatusCode),
			Retriable: resp.StatusCode >= 500,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.NetworkError{Op: "GET " + path, Err: fmt.Errorf("decode: %w", err), Retriable: true}
	}
	return nil
}
