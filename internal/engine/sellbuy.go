package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"trade_go/internal/domain"
	"trade_go/internal/infra"
)

// SellBuy runs the plain limit-order execution program: every active
// backend target gets a goroutine that works its amount off lot by lot.
// The returned report is one line per finished target.
func (e *Engine) SellBuy(ctx context.Context) (string, error) {
	if err := e.backend.Health(ctx); err != nil {
		return "", err
	}
	recs, err := e.backend.SellBuyTargets(ctx)
	if err != nil {
		return "", err
	}

	var assets []*domain.Asset
	for _, rec := range recs {
		e.resumeFrom(domain.ProgramSellBuy, &rec)
		asset, err := domain.NewAsset(rec, e.broker)
		if err != nil {
			return "", err
		}
		if asset.Done() {
			continue
		}
		assets = append(assets, asset)
	}
	if len(assets) == 0 {
		return "No active assets to sell or buy", nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		summaries []string
		failed    int
	)
	for _, asset := range assets {
		wg.Add(1)
		go func(a *domain.Asset) {
			defer wg.Done()
			line, err := e.ProcessAsset(ctx, a)
			if err != nil {
				e.logger.Error("asset loop aborted", "ticker", a.Ticker, "error", err)
				e.notify(a.Ticker + ": " + err.Error())
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			summaries = append(summaries, line)
			mu.Unlock()
		}(asset)
	}
	wg.Wait()

	if failed > 0 {
		summaries = append(summaries, fmt.Sprintf("%d of %d assets failed", failed, len(assets)))
	}
	return strings.Join(summaries, "\n"), nil
}

// ProcessAsset drives one asset to completion. Each cycle refreshes the
// quote, pulls the resting order when the market moved, reconciles fills
// and re-quotes the residual. Cancellation safety: an order is never left
// resting and fills recorded before exit are reported.
func (e *Engine) ProcessAsset(ctx context.Context, asset *domain.Asset) (string, error) {
	clock := e.assetClock(asset)
	lastReported := asset.Executed()

	for !asset.Done() {
		if ctx.Err() != nil {
			break
		}

		if !clock.IsTradingNow() {
			if asset.OrderPlaced {
				if err := asset.CancelOrder(ctx); err != nil {
					if err = e.handleLoopError(domain.ProgramSellBuy, asset.Ticker, err); err != nil {
						e.finishAsset(asset, domain.ProgramSellBuy, &lastReported)
						return "", err
					}
				} else {
					infra.OrdersCancelled.Inc()
				}
				if err := asset.UpdateExecuted(ctx); err != nil {
					if err = e.handleLoopError(domain.ProgramSellBuy, asset.Ticker, err); err != nil {
						e.finishAsset(asset, domain.ProgramSellBuy, &lastReported)
						return "", err
					}
				}
			}
			if err := e.waitForSession(ctx, clock, asset.Ticker); err != nil {
				if ctx.Err() != nil {
					continue
				}
				e.finishAsset(asset, domain.ProgramSellBuy, &lastReported)
				return "", err
			}
			continue
		}

		if err := e.assetCycle(ctx, asset, &lastReported); err != nil {
			if err = e.handleLoopError(domain.ProgramSellBuy, asset.Ticker, err); err != nil {
				e.finishAsset(asset, domain.ProgramSellBuy, &lastReported)
				return "", err
			}
		}
		if asset.Done() {
			break
		}
		if err := sleep(ctx, e.pause); err != nil {
			continue
		}
	}

	e.finishAsset(asset, domain.ProgramSellBuy, &lastReported)
	line := progressLine(asset.Ticker, asset.Executed(), asset.Amount, asset.AvgExecPrice())
	e.notify(line)
	return line, nil
}

// assetCycle is one pass of the execution loop.
func (e *Engine) assetCycle(ctx context.Context, asset *domain.Asset, lastReported *int64) error {
	if err := asset.RefreshOrderPrice(ctx); err != nil {
		return err
	}

	// A resting order at a stale price blocks the queue position race.
	// Pull it and let the residual re-quote at the fresh price.
	if asset.OrderPlaced && !asset.NewPrice.Equal(asset.LastPrice) {
		if err := asset.CancelOrder(ctx); err != nil {
			return err
		}
		infra.OrdersCancelled.Inc()
	}

	if asset.OrderID != "" {
		if err := asset.UpdateExecuted(ctx); err != nil {
			return err
		}
	}
	if executed := asset.Executed(); executed > *lastReported {
		e.checkpoint(ctx, domain.ProgramSellBuy, asset.ID, asset.Ticker, executed, asset.AvgExecPrice())
		*lastReported = executed
	}
	if asset.Done() {
		return nil
	}

	if !asset.OrderPlaced && asset.Lots(asset.NextOrderAmount()) >= 1 {
		if err := asset.PlaceLimitOrder(ctx); err != nil {
			return err
		}
		asset.LastPrice = asset.NewPrice
		infra.OrdersPlaced.WithLabelValues("limit", infra.OrderSide(asset.Sell)).Inc()
		e.logger.Info("limit order placed",
			"ticker", asset.Ticker,
			"sell", asset.Sell,
			"price", asset.Price.String(),
			"left", asset.NextOrderAmount(),
		)
	}
	return nil
}

// finishAsset is the cleanup path shared by completion and cancellation.
// It runs on a fresh timeout context because the loop context may already
// be dead: pull the resting order, reconcile the last fills and report.
func (e *Engine) finishAsset(asset *domain.Asset, program domain.Program, lastReported *int64) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if asset.OrderPlaced {
		if err := asset.CancelOrder(ctx); err != nil {
			e.logger.Error("cleanup cancel failed", "ticker", asset.Ticker, "error", err)
		} else {
			infra.OrdersCancelled.Inc()
		}
	}
	if asset.OrderID != "" {
		if err := asset.UpdateExecuted(ctx); err != nil {
			e.logger.Error("cleanup reconcile failed", "ticker", asset.Ticker, "error", err)
		}
	}
	if executed := asset.Executed(); executed > *lastReported {
		e.checkpoint(ctx, program, asset.ID, asset.Ticker, executed, asset.AvgExecPrice())
		*lastReported = executed
	}
	if asset.Done() {
		e.clearCheckpoint(program, asset.ID, asset.Ticker)
	}
}
