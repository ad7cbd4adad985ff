package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"trade_go/internal/domain"
	"trade_go/internal/infra"
)

// Spreads runs the statistical-arbitrage program: each active spread gets
// a goroutine that works the far leg opportunistically and drags the near
// leg along with market orders.
func (e *Engine) Spreads(ctx context.Context) (string, error) {
	if err := e.backend.Health(ctx); err != nil {
		return "", err
	}
	recs, err := e.backend.SpreadTargets(ctx)
	if err != nil {
		return "", err
	}

	var spreads []*domain.Spread
	for _, rec := range recs {
		spread, err := domain.NewSpread(rec, e.broker)
		if err != nil {
			return "", err
		}
		if spread.Done() {
			continue
		}
		spreads = append(spreads, spread)
	}
	if len(spreads) == 0 {
		return "No active spreads to trade", nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		summaries []string
		failed    int
	)
	for _, spread := range spreads {
		wg.Add(1)
		go func(s *domain.Spread) {
			defer wg.Done()
			line, err := e.ProcessSpread(ctx, s)
			if err != nil {
				e.logger.Error("spread loop aborted", "spread", s.String(), "error", err)
				e.notify(s.String() + ": " + err.Error())
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			summaries = append(summaries, line)
			mu.Unlock()
		}(spread)
	}
	wg.Wait()

	if failed > 0 {
		summaries = append(summaries, fmt.Sprintf("%d of %d spreads failed", failed, len(spreads)))
	}
	return strings.Join(summaries, "\n"), nil
}

// ProcessSpread drives one spread to completion. The far leg rests a limit
// order only while the spread economics clear the target price; every fill
// on the far leg is immediately mirrored on the near leg so the position
// is never one-sided for longer than a cycle.
func (e *Engine) ProcessSpread(ctx context.Context, spread *domain.Spread) (string, error) {
	clock := e.spreadClock(spread)
	far := spread.FarLeg
	lastReported := spread.Executed()

	for !spread.Done() {
		if ctx.Err() != nil {
			break
		}

		if !clock.IsTradingNow() {
			if err := e.parkSpread(ctx, spread); err != nil {
				if err = e.handleLoopError(domain.ProgramSpreads, far.Ticker, err); err != nil {
					e.finishSpread(spread, &lastReported)
					return "", err
				}
			}
			if err := e.waitForSession(ctx, clock, far.Ticker); err != nil {
				if ctx.Err() != nil {
					continue
				}
				e.finishSpread(spread, &lastReported)
				return "", err
			}
			continue
		}

		if err := e.spreadCycle(ctx, spread, &lastReported); err != nil {
			if err = e.handleLoopError(domain.ProgramSpreads, far.Ticker, err); err != nil {
				e.finishSpread(spread, &lastReported)
				return "", err
			}
		}
		if spread.Done() {
			break
		}
		if err := sleep(ctx, e.pause); err != nil {
			continue
		}
	}

	e.finishSpread(spread, &lastReported)
	line := spread.String()
	e.notify(line)
	return line, nil
}

// spreadCycle is one pass of the spread loop: refresh both legs, cancel a
// far order that went stale or uneconomic, sweep fills into the near leg,
// then re-quote if economics still hold.
func (e *Engine) spreadCycle(ctx context.Context, spread *domain.Spread, lastReported *int64) error {
	far := spread.FarLeg
	if err := refreshLegs(ctx, spread); err != nil {
		return err
	}

	if far.OrderPlaced && (!far.NewPrice.Equal(far.LastPrice) || !spread.OKToPlaceOrder()) {
		if err := far.CancelOrder(ctx); err != nil {
			return err
		}
		infra.OrdersCancelled.Inc()
	}

	if far.OrderID != "" {
		if err := far.UpdateExecuted(ctx); err != nil {
			return err
		}
	}
	if err := spread.EvenExecution(ctx); err != nil {
		return err
	}
	if executed := spread.Executed(); executed > *lastReported {
		e.checkpoint(ctx, domain.ProgramSpreads, spread.ID, far.Ticker, executed, spread.AvgExecPrice())
		*lastReported = executed
	}
	if spread.Done() {
		return nil
	}

	if !far.OrderPlaced && spread.OKToPlaceOrder() && far.Lots(far.NextOrderAmount()) >= 1 {
		if err := far.PlaceLimitOrder(ctx); err != nil {
			return err
		}
		far.LastPrice = far.NewPrice
		infra.OrdersPlaced.WithLabelValues("limit", infra.OrderSide(far.Sell)).Inc()
		e.logger.Info("far leg order placed",
			"spread", spread.String(),
			"price", far.Price.String(),
			"delta", spread.DeltaPrices().String(),
		)
	}
	return nil
}

// refreshLegs updates both legs' quotes concurrently. The far leg needs
// its order price, the near leg the price an immediate hedge would cost.
func refreshLegs(ctx context.Context, spread *domain.Spread) error {
	var wg sync.WaitGroup
	var farErr, nearErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		farErr = spread.FarLeg.RefreshOrderPrice(ctx)
	}()
	go func() {
		defer wg.Done()
		nearErr = spread.NearLeg.RefreshClosestExecPrice(ctx)
	}()
	wg.Wait()
	if farErr != nil {
		return farErr
	}
	return nearErr
}

// parkSpread pulls the far leg's resting order and squares the near leg
// before the session gap. The spread must never sit hedged one-sided
// through a close.
func (e *Engine) parkSpread(ctx context.Context, spread *domain.Spread) error {
	far := spread.FarLeg
	if far.OrderPlaced {
		if err := far.CancelOrder(ctx); err != nil {
			return err
		}
		infra.OrdersCancelled.Inc()
	}
	if far.OrderID != "" {
		if err := far.UpdateExecuted(ctx); err != nil {
			return err
		}
	}
	return spread.EvenExecution(ctx)
}

// finishSpread mirrors finishAsset for spreads: fresh context, pull the
// far order, square the near leg, report the last fills.
func (e *Engine) finishSpread(spread *domain.Spread, lastReported *int64) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := e.parkSpread(ctx, spread); err != nil {
		e.logger.Error("spread cleanup failed", "spread", spread.String(), "error", err)
	}
	if executed := spread.Executed(); executed > *lastReported {
		e.checkpoint(ctx, domain.ProgramSpreads, spread.ID, spread.FarLeg.Ticker, executed, spread.AvgExecPrice())
		*lastReported = executed
	}
	if spread.Done() {
		e.clearCheckpoint(domain.ProgramSpreads, spread.ID, spread.FarLeg.Ticker)
	}
}
