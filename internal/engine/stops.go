package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trade_go/internal/domain"
	"trade_go/internal/infra"
	"trade_go/pkg/quant"
)

var hundred = decimal.NewFromInt(100)

// PlaceStops runs the stop-ladder program for longs (ProgramStops) or
// shorts (ProgramShorts). For every backend target a ladder of stop
// orders is placed below (longs) or above (shorts) the reference price,
// each sized to spend the configured budget.
func (e *Engine) PlaceStops(ctx context.Context, program domain.Program) (string, error) {
	if err := e.backend.Health(ctx); err != nil {
		return "", err
	}
	recs, err := e.backend.StopTargets(ctx, program)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "No assets to place stops for", nil
	}

	levels := e.longLevels
	if program == domain.ProgramShorts {
		levels = e.shortLevels
	}

	placed := 0
	for _, rec := range recs {
		asset, err := domain.NewAsset(rec, e.broker)
		if err != nil {
			return "", err
		}
		n, err := e.placeLadder(ctx, asset, levels, e.stopsSum)
		if err != nil {
			if err = e.handleLoopError(program, asset.Ticker, err); err != nil {
				return "", err
			}
			continue
		}
		placed += n
	}

	return fmt.Sprintf("Stop placement complete. %d stops placed.\nLevels in %%: %v, sum: %s",
		placed, levels, e.stopsSum), nil
}

// buildLadder computes the stop rungs for one asset. Long targets buy
// dips, so each rung sits level percent below the reference price; short
// targets sit above it.
func buildLadder(asset *domain.Asset, levels []int64, sum decimal.Decimal) ([]domain.StopOrder, error) {
	if asset.Price.Sign() <= 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("%s: no reference price for stops", asset.Ticker))
	}
	rungs := make([]domain.StopOrder, 0, len(levels))
	for _, level := range levels {
		factor := hundred.Sub(decimal.NewFromInt(level))
		if asset.Sell {
			factor = hundred.Add(decimal.NewFromInt(level))
		}
		price, err := asset.CorrectPrice(asset.Price.Mul(factor).Div(hundred))
		if err != nil {
			return nil, err
		}
		rungs = append(rungs, domain.StopOrder{
			Asset: asset,
			Price: price,
			Sum:   sum,
			Sell:  asset.Sell,
		})
	}
	return rungs, nil
}

// placeLadder submits one stop per level. Rungs whose budget buys less
// than one lot are skipped.
func (e *Engine) placeLadder(ctx context.Context, asset *domain.Asset, levels []int64, sum decimal.Decimal) (int, error) {
	rungs, err := buildLadder(asset, levels, sum)
	if err != nil {
		return 0, err
	}

	placed := 0
	for _, rung := range rungs {
		units := rung.Sum.Div(rung.Price).IntPart()
		lots := asset.Lots(units)
		if lots < 1 {
			e.logger.Warn("stop rung skipped, budget below one lot",
				"ticker", asset.Ticker, "price", rung.Price.String())
			continue
		}

		_, err := e.broker.PostStopOrder(ctx, domain.StopOrderRequest{
			Figi:     asset.Figi,
			Sell:     rung.Sell,
			Price:    rung.Price,
			Lots:     lots,
			ExpireAt: time.Now().Add(e.orderTTL),
		})
		if err != nil {
			return placed, err
		}
		placed++
		infra.StopsPlaced.Inc()
		e.logger.Info("stop placed",
			"ticker", asset.Ticker,
			"price", rung.Price.String(),
			"lots", lots,
		)
		if e.journal != nil {
			err := e.journal.SaveStopSnapshot(&domain.StopSnapshot{
				Ticker: asset.Ticker,
				Figi:   asset.Figi,
				Price:  rung.Price.String(),
				Amount: quant.LotAligned(units, asset.Lot),
				Sell:   rung.Sell,
			})
			if err != nil {
				e.logger.Warn("stop journal write failed", "ticker", asset.Ticker, "error", err)
			}
		}
	}
	return placed, nil
}

// Nuke deploys a whole sum into one instrument: a tighter ladder of stop
// orders below the current price, each rung sized at a quarter of the sum.
// The sum must be large enough for a quarter to buy at least one lot.
func (e *Engine) Nuke(ctx context.Context, ticker string, sum decimal.Decimal) (string, error) {
	if err := e.backend.Health(ctx); err != nil {
		return "", err
	}
	rec, err := e.backend.TickerInfo(ctx, ticker)
	if err != nil {
		return "", err
	}
	rec.Sell = false // nuke always accumulates
	asset, err := domain.NewAsset(rec, e.broker)
	if err != nil {
		return "", err
	}

	prices, err := e.broker.LastPrices(ctx, []string{asset.Figi})
	if err != nil {
		return "", err
	}
	price, ok := prices[asset.Figi]
	if !ok || price.Sign() <= 0 {
		return "", domain.NewValidationError(fmt.Sprintf("%s: no last price", ticker))
	}
	asset.Price = price

	quarter := sum.Div(decimal.NewFromInt(4))
	if !quarter.GreaterThan(price.Mul(decimal.NewFromInt(asset.Lot))) {
		return "", domain.ErrSumTooSmall
	}

	placed, err := e.placeLadder(ctx, asset, e.nukeLevels, quarter)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s: %d stops laddered at %v%% below %s",
		ticker, placed, e.nukeLevels, price), nil
}

// RestoreStops re-submits every journaled stop with a fresh expiration.
// Brokers expire stop orders server-side; the journal survives that.
func (e *Engine) RestoreStops(ctx context.Context) (string, error) {
	if e.journal == nil {
		return "No stop journal configured", nil
	}
	snaps, err := e.journal.ListStopSnapshots()
	if err != nil {
		return "", err
	}
	if len(snaps) == 0 {
		return "No stops to restore", nil
	}

	restored := 0
	for _, snap := range snaps {
		price, err := decimal.NewFromString(snap.Price)
		if err != nil {
			e.logger.Error("corrupt stop snapshot", "ticker", snap.Ticker, "price", snap.Price)
			continue
		}
		lots := snap.Amount
		if lots <= 0 {
			continue
		}
		// Snapshots store units; the broker wants lots. Unit counts were
		// lot-aligned at placement, so ticker info gives the divisor.
		rec, err := e.backend.TickerInfo(ctx, snap.Ticker)
		if err != nil {
			if err = e.handleLoopError(domain.ProgramRestoreStops, snap.Ticker, err); err != nil {
				return "", err
			}
			continue
		}
		if rec.Lot > 0 {
			lots = snap.Amount / rec.Lot
		}
		if lots < 1 {
			continue
		}
		_, err = e.broker.PostStopOrder(ctx, domain.StopOrderRequest{
			Figi:     snap.Figi,
			Sell:     snap.Sell,
			Price:    price,
			Lots:     lots,
			ExpireAt: time.Now().Add(e.orderTTL),
		})
		if err != nil {
			if err = e.handleLoopError(domain.ProgramRestoreStops, snap.Ticker, err); err != nil {
				return "", err
			}
			continue
		}
		restored++
		infra.StopsPlaced.Inc()
	}
	return fmt.Sprintf("Restored %d of %d stops", restored, len(snaps)), nil
}
