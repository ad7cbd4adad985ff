package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"trade_go/internal/calendar"
	"trade_go/internal/domain"
	"trade_go/internal/infra"
)

// cleanupTimeout bounds the fresh context used to unwind a target after
// its loop context died.
const cleanupTimeout = 10 * time.Second

// Journal is the local crash-recovery store the engine writes progress to.
// It mirrors what the backend is told, so a run interrupted between patches
// can be reconstructed.
type Journal interface {
	SaveCheckpoint(cp *domain.Checkpoint) error
	GetCheckpoint(program string, targetID int64) (*domain.Checkpoint, error)
	DeleteCheckpoint(program string, targetID int64) error
	SaveStopSnapshot(snap *domain.StopSnapshot) error
	ListStopSnapshots() ([]domain.StopSnapshot, error)
	PurgeStopSnapshots() error
}

// Config carries the engine's collaborators and trading parameters.
type Config struct {
	Broker   domain.Broker
	Backend  domain.Backend
	Journal  Journal
	Notifier domain.Notifier
	Logger   *slog.Logger

	Pause       time.Duration
	StopsSum    decimal.Decimal
	LongLevels  []int64
	ShortLevels []int64
	NukeLevels  []int64
	OrderTTL    time.Duration

	// Clock factories, overridable in tests.
	AssetClock  func(*domain.Asset) calendar.Clock
	SpreadClock func(*domain.Spread) calendar.Clock
}

// Engine runs the trading programs: concurrent limit-order execution for
// assets and spreads, and stop-order placement. One Engine serves all
// programs; each target gets its own goroutine and owns its state.
type Engine struct {
	broker   domain.Broker
	backend  domain.Backend
	journal  Journal
	notifier domain.Notifier
	logger   *slog.Logger

	pause       time.Duration
	stopsSum    decimal.Decimal
	longLevels  []int64
	shortLevels []int64
	nukeLevels  []int64
	orderTTL    time.Duration

	assetClock  func(*domain.Asset) calendar.Clock
	spreadClock func(*domain.Spread) calendar.Clock
}

func New(cfg Config) *Engine {
	e := &Engine{
		broker:      cfg.Broker,
		backend:     cfg.Backend,
		journal:     cfg.Journal,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		pause:       cfg.Pause,
		stopsSum:    cfg.StopsSum,
		longLevels:  cfg.LongLevels,
		shortLevels: cfg.ShortLevels,
		nukeLevels:  cfg.NukeLevels,
		orderTTL:    cfg.OrderTTL,
		assetClock:  cfg.AssetClock,
		spreadClock: cfg.SpreadClock,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.assetClock == nil {
		e.assetClock = func(a *domain.Asset) calendar.Clock { return calendar.ForAsset(a) }
	}
	if e.spreadClock == nil {
		e.spreadClock = func(s *domain.Spread) calendar.Clock { return calendar.ForSpread(s) }
	}
	if e.pause <= 0 {
		e.pause = time.Second
	}
	return e
}

func (e *Engine) notify(text string) {
	if e.notifier != nil {
		e.notifier.Notify(text)
	}
}

// handleLoopError decides whether an execution cycle continues. Transient
// broker and backend failures are logged and retried next cycle; anything
// else aborts the target's loop.
func (e *Engine) handleLoopError(program domain.Program, ticker string, err error) error {
	if domain.IsRetriable(err) {
		e.logger.Warn("recoverable cycle error",
			"program", string(program), "ticker", ticker, "error", err)
		infra.LoopErrors.WithLabelValues(string(program)).Inc()
		e.notify(fmt.Sprintf("%s %s: transient error, retrying: %v", program, ticker, err))
		return nil
	}
	return err
}

// checkpoint reports progress to the backend and mirrors it in the local
// journal. A backend failure is not fatal, the journal keeps the truth
// until the next successful patch.
func (e *Engine) checkpoint(ctx context.Context, program domain.Program, id int64, ticker string, executed int64, avgPrice decimal.Decimal) {
	infra.ExecutedUnits.WithLabelValues(string(program), ticker).Set(float64(executed))

	if err := e.backend.PatchExecuted(ctx, program, id, executed, avgPrice); err != nil {
		e.logger.Warn("backend patch failed, journal keeps progress",
			"program", string(program), "ticker", ticker, "error", err)
	}
	if e.journal != nil {
		err := e.journal.SaveCheckpoint(&domain.Checkpoint{
			Program:  string(program),
			TargetID: id,
			Ticker:   ticker,
			Executed: executed,
			AvgPrice: avgPrice.String(),
		})
		if err != nil {
			e.logger.Warn("journal write failed", "ticker", ticker, "error", err)
		}
	}
}

// resumeFrom reconciles a backend record with the local journal. A
// journaled executed amount ahead of the backend means the last run died
// between a fill and its patch; the journal is the truth then, otherwise
// the resumed target would resend those fills.
func (e *Engine) resumeFrom(program domain.Program, rec *domain.AssetRecord) {
	if e.journal == nil {
		return
	}
	cp, err := e.journal.GetCheckpoint(string(program), rec.ID)
	if err != nil {
		e.logger.Warn("journal read failed", "ticker", rec.Ticker, "error", err)
		return
	}
	if cp == nil || cp.Executed <= rec.Executed {
		return
	}
	avg, err := decimal.NewFromString(cp.AvgPrice)
	if err != nil {
		e.logger.Error("corrupt checkpoint", "ticker", rec.Ticker, "avg_price", cp.AvgPrice)
		return
	}
	e.logger.Info("resuming from local checkpoint",
		"ticker", rec.Ticker, "backend", rec.Executed, "journal", cp.Executed)
	rec.Executed = cp.Executed
	rec.AvgPrice = avg
}

// clearCheckpoint drops the journal entry for a finished target. Done
// targets must not resume from stale local state on the next run.
func (e *Engine) clearCheckpoint(program domain.Program, id int64, ticker string) {
	if e.journal == nil {
		return
	}
	if err := e.journal.DeleteCheckpoint(string(program), id); err != nil {
		e.logger.Warn("checkpoint delete failed", "ticker", ticker, "error", err)
	}
}

// sleep pauses for d unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// waitForSession idles until the clock says trading resumed.
func (e *Engine) waitForSession(ctx context.Context, clock calendar.Clock, ticker string) error {
	seconds, err := clock.SecondsTillTradingStarts()
	if err != nil {
		return err
	}
	if seconds <= 0 {
		return nil
	}
	e.logger.Warn("outside trading session, waiting", "ticker", ticker, "seconds", seconds)
	return sleep(ctx, time.Duration(seconds)*time.Second)
}

// CancelAll pulls every resting order and stop at the broker and clears
// the local stop journal.
func (e *Engine) CancelAll(ctx context.Context) (string, error) {
	if err := e.broker.CancelAllOrders(ctx); err != nil {
		return "", err
	}
	if e.journal != nil {
		if err := e.journal.PurgeStopSnapshots(); err != nil {
			e.logger.Warn("stop journal purge failed", "error", err)
		}
	}
	return "All active orders and stops cancelled", nil
}

func progressLine(ticker string, executed, amount int64, avgPrice decimal.Decimal) string {
	return fmt.Sprintf("%s: executed %d of %d, avg price %s", ticker, executed, amount, avgPrice)
}
