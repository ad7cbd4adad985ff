package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"trade_go/internal/domain"
)

func TestPlaceStopsLadder(t *testing.T) {
	broker := newStubBroker()
	backend := newStubBackend()
	backend.stops[domain.ProgramStops] = []domain.AssetRecord{{
		ID: 1, Figi: "F-SBER", Ticker: "SBER",
		Increment: decimal.NewFromFloat(0.01), Lot: 1,
		Price: decimal.NewFromInt(100), AssetType: "S",
	}}
	journal := newStubJournal()
	e, _ := newTestEngine(broker, backend, journal)

	report, err := e.PlaceStops(context.Background(), domain.ProgramStops)
	if err != nil {
		t.Fatalf("PlaceStops: %v", err)
	}
	if !strings.Contains(report, "3 stops placed") {
		t.Errorf("report %q", report)
	}

	if len(broker.stops) != 3 {
		t.Fatalf("got %d stops", len(broker.stops))
	}
	wantPrices := []int64{85, 80, 75}
	wantLots := []int64{3529, 3750, 4000} // floor(300000 / price)
	for i, stop := range broker.stops {
		if !stop.Price.Equal(decimal.NewFromInt(wantPrices[i])) {
			t.Errorf("stop %d price %s, want %d", i, stop.Price, wantPrices[i])
		}
		if stop.Lots != wantLots[i] {
			t.Errorf("stop %d lots %d, want %d", i, stop.Lots, wantLots[i])
		}
		if stop.Sell {
			t.Errorf("stop %d direction, long stops buy", i)
		}
		if stop.ExpireAt.IsZero() {
			t.Errorf("stop %d has no expiration", i)
		}
	}
	if len(journal.snaps) != 3 {
		t.Errorf("journal has %d snapshots", len(journal.snaps))
	}
}

func TestPlaceStopsShortsAbovePrice(t *testing.T) {
	broker := newStubBroker()
	backend := newStubBackend()
	backend.stops[domain.ProgramShorts] = []domain.AssetRecord{{
		ID: 2, Figi: "F-GAZP", Ticker: "GAZP",
		Increment: decimal.NewFromFloat(0.01), Lot: 1,
		Price: decimal.NewFromInt(100), Sell: true, AssetType: "S",
	}}
	e, _ := newTestEngine(broker, backend, newStubJournal())

	if _, err := e.PlaceStops(context.Background(), domain.ProgramShorts); err != nil {
		t.Fatalf("PlaceStops: %v", err)
	}

	wantPrices := []int64{120, 125, 130}
	if len(broker.stops) != 3 {
		t.Fatalf("got %d stops", len(broker.stops))
	}
	for i, stop := range broker.stops {
		if !stop.Price.Equal(decimal.NewFromInt(wantPrices[i])) {
			t.Errorf("stop %d price %s, want %d", i, stop.Price, wantPrices[i])
		}
		if !stop.Sell {
			t.Errorf("stop %d direction, short stops sell", i)
		}
	}
}

func TestPlaceStopsSkipsRungBelowOneLot(t *testing.T) {
	broker := newStubBroker()
	backend := newStubBackend()
	// Lot of 10000 units at ~85 needs 850k per lot, over the 300k budget.
	backend.stops[domain.ProgramStops] = []domain.AssetRecord{{
		ID: 3, Figi: "F-X", Ticker: "EXPENSIVE",
		Increment: decimal.NewFromFloat(0.01), Lot: 10000,
		Price: decimal.NewFromInt(100), AssetType: "S",
	}}
	e, _ := newTestEngine(broker, backend, newStubJournal())

	report, err := e.PlaceStops(context.Background(), domain.ProgramStops)
	if err != nil {
		t.Fatalf("PlaceStops: %v", err)
	}
	if len(broker.stops) != 0 {
		t.Errorf("placed %d stops for an unaffordable lot", len(broker.stops))
	}
	if !strings.Contains(report, "0 stops placed") {
		t.Errorf("report %q", report)
	}
}

func TestNuke(t *testing.T) {
	broker := newStubBroker()
	broker.lastPrices["F-SBER"] = decimal.NewFromInt(100)
	backend := newStubBackend()
	backend.tickers["SBER"] = domain.AssetRecord{
		ID: 1, Figi: "F-SBER", Ticker: "SBER",
		Increment: decimal.NewFromFloat(0.01), Lot: 10, AssetType: "S",
	}
	e, _ := newTestEngine(broker, backend, newStubJournal())

	report, err := e.Nuke(context.Background(), "SBER", decimal.NewFromInt(400000))
	if err != nil {
		t.Fatalf("Nuke: %v", err)
	}

	// Nuke is stop-ladder-only, nothing executes at market.
	if len(broker.posted) != 0 {
		t.Fatalf("unexpected orders posted: %+v", broker.posted)
	}

	wantPrices := []int64{95, 90, 85}
	wantLots := []int64{105, 111, 117} // floor(100000 / price / 10)
	if len(broker.stops) != 3 {
		t.Fatalf("got %d stops", len(broker.stops))
	}
	for i, stop := range broker.stops {
		if !stop.Price.Equal(decimal.NewFromInt(wantPrices[i])) {
			t.Errorf("stop %d price %s, want %d", i, stop.Price, wantPrices[i])
		}
		if stop.Lots != wantLots[i] {
			t.Errorf("stop %d lots %d, want %d", i, stop.Lots, wantLots[i])
		}
	}
	if !strings.Contains(report, "SBER") {
		t.Errorf("report %q", report)
	}
}

func TestNukeSumTooSmall(t *testing.T) {
	broker := newStubBroker()
	broker.lastPrices["F-SBER"] = decimal.NewFromInt(100)
	backend := newStubBackend()
	backend.tickers["SBER"] = domain.AssetRecord{
		ID: 1, Figi: "F-SBER", Ticker: "SBER",
		Increment: decimal.NewFromFloat(0.01), Lot: 10, AssetType: "S",
	}
	e, _ := newTestEngine(broker, backend, newStubJournal())

	// A quarter of 3000 cannot buy one lot of 10 at price 100.
	_, err := e.Nuke(context.Background(), "SBER", decimal.NewFromInt(3000))
	if !errors.Is(err, domain.ErrSumTooSmall) {
		t.Errorf("want ErrSumTooSmall, got %v", err)
	}
	if len(broker.posted) != 0 || len(broker.stops) != 0 {
		t.Error("orders placed despite rejected sum")
	}
}

func TestRestoreStops(t *testing.T) {
	broker := newStubBroker()
	backend := newStubBackend()
	backend.tickers["SBER"] = domain.AssetRecord{
		ID: 1, Figi: "F-SBER", Ticker: "SBER",
		Increment: decimal.NewFromFloat(0.01), Lot: 10, AssetType: "S",
	}
	journal := newStubJournal()
	journal.snaps = []domain.StopSnapshot{
		{Ticker: "SBER", Figi: "F-SBER", Price: "85", Amount: 3520, Sell: false},
		{Ticker: "SBER", Figi: "F-SBER", Price: "80", Amount: 3750, Sell: false},
	}
	e, _ := newTestEngine(broker, backend, journal)

	report, err := e.RestoreStops(context.Background())
	if err != nil {
		t.Fatalf("RestoreStops: %v", err)
	}
	if !strings.Contains(report, "Restored 2 of 2") {
		t.Errorf("report %q", report)
	}
	if len(broker.stops) != 2 {
		t.Fatalf("got %d stops", len(broker.stops))
	}
	if broker.stops[0].Lots != 352 || broker.stops[1].Lots != 375 {
		t.Errorf("lots %d, %d", broker.stops[0].Lots, broker.stops[1].Lots)
	}
}

func TestRestoreStopsEmptyJournal(t *testing.T) {
	e, _ := newTestEngine(newStubBroker(), newStubBackend(), newStubJournal())
	report, err := e.RestoreStops(context.Background())
	if err != nil {
		t.Fatalf("RestoreStops: %v", err)
	}
	if report != "No stops to restore" {
		t.Errorf("report %q", report)
	}
}
