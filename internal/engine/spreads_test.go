package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade_go/internal/domain"
)

func spreadRecord() domain.SpreadRecord {
	return domain.SpreadRecord{
		ID:              11,
		Sell:            true,
		Price:           decimal.NewFromInt(50),
		Amount:          10,
		NearLegType:     "S",
		BaseAssetAmount: 10,
		FarLeg: domain.AssetRecord{
			ID: 1, Figi: "FUT-FAR", Ticker: "SRZ6",
			Increment: decimal.NewFromInt(1), Lot: 1, AssetType: "F",
		},
		NearLeg: domain.AssetRecord{
			ID: 2, Figi: "STK-NEAR", Ticker: "SBER",
			Increment: decimal.NewFromFloat(0.01), Lot: 10, AssetType: "S",
		},
	}
}

func TestSpreadsExecutesAndHedges(t *testing.T) {
	broker := newStubBroker()
	// Sell spread: far sells at bid 500, near buys at ask 44.
	// Delta = 500 - 44*10 = 60 > 50 so the economics clear.
	broker.setBook("FUT-FAR", book("FUT-FAR", 500, 501))
	broker.setBook("STK-NEAR", book("STK-NEAR", 43.9, 44))
	backend := newStubBackend()
	backend.spreads = []domain.SpreadRecord{spreadRecord()}
	journal := newStubJournal()
	e, _ := newTestEngine(broker, backend, journal)

	report, err := e.Spreads(context.Background())
	if err != nil {
		t.Fatalf("Spreads: %v", err)
	}
	if !strings.Contains(report, "[10/10]") {
		t.Errorf("report %q", report)
	}

	// One far limit sell, one near market buy for the full hedge.
	var farOrders, nearMarkets []domain.OrderRequest
	for _, req := range broker.posted {
		switch req.Figi {
		case "FUT-FAR":
			farOrders = append(farOrders, req)
		case "STK-NEAR":
			nearMarkets = append(nearMarkets, req)
		}
	}
	if len(farOrders) != 1 || farOrders[0].Market || !farOrders[0].Sell {
		t.Errorf("far orders %+v", farOrders)
	}
	if len(nearMarkets) != 1 || !nearMarkets[0].Market || nearMarkets[0].Sell {
		t.Errorf("near orders %+v", nearMarkets)
	}
	if nearMarkets[0].Lots != 10 { // 100 units at lot size 10
		t.Errorf("near hedge lots %d", nearMarkets[0].Lots)
	}

	patch, ok := backend.lastPatch()
	if !ok || patch.Program != domain.ProgramSpreads || patch.ID != 11 || patch.Executed != 10 {
		t.Errorf("patch %+v", patch)
	}
	// Blended price: (500*10 - 44*100) / 10 = 60.
	if !patch.AvgPrice.Equal(decimal.NewFromInt(60)) {
		t.Errorf("blended price %s", patch.AvgPrice)
	}
}

func TestSpreadsWaitWhileUneconomic(t *testing.T) {
	broker := newStubBroker()
	// Delta = 500 - 46*10 = 40 < 50: a sell spread must not trade.
	broker.setBook("FUT-FAR", book("FUT-FAR", 500, 501))
	broker.setBook("STK-NEAR", book("STK-NEAR", 45.9, 46))
	backend := newStubBackend()
	backend.spreads = []domain.SpreadRecord{spreadRecord()}
	e, _ := newTestEngine(broker, backend, newStubJournal())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if _, err := e.Spreads(ctx); err != nil {
		t.Fatalf("Spreads: %v", err)
	}

	for _, req := range broker.posted {
		if req.Figi == "FUT-FAR" && !req.Market {
			t.Errorf("far order placed despite failing economics: %+v", req)
		}
	}
}

func TestSpreadsCancelsWhenEconomicsDecay(t *testing.T) {
	broker := newStubBroker()
	// The far quote holds while the near leg runs away: first cycle clears
	// the target, afterwards delta drops to 40 and the order must be pulled.
	broker.setBook("FUT-FAR", book("FUT-FAR", 500, 501))
	broker.setBook("STK-NEAR",
		book("STK-NEAR", 43.9, 44),
		book("STK-NEAR", 45.9, 46),
	)
	broker.fillLots = func(req domain.OrderRequest) int64 {
		if req.Figi == "FUT-FAR" && !req.Market {
			return 0 // far order rests
		}
		return req.Lots
	}
	backend := newStubBackend()
	backend.spreads = []domain.SpreadRecord{spreadRecord()}
	e, _ := newTestEngine(broker, backend, newStubJournal())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := e.Spreads(ctx); err != nil {
		t.Fatalf("Spreads: %v", err)
	}

	if len(broker.cancelled) == 0 {
		t.Error("uneconomic far order was not cancelled")
	}
	// No fills on the far leg means the near leg must stay flat.
	for _, req := range broker.posted {
		if req.Figi == "STK-NEAR" {
			t.Errorf("near leg traded without far fills: %+v", req)
		}
	}
}

func TestSpreadsNothingToDo(t *testing.T) {
	rec := spreadRecord()
	rec.Executed = rec.Amount
	rec.FarLeg.AvgPrice = decimal.NewFromInt(500)
	rec.NearLeg.AvgPrice = decimal.NewFromInt(44)
	backend := newStubBackend()
	backend.spreads = []domain.SpreadRecord{rec}
	e, _ := newTestEngine(newStubBroker(), backend, newStubJournal())

	report, err := e.Spreads(context.Background())
	if err != nil {
		t.Fatalf("Spreads: %v", err)
	}
	if report != "No active spreads to trade" {
		t.Errorf("report %q", report)
	}
}
