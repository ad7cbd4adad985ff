package calendar

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade_go/internal/domain"
)

// 2023-03-06 is a Monday, 03-04/03-05 the weekend before.
func fixedNow(day, h, m, s int) func() time.Time {
	return func() time.Time {
		return time.Date(2023, 3, day, h, m, s, 0, exchangeZone)
	}
}

func stockAsset(morning, evening bool) *domain.Asset {
	rec := domain.AssetRecord{
		Ticker:         "SONE",
		Figi:           "figi-s",
		Increment:      decimal.NewFromInt(1),
		Lot:            10,
		AssetType:      domain.AssetTypeStock,
		MorningTrading: morning,
		EveningTrading: evening,
	}
	a, _ := domain.NewAsset(rec, nil)
	return a
}

func futureAsset(evening bool) *domain.Asset {
	rec := domain.AssetRecord{
		Ticker:         "SIH4",
		Figi:           "figi-f",
		Increment:      decimal.NewFromInt(1),
		Lot:            1,
		AssetType:      domain.AssetTypeFuture,
		EveningTrading: evening,
	}
	a, _ := domain.NewAsset(rec, nil)
	return a
}

func TestIsTradingNow_StockBoundaries(t *testing.T) {
	tt := ForAsset(stockAsset(false, false))

	cases := []struct {
		name    string
		h, m, s int
		want    bool
	}{
		{"exact open is inside the offset margin", 10, 0, 0, false},
		{"open plus offset", 10, 0, 30, true},
		{"noon", 12, 0, 0, true},
		{"close minus offset", 18, 39, 29, true},
		{"exact close is inside the offset margin", 18, 39, 45, false},
		{"midnight", 0, 0, 0, false},
		{"morning session without the flag", 9, 5, 0, false},
		{"evening session without the flag", 21, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tt.now = fixedNow(6, tc.h, tc.m, tc.s)
			if got := tt.IsTradingNow(); got != tc.want {
				t.Errorf("IsTradingNow at %02d:%02d:%02d = %v, want %v", tc.h, tc.m, tc.s, got, tc.want)
			}
		})
	}
}

func TestIsTradingNow_Weekend(t *testing.T) {
	tt := ForAsset(stockAsset(true, true))
	for _, day := range []int{4, 5} { // Saturday, Sunday
		tt.now = fixedNow(day, 12, 0, 0)
		if tt.IsTradingNow() {
			t.Errorf("day %d: weekend noon must not be trading time", day)
		}
	}
}

func TestIsTradingNow_ExtendedSessions(t *testing.T) {
	t.Run("stock morning flag", func(t *testing.T) {
		tt := ForAsset(stockAsset(true, false))
		tt.now = fixedNow(6, 9, 5, 0)
		if !tt.IsTradingNow() {
			t.Error("morning session should trade with the flag set")
		}
		tt.now = fixedNow(6, 21, 0, 0)
		if tt.IsTradingNow() {
			t.Error("evening must not trade without the flag")
		}
	})

	t.Run("stock evening flag", func(t *testing.T) {
		tt := ForAsset(stockAsset(false, true))
		tt.now = fixedNow(6, 21, 0, 0)
		if !tt.IsTradingNow() {
			t.Error("evening session should trade with the flag set")
		}
	})

	t.Run("future clearing gap", func(t *testing.T) {
		tt := ForAsset(futureAsset(true))
		tt.now = fixedNow(6, 9, 5, 0)
		if !tt.IsTradingNow() {
			t.Error("futures trade from 09:00")
		}
		tt.now = fixedNow(6, 14, 5, 0)
		if tt.IsTradingNow() {
			t.Error("futures must not trade during the clearing gap")
		}
		tt.now = fixedNow(6, 23, 55, 0)
		if tt.IsTradingNow() {
			t.Error("futures must not trade after the evening close")
		}
	})
}

func TestSecondsTillTradingStarts(t *testing.T) {
	offset := int64(TimeOffset / time.Second)

	cases := []struct {
		name    string
		tt      *TradingTime
		day     int
		h, m, s int
		want    int64
	}{
		{"zero while trading", ForAsset(stockAsset(false, false)), 6, 12, 0, 0, 0},
		{"stock waits for the base open", ForAsset(stockAsset(false, false)), 6, 9, 5, 0, 55*60 + offset},
		{"future waits out the clearing gap", ForAsset(futureAsset(false)), 6, 14, 0, 0, 10*60 + offset},
		{"monday midnight waits for the first session", ForAsset(futureAsset(false)), 6, 0, 0, 0, 9*3600 + offset},
		{"sunday rolls to monday", ForAsset(stockAsset(false, false)), 5, 14, 0, 0, 20*3600 + offset},
		{"friday after close rolls over the weekend", ForAsset(stockAsset(false, false)), 3, 20, 0, 0, 4*3600 + 2*secondsPerDay + 10*3600 + offset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.tt.now = fixedNow(tc.day, tc.h, tc.m, tc.s)
			got, err := tc.tt.SecondsTillTradingStarts()
			if err != nil {
				t.Fatalf("SecondsTillTradingStarts failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSecondsTillTradingStarts_NoSessions(t *testing.T) {
	tt := &TradingTime{firstDay: 0, lastDay: 4, now: fixedNow(6, 12, 0, 0)}
	if _, err := tt.SecondsTillTradingStarts(); err == nil {
		t.Error("expected error for an empty session list")
	}
}

func TestSpreadTime(t *testing.T) {
	far := ForAsset(futureAsset(true))
	near := ForAsset(stockAsset(false, false))
	st := &SpreadTime{far: far, near: near}
	offset := int64(TimeOffset / time.Second)

	t.Run("trades only when both legs trade", func(t *testing.T) {
		far.now = fixedNow(6, 12, 0, 0)
		near.now = fixedNow(6, 12, 0, 0)
		if !st.IsTradingNow() {
			t.Error("both legs trading at noon")
		}

		// Future clearing gap closes the spread even though the stock trades.
		far.now = fixedNow(6, 14, 5, 0)
		near.now = fixedNow(6, 14, 5, 0)
		if st.IsTradingNow() {
			t.Error("spread must not trade while one leg is in clearing")
		}
	})

	t.Run("wait is the slowest leg", func(t *testing.T) {
		// Monday 20:00: the future trades its evening session, the stock
		// waits for tomorrow's base open.
		far.now = fixedNow(6, 20, 0, 0)
		near.now = fixedNow(6, 20, 0, 0)
		got, err := st.SecondsTillTradingStarts()
		if err != nil {
			t.Fatalf("SecondsTillTradingStarts failed: %v", err)
		}
		want := 4*3600 + 10*3600 + offset // to midnight, then to 10:00:30
		if got != int64(want) {
			t.Errorf("got %d, want %d", got, want)
		}
	})
}
