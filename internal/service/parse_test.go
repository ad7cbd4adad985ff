package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseTickerArgs(t *testing.T) {
	t.Run("ticker only", func(t *testing.T) {
		got, err := ParseTickerArgs("sber")
		if err != nil {
			t.Fatalf("ParseTickerArgs: %v", err)
		}
		if got.Ticker != "SBER" || got.Amount != 0 || !got.Sum.IsZero() {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("amount then ticker", func(t *testing.T) {
		got, err := ParseTickerArgs("100 SBER")
		if err != nil {
			t.Fatalf("ParseTickerArgs: %v", err)
		}
		if got.Ticker != "SBER" || got.Amount != 100 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("ticker then sum", func(t *testing.T) {
		got, err := ParseTickerArgs("SBER 300000.50")
		if err != nil {
			t.Fatalf("ParseTickerArgs: %v", err)
		}
		if got.Ticker != "SBER" || !got.Sum.Equal(decimal.NewFromFloat(300000.50)) {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"100",
			"100 200",
			"SBER GAZP",
			"SBER 100 200",
		} {
			if _, err := ParseTickerArgs(raw); err == nil {
				t.Errorf("%q: expected error", raw)
			}
		}
	})
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		word string
		want Command
	}{
		{"sellbuy", CmdSellBuy},
		{"/sellbuy", CmdSellBuy},
		{"SPREADS", CmdSpreads},
		{"stops", CmdStops},
		{"shorts", CmdShorts},
		{"nuke", CmdNuke},
		{"restorestops", CmdRestoreStops},
		{"cancelall", CmdCancelAll},
		{"stop", CmdStop},
		{"status", CmdStatus},
		{"help", CmdHelp},
		{"bogus", CmdUnknown},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.word); got != tt.want {
			t.Errorf("ParseCommand(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}
