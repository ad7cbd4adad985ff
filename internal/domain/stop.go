package domain

import "github.com/shopspring/decimal"

// StopOrder is one computed protective stop: ephemeral, built from a ladder
// level and submitted once, never retained.
type StopOrder struct {
	Asset *Asset
	Price decimal.Decimal // stop trigger price, already tick-floored
	Sum   decimal.Decimal // budget this stop's notional should approximate
	Sell  bool
}
