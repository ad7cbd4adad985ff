package service

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"trade_go/internal/domain"
)

// ErrBadArgs is the operator-facing usage hint for ticker commands.
var errBadArgs = domain.NewValidationError("Format for arguments is: <ticker> <sum> or <amount> <ticker>")

// TickerArgs is a parsed ticker command argument list. Exactly one of
// Amount and Sum is set when a number was given.
type TickerArgs struct {
	Ticker string
	Amount int64
	Sum    decimal.Decimal
}

// ParseTickerArgs understands three argument shapes:
//
//	"SBER"         – just a ticker
//	"100 SBER"     – an amount followed by a ticker
//	"SBER 300000"  – a ticker followed by a money sum
func ParseTickerArgs(raw string) (TickerArgs, error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 1:
		if isNumeric(fields[0]) {
			return TickerArgs{}, errBadArgs
		}
		return TickerArgs{Ticker: normalizeTicker(fields[0])}, nil
	case 2:
		if amount, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			if isNumeric(fields[1]) {
				return TickerArgs{}, errBadArgs
			}
			return TickerArgs{Ticker: normalizeTicker(fields[1]), Amount: amount}, nil
		}
		sum, err := decimal.NewFromString(fields[1])
		if err != nil {
			return TickerArgs{}, errBadArgs
		}
		return TickerArgs{Ticker: normalizeTicker(fields[0]), Sum: sum}, nil
	default:
		return TickerArgs{}, errBadArgs
	}
}

func normalizeTicker(s string) string {
	return strings.ToUpper(s)
}

func isNumeric(s string) bool {
	_, err := decimal.NewFromString(s)
	return err == nil
}
