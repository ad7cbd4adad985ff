package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Spread couples two Assets: an opportunistically traded far leg and a near
// leg that is kept in lock-step with the far leg's fills via market orders.
// Identity and target are immutable after construction; only leg state
// mutates, and only from the one loop that owns the spread.
type Spread struct {
	ID              int64
	FarLeg          *Asset
	NearLeg         *Asset
	Sell            bool
	Price           decimal.Decimal
	Amount          int64
	NearLegType     string
	BaseAssetAmount int64

	executed     int64
	avgExecPrice decimal.Decimal
}

// NewSpread builds a Spread from a backend record. The near leg always
// trades opposite to the far leg, with its target and executed amounts
// scaled by the leg ratio.
func NewSpread(rec SpreadRecord, broker Broker) (*Spread, error) {
	ratio := int64(1)
	if rec.NearLegType == AssetTypeStock {
		ratio = rec.BaseAssetAmount
	}
	if ratio <= 0 {
		return nil, NewValidationError(fmt.Sprintf("spread %d: base asset amount must be positive", rec.ID))
	}

	farRec := rec.FarLeg
	farRec.Sell = rec.Sell
	farRec.Amount = rec.Amount
	farRec.Executed = rec.Executed
	farLeg, err := NewAsset(farRec, broker)
	if err != nil {
		return nil, err
	}

	nearRec := rec.NearLeg
	nearRec.Sell = !rec.Sell
	nearRec.Amount = rec.Amount * ratio
	nearRec.Executed = rec.Executed * ratio
	nearLeg, err := NewAsset(nearRec, broker)
	if err != nil {
		return nil, err
	}

	s := &Spread{
		ID:              rec.ID,
		FarLeg:          farLeg,
		NearLeg:         nearLeg,
		Sell:            rec.Sell,
		Price:           rec.Price,
		Amount:          rec.Amount,
		NearLegType:     rec.NearLegType,
		BaseAssetAmount: rec.BaseAssetAmount,
	}
	s.recount()
	return s, nil
}

func (s *Spread) String() string {
	direction := "Buy"
	if s.Sell {
		direction = "Sell"
	}
	return fmt.Sprintf("%s [%d/%d] %s - %s for %s",
		direction, s.executed, s.Amount, s.NearLeg.Ticker, s.FarLeg.Ticker, s.Price)
}

// Ratio is how many near-leg units correspond to one far-leg unit.
func (s *Spread) Ratio() int64 {
	if s.NearLegType == AssetTypeStock {
		return s.BaseAssetAmount
	}
	return 1
}

// Executed is the spread's filled amount, counted in far-leg units.
func (s *Spread) Executed() int64 {
	return s.executed
}

// AvgExecPrice is the blended spread execution price:
// (far-leg notional - near-leg notional) / far-leg executed.
func (s *Spread) AvgExecPrice() decimal.Decimal {
	return s.avgExecPrice
}

// Done reports whether the far-leg residual is too small to trade.
func (s *Spread) Done() bool {
	return s.FarLeg.Done()
}

// DeltaPrices is the current spread economics: the far leg's order price
// minus the near leg's immediate execution price scaled by the ratio.
func (s *Spread) DeltaPrices() decimal.Decimal {
	near := s.NearLeg.ClosestExecPrice.Mul(decimal.NewFromInt(s.Ratio()))
	return s.FarLeg.NewPrice.Sub(near)
}

// OKToPlaceOrder reports whether the current delta clears the target
// spread price in the trade's direction.
func (s *Spread) OKToPlaceOrder() bool {
	if s.Sell {
		return s.DeltaPrices().GreaterThan(s.Price)
	}
	return s.DeltaPrices().LessThan(s.Price)
}

// EvenExecution drives the near leg to keep near.executed equal to
// far.executed * ratio. A shortfall of at least one near-leg lot is closed
// immediately with a market order in the near leg's direction; the near leg
// never leads the far leg. A sub-lot shortfall waits for more far-leg fills,
// the same way an Asset treats a sub-lot residual as untradeable.
func (s *Spread) EvenExecution(ctx context.Context) error {
	if s.NearLeg.OrderID != "" {
		if err := s.NearLeg.UpdateExecuted(ctx); err != nil {
			return err
		}
	}
	shortfall := s.FarLeg.Executed()*s.Ratio() - s.NearLeg.Executed()
	if shortfall < s.NearLeg.Lot {
		s.recount()
		return nil
	}
	if err := s.NearLeg.PlaceMarketOrder(ctx, shortfall); err != nil {
		return err
	}
	if err := s.NearLeg.UpdateExecuted(ctx); err != nil {
		return err
	}
	s.recount()
	return nil
}

func (s *Spread) recount() {
	farExec := s.FarLeg.Executed()
	s.executed = farExec
	if farExec == 0 {
		s.avgExecPrice = decimal.Zero
		return
	}
	farNotional := s.FarLeg.AvgExecPrice().Mul(decimal.NewFromInt(farExec))
	nearNotional := s.NearLeg.AvgExecPrice().Mul(decimal.NewFromInt(s.NearLeg.Executed()))
	s.avgExecPrice = farNotional.Sub(nearNotional).Div(decimal.NewFromInt(farExec))
}
