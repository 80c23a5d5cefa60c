package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Split is the commission breakdown of a gross amount.
type Split struct {
	CommissionCents int64
	NetCents        int64
}

// Calculator applies the platform commission rate. It is the single source of
// truth for the split: draft creation and every downstream recomputation go
// through the same instance so rounding can never drift.
type Calculator struct {
	rate decimal.Decimal
}

// NewCalculator parses the configured rate (e.g. "0.15").
func NewCalculator(rate string) (*Calculator, error) {
	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parsing commission rate %q: %w", rate, err)
	}
	if parsed.IsNegative() || parsed.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate %s outside [0,1)", parsed)
	}
	return &Calculator{rate: parsed}, nil
}

// Rate returns the configured commission rate.
func (c *Calculator) Rate() decimal.Decimal {
	return c.rate
}

// Calculate splits a gross amount into commission and net. Commission rounds
// half-up; net is the exact remainder so commission + net always equals the
// gross amount.
func (c *Calculator) Calculate(amountCents int64) Split {
	gross := decimal.NewFromInt(amountCents)
	commission := gross.Mul(c.rate).Round(0).IntPart()
	return Split{
		CommissionCents: commission,
		NetCents:        amountCents - commission,
	}
}
