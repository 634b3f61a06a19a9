package arbitrage

import (
	"fmt"

	apperrors "arb_engine/pkg/errors"

	"github.com/shopspring/decimal"
)

// ComputeGap returns the relative price gap (sell - buy) / buy between the
// two venues. The buy price must be strictly positive.
func ComputeGap(buyPrice, sellPrice decimal.Decimal) (decimal.Decimal, error) {
	if buyPrice.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: buy price %s", apperrors.ErrInvalidPrice, buyPrice)
	}
	return sellPrice.Sub(buyPrice).Div(buyPrice), nil
}
