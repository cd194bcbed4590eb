// Package preset selects the conservative receive amount of a Fusion auction.
package preset

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrMissingAmount is returned when one of the auction amounts is nil.
	ErrMissingAmount = errors.New("missing auction amount")
	// ErrNegativeAmount is returned when one of the auction amounts is negative.
	ErrNegativeAmount = errors.New("negative auction amount")
	// ErrInvalidDecimals is returned for a negative decimal count.
	ErrInvalidDecimals = errors.New("invalid token decimals")
)

// Resolve returns the amount the user is guaranteed to receive from an auction.
// All amounts are destination token base units. The settled amount is capped at the
// auction start amount and floored at the auction end amount, so the result never
// overstates the fill and always lies between the two bounds in either order.
//
// Parameters:
// - start: the destination amount at auction start.
// - end: the destination amount at auction end.
// - settled: the destination amount reported by the quoter.
// - decimals: the destination token decimal count.
//
// Returns:
// - *big.Int: the conservative amount in base units.
// - error: an error if an amount is missing or negative.
func Resolve(start, end, settled *big.Int, decimals int32) (*big.Int, error) {
	if start == nil || end == nil || settled == nil {
		return nil, ErrMissingAmount
	}
	if start.Sign() < 0 || end.Sign() < 0 || settled.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if decimals < 0 {
		return nil, ErrInvalidDecimals
	}

	startUnits := toUnits(start, decimals)
	endUnits := toUnits(end, decimals)
	settledUnits := toUnits(settled, decimals)

	received := decimal.Min(settledUnits, startUnits)
	amount := decimal.Max(endUnits, received)

	return fromUnits(amount, decimals), nil
}

func toUnits(amount *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -decimals)
}

func fromUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}
