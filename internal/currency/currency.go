// Package currency converts, rounds and formats amounts between USD and the
// configured local currency.
package currency

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Code is an ISO-4217 style currency tag.
type Code string

// USD is the base currency; raffle prices are expressed in it.
const USD Code = "USD"

const (
	// MoneyPlaces is the precision of every persisted or displayed amount.
	MoneyPlaces = 2
	// RatePlaces is the precision the exchange rate is retained at.
	RatePlaces = 6
	// divisionPlaces bounds intermediate precision for local -> USD conversion.
	divisionPlaces = 12
)

// ErrInvalidAmount is returned for negative or non-finite amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrUnsupportedCurrency is returned for a tag that is neither USD nor the local code.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// ParseCode normalises a currency tag.
func ParseCode(s string) Code {
	return Code(strings.ToUpper(strings.TrimSpace(s)))
}

// Round rounds to MoneyPlaces, half away from zero. Amounts are never negative
// by the time they get here, so this is half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FromFloat converts a float coming from a request into a decimal amount,
// rejecting NaN, infinities and negatives instead of clamping them.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v is not finite", ErrInvalidAmount, f)
	}
	if f < 0 {
		return decimal.Zero, fmt.Errorf("%w: %v is negative", ErrInvalidAmount, f)
	}
	return decimal.NewFromFloat(f), nil
}

func checkAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d.String())
	}
	return nil
}

// Split divides a rounded total into n shares that differ by at most one cent
// and sum exactly to total. Earlier shares absorb the remainder.
func Split(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	cents := Round(total).Shift(MoneyPlaces).IntPart()
	base, rem := cents/int64(n), cents%int64(n)
	out := make([]decimal.Decimal, n)
	for i := range out {
		c := base
		if int64(i) < rem {
			c++
		}
		out[i] = decimal.New(c, -MoneyPlaces)
	}
	return out
}
