package currency

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Rate is an immutable, versioned snapshot of the USD -> local exchange rate.
// Price computations read one snapshot up front so a concurrent update never
// changes an in-flight calculation.
type Rate struct {
	USDToLocal decimal.Decimal `json:"usdToLocal"`
	Version    int64           `json:"version"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewRate validates and normalises a rate to RatePlaces.
func NewRate(usdToLocal decimal.Decimal, version int64, updatedAt time.Time) (Rate, error) {
	if !usdToLocal.IsPositive() {
		return Rate{}, fmt.Errorf("%w: exchange rate must be positive, got %s", ErrInvalidAmount, usdToLocal.String())
	}
	return Rate{
		USDToLocal: usdToLocal.Round(RatePlaces),
		Version:    version,
		UpdatedAt:  updatedAt,
	}, nil
}

// ToLocal converts a USD amount to the local currency, rounded to cents.
func (r Rate) ToLocal(usd decimal.Decimal) (decimal.Decimal, error) {
	if err := checkAmount(usd); err != nil {
		return decimal.Zero, err
	}
	return Round(usd.Mul(r.USDToLocal)), nil
}

// ToUSD converts a local amount back to USD through the reciprocal of the same
// rate, so ToUSD(ToLocal(x)) == x at cent precision.
func (r Rate) ToUSD(local decimal.Decimal) (decimal.Decimal, error) {
	if err := checkAmount(local); err != nil {
		return decimal.Zero, err
	}
	return Round(local.DivRound(r.USDToLocal, divisionPlaces)), nil
}

// RateBook holds the current Rate and publishes replacements atomically.
type RateBook struct {
	mu      sync.Mutex
	current atomic.Pointer[Rate]
}

// NewRateBook seeds the book with an initial rate at version 1.
func NewRateBook(usdToLocal decimal.Decimal) (*RateBook, error) {
	r, err := NewRate(usdToLocal, 1, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	b := &RateBook{}
	b.current.Store(&r)
	return b, nil
}

// Snapshot returns the rate in effect right now.
func (b *RateBook) Snapshot() Rate {
	return *b.current.Load()
}

// Publish installs a new rate with the next version. Publishing the value
// already in effect is a no-op and returns the current snapshot.
func (b *RateBook) Publish(usdToLocal decimal.Decimal, at time.Time) (Rate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.current.Load()
	if cur.USDToLocal.Equal(usdToLocal.Round(RatePlaces)) {
		return *cur, nil
	}
	next, err := NewRate(usdToLocal, cur.Version+1, at)
	if err != nil {
		return Rate{}, err
	}
	b.current.Store(&next)
	return next, nil
}
