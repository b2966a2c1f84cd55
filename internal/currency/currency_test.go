package currency

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, rate string) *Engine {
	t.Helper()
	book, err := NewRateBook(decimal.RequireFromString(rate))
	require.NoError(t, err)
	e, err := NewEngine(book, "VES", "Bs.", "es-VE")
	require.NoError(t, err)
	return e
}

func TestEngine_Total(t *testing.T) {
	e := newTestEngine(t, "141.884300")

	totals, err := e.Total(decimal.RequireFromString("10.00"), 3)
	require.NoError(t, err)
	assert.Equal(t, "30.00", totals.USD.StringFixed(2))
	assert.Equal(t, "4256.53", totals.Local.StringFixed(2))
	assert.Equal(t, int64(1), totals.Rate.Version)
}

func TestRound_HalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":   "1.01",
		"1.004":   "1.00",
		"2.675":   "2.68",
		"0.125":   "0.13",
		"4256.529": "4256.53",
	}
	for in, want := range cases {
		assert.Equal(t, want, Round(decimal.RequireFromString(in)).StringFixed(2), in)
	}
}

func TestRate_RoundTrip(t *testing.T) {
	rate, err := NewRate(decimal.RequireFromString("141.8843"), 1, time.Now())
	require.NoError(t, err)

	for _, s := range []string{"0.01", "0.99", "10.00", "30.00", "123.45", "9999.99"} {
		usd := decimal.RequireFromString(s)
		local, err := rate.ToLocal(usd)
		require.NoError(t, err)
		back, err := rate.ToUSD(local)
		require.NoError(t, err)
		assert.True(t, back.Equal(usd), "%s -> %s -> %s", usd, local, back)
	}
}

func TestRate_KeepsSixDecimals(t *testing.T) {
	rate, err := NewRate(decimal.RequireFromString("141.88430049"), 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "141.8843", rate.USDToLocal.String())
}

func TestInvalidAmounts(t *testing.T) {
	e := newTestEngine(t, "141.8843")

	_, err := FromFloat(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = FromFloat(math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = FromFloat(-1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = e.Convert(decimal.NewFromInt(-5), USD, "VES")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = e.Total(decimal.NewFromInt(-1), 2)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewRate(decimal.Zero, 1, time.Now())
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestEngine_Convert(t *testing.T) {
	e := newTestEngine(t, "141.8843")

	local, err := e.Convert(decimal.RequireFromString("30"), USD, "VES")
	require.NoError(t, err)
	assert.Equal(t, "4256.53", local.StringFixed(2))

	usd, err := e.Convert(local, "VES", USD)
	require.NoError(t, err)
	assert.Equal(t, "30.00", usd.StringFixed(2))

	_, err = e.Convert(decimal.NewFromInt(1), USD, "EUR")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestEngine_FormatDoesNotMutate(t *testing.T) {
	e := newTestEngine(t, "141.8843")
	amount := decimal.RequireFromString("1234.5")

	assert.Equal(t, "$1,234.50", e.Format(amount, USD))
	assert.Contains(t, e.Format(amount, "VES"), "Bs.")
	assert.Equal(t, "1234.5", amount.String())
}

func TestEngine_FormatLargeAmounts(t *testing.T) {
	e := newTestEngine(t, "141.8843")
	huge := decimal.RequireFromString("123456789012345678.995")
	assert.Equal(t, "$123,456,789,012,345,679.00", e.Format(huge, USD))
	assert.Equal(t, "$987,654,321,987,654.32", e.Format(decimal.RequireFromString("987654321987654.321"), USD))
	assert.Equal(t, "$0.05", e.Format(decimal.RequireFromString("0.045"), USD))
	assert.Equal(t, "$999.00", e.Format(decimal.NewFromInt(999), USD))

	book, err := NewRateBook(decimal.RequireFromString("0.92"))
	require.NoError(t, err)
	de, err := NewEngine(book, "EUR", "€", "de-DE")
	require.NoError(t, err)
	assert.Equal(t, "€ 1.234.567.890.123.456,79", de.Format(decimal.RequireFromString("1234567890123456.789"), "EUR"))
}

func TestRateBook_Publish(t *testing.T) {
	book, err := NewRateBook(decimal.RequireFromString("100"))
	require.NoError(t, err)

	before := book.Snapshot()
	next, err := book.Publish(decimal.RequireFromString("120.5"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, next.Version)
	assert.Equal(t, "100", before.USDToLocal.String())

	same, err := book.Publish(decimal.RequireFromString("120.500000"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, next.Version, same.Version)

	_, err = book.Publish(decimal.NewFromInt(-3), time.Now())
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, next.Version, book.Snapshot().Version)
}

func TestRateBook_ConcurrentPublish(t *testing.T) {
	book, err := NewRateBook(decimal.NewFromInt(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 2; i <= 51; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			_, _ = book.Publish(decimal.NewFromInt(v), time.Now())
			_ = book.Snapshot()
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, int64(51), book.Snapshot().Version)
}

func TestSplit(t *testing.T) {
	shares := Split(decimal.RequireFromString("4256.53"), 3)
	require.Len(t, shares, 3)
	assert.Equal(t, "1418.85", shares[0].StringFixed(2))
	assert.Equal(t, "1418.84", shares[1].StringFixed(2))
	assert.Equal(t, "1418.84", shares[2].StringFixed(2))

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("4256.53")))

	assert.Nil(t, Split(decimal.NewFromInt(1), 0))
}
