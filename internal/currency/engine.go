package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Totals is a price expressed in both currencies from a single rate snapshot.
type Totals struct {
	USD   decimal.Decimal `json:"usd"`
	Local decimal.Decimal `json:"local"`
	Rate  Rate            `json:"rate"`
}

// Engine prices ticket batches and formats amounts for display.
type Engine struct {
	book        *RateBook
	localCode   Code
	localSymbol string
	usdStyle    numberStyle
	locStyle    numberStyle
}

// numberStyle holds the separators a locale uses for grouping and decimals.
type numberStyle struct {
	group string
	point string
}

func styleOf(p *message.Printer) numberStyle {
	st := numberStyle{point: "."}
	if grouped := p.Sprintf("%d", 1234567); strings.HasPrefix(grouped, "1") {
		if i := strings.Index(grouped, "2"); i > 0 {
			st.group = grouped[1:i]
		}
	}
	if half := p.Sprintf("%.1f", 0.5); strings.HasPrefix(half, "0") && strings.HasSuffix(half, "5") && len(half) > 2 {
		st.point = half[1 : len(half)-1]
	}
	return st
}

// format writes amount rounded to cents from its exact digits, grouping the
// integer part in threes.
func (st numberStyle) format(amount decimal.Decimal) string {
	fixed := Round(amount).StringFixed(2)
	var b strings.Builder
	if strings.HasPrefix(fixed, "-") {
		b.WriteByte('-')
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	for i := 0; i < len(whole); i++ {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(st.group)
		}
		b.WriteByte(whole[i])
	}
	b.WriteString(st.point)
	b.WriteString(frac)
	return b.String()
}

// NewEngine builds an Engine for the given local currency. locale is a BCP 47
// tag used for grouping and decimal separators of local amounts.
func NewEngine(book *RateBook, localCode Code, localSymbol, locale string) (*Engine, error) {
	if localCode == "" || localCode == USD {
		return nil, fmt.Errorf("%w: local currency %q", ErrUnsupportedCurrency, localCode)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Engine{
		book:        book,
		localCode:   localCode,
		localSymbol: localSymbol,
		usdStyle:    styleOf(message.NewPrinter(language.AmericanEnglish)),
		locStyle:    styleOf(message.NewPrinter(tag)),
	}, nil
}

// LocalCode returns the secondary currency tag.
func (e *Engine) LocalCode() Code { return e.localCode }

// Rates exposes the underlying rate book.
func (e *Engine) Rates() *RateBook { return e.book }

// Supports reports whether code is one of the two currencies.
func (e *Engine) Supports(code Code) bool {
	return code == USD || code == e.localCode
}

// Total computes unitPrice*count in USD and converts it, both rounded to cents.
func (e *Engine) Total(unitPriceUSD decimal.Decimal, count int) (Totals, error) {
	if count < 0 {
		return Totals{}, fmt.Errorf("%w: negative ticket count %d", ErrInvalidAmount, count)
	}
	if err := checkAmount(unitPriceUSD); err != nil {
		return Totals{}, err
	}
	rate := e.book.Snapshot()
	usd := Round(unitPriceUSD.Mul(decimal.NewFromInt(int64(count))))
	local, err := rate.ToLocal(usd)
	if err != nil {
		return Totals{}, err
	}
	return Totals{USD: usd, Local: local, Rate: rate}, nil
}

// In picks the side of t matching code.
func (t Totals) In(code Code) decimal.Decimal {
	if code == USD {
		return t.USD
	}
	return t.Local
}

// Convert moves amount between the two supported currencies using the
// current snapshot.
func (e *Engine) Convert(amount decimal.Decimal, from, to Code) (decimal.Decimal, error) {
	if !e.Supports(from) || !e.Supports(to) {
		return decimal.Zero, fmt.Errorf("%w: %s -> %s", ErrUnsupportedCurrency, from, to)
	}
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}
	rate := e.book.Snapshot()
	switch {
	case from == to:
		return Round(amount), nil
	case from == USD:
		return rate.ToLocal(amount)
	default:
		return rate.ToUSD(amount)
	}
}

// Format renders amount for display, e.g. "$1,234.50" or "Bs. 4.256,53".
// The amount itself is not modified.
func (e *Engine) Format(amount decimal.Decimal, code Code) string {
	if code == USD {
		return "$" + e.usdStyle.format(amount)
	}
	return e.localSymbol + " " + e.locStyle.format(amount)
}
