// Package pricing converts a EUR base price into every supported currency and
// applies percentage discounts.
package pricing

import (
	"fmt"
	"math"

	"github.com/iliyamo/cinema-booking/internal/apperr"
)

// Currency is an ISO 4217 code accepted for ticket prices.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	CHF Currency = "CHF"
)

// Currencies lists every priced currency in display order.
var Currencies = []Currency{EUR, USD, CHF}

// Rates is an exchange-rate snapshot relative to EUR.
type Rates map[Currency]float64

// Prices holds base and discounted prices in every currency.
type Prices struct {
	BaseEUR  float64 `json:"basePriceEUR"`
	BaseUSD  float64 `json:"basePriceUSD"`
	BaseCHF  float64 `json:"basePriceCHF"`
	Discount float64 `json:"discount"`
	EUR      float64 `json:"priceEUR"`
	USD      float64 `json:"priceUSD"`
	CHF      float64 `json:"priceCHF"`
}

// field binds a currency to its base and final price slots.
type field struct {
	base  func(*Prices) *float64
	final func(*Prices) *float64
}

var fields = map[Currency]field{
	EUR: {base: func(p *Prices) *float64 { return &p.BaseEUR }, final: func(p *Prices) *float64 { return &p.EUR }},
	USD: {base: func(p *Prices) *float64 { return &p.BaseUSD }, final: func(p *Prices) *float64 { return &p.USD }},
	CHF: {base: func(p *Prices) *float64 { return &p.BaseCHF }, final: func(p *Prices) *float64 { return &p.CHF }},
}

// ParseCurrency validates a currency code.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(s)
	_, ok := fields[c]
	return c, ok
}

// For returns the discounted price in c, or 0 for an unknown currency.
func (p Prices) For(c Currency) float64 {
	f, ok := fields[c]
	if !ok {
		return 0
	}
	return *f.final(&p)
}

// Base returns the undiscounted price in c.
func (p Prices) Base(c Currency) float64 {
	f, ok := fields[c]
	if !ok {
		return 0
	}
	return *f.base(&p)
}

// ValidateDiscount rejects percentages outside [0, 100].
func ValidateDiscount(percent float64) error {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return apperr.Validation(apperr.ReasonInvalidDiscount, "discount must be between 0 and 100")
	}
	return nil
}

// Compute converts basePriceEUR with rates and applies discountPercent.
// A missing or non-positive rate is an upstream failure, never a zero price.
func Compute(basePriceEUR, discountPercent float64, rates Rates) (Prices, error) {
	if err := ValidateDiscount(discountPercent); err != nil {
		return Prices{}, err
	}
	var p Prices
	for _, c := range Currencies {
		rate := 1.0
		if c != EUR {
			r, ok := rates[c]
			if !ok || r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
				return Prices{}, apperr.Upstream(apperr.ReasonRateFetchFailed,
					"exchange rates unavailable", fmt.Errorf("invalid %s rate %v", c, r))
			}
			rate = r
		}
		*fields[c].base(&p) = basePriceEUR * rate
	}
	return ApplyDiscount(p, discountPercent)
}

// ApplyDiscount recomputes the final prices from the stored base prices.
func ApplyDiscount(p Prices, discountPercent float64) (Prices, error) {
	if err := ValidateDiscount(discountPercent); err != nil {
		return Prices{}, err
	}
	factor := 1 - discountPercent/100
	p.Discount = discountPercent
	for _, c := range Currencies {
		f := fields[c]
		*f.final(&p) = *f.base(&p) * factor
	}
	return p, nil
}

// Round rounds every price to two decimals. Only the refresh job persists
// rounded values.
func Round(p Prices) Prices {
	for _, c := range Currencies {
		f := fields[c]
		*f.base(&p) = round2(*f.base(&p))
		*f.final(&p) = round2(*f.final(&p))
	}
	return p
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
