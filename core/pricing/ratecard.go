// Package pricing computes the theoretical cost of billed pipeline activity.
//
// Rates are per billed hour and depend on the billing unit and on whether the
// work ran on the managed Azure integration runtime:
// https://azure.microsoft.com/en-in/pricing/details/synapse-analytics/
package pricing

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"pipeline-cost/core/types"
)

// Recognized billing units
const (
	UnitHours    = "Hours"
	UnitDIUHours = "DIUHours"
)

// MeterAzureIR is the meter type of the managed Azure integration runtime.
// Every other meter type is priced at the tier's default rate.
const MeterAzureIR = "AzureIR"

// Tier holds the hourly rates for one billing unit
type Tier struct {
	// AzureIR applies when the meter type is AzureIR
	AzureIR decimal.Decimal

	// Default applies to any other meter type
	Default decimal.Decimal
}

// Rate selects the rate for a meter type
func (t Tier) Rate(meterType string) decimal.Decimal {
	if meterType == MeterAzureIR {
		return t.AzureIR
	}
	return t.Default
}

// RateCard maps billing units to tiers. It is immutable once built and safe
// for concurrent use.
type RateCard struct {
	currency types.Currency
	tiers    map[string]Tier
}

// NewRateCard builds a rate card from a copy of tiers
func NewRateCard(currency types.Currency, tiers map[string]Tier) *RateCard {
	copied := make(map[string]Tier, len(tiers))
	for unit, tier := range tiers {
		copied[unit] = tier
	}
	if currency == "" {
		currency = types.CurrencyUSD
	}
	return &RateCard{currency: currency, tiers: copied}
}

// DefaultTiers returns the published Synapse pipeline rates
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		UnitHours: {
			AzureIR: decimal.RequireFromString("0.001"),
			Default: decimal.RequireFromString("0.0015"),
		},
		UnitDIUHours: {
			AzureIR: decimal.RequireFromString("0.25"),
			Default: decimal.RequireFromString("0.10"),
		},
	}
}

var defaultCard = NewRateCard(types.CurrencyUSD, DefaultTiers())

// Default returns the built-in rate card
func Default() *RateCard {
	return defaultCard
}

// Currency returns the currency of every rate on the card
func (c *RateCard) Currency() types.Currency {
	return c.currency
}

// Known reports whether the unit has a tier. Unknown units price at zero.
func (c *RateCard) Known(unit string) bool {
	_, ok := c.tiers[unit]
	return ok
}

// Rate returns the hourly rate for a unit and meter type, and false when
// the unit is not on the card.
func (c *RateCard) Rate(unit, meterType string) (decimal.Decimal, bool) {
	tier, ok := c.tiers[unit]
	if !ok {
		return decimal.Zero, false
	}
	return tier.Rate(meterType), true
}

// Price returns rate * durationHours. It is total: an unrecognized unit
// or a NaN or infinite duration yields zero rather than an error.
func (c *RateCard) Price(unit, meterType string, durationHours float64) decimal.Decimal {
	rate, ok := c.Rate(unit, meterType)
	if !ok || math.IsNaN(durationHours) || math.IsInf(durationHours, 0) {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromFloat(durationHours))
}

// Units returns the units on the card in sorted order
func (c *RateCard) Units() []string {
	units := make([]string, 0, len(c.tiers))
	for unit := range c.tiers {
		units = append(units, unit)
	}
	sort.Strings(units)
	return units
}

// Tier returns the tier for a unit
func (c *RateCard) Tier(unit string) (Tier, bool) {
	tier, ok := c.tiers[unit]
	return tier, ok
}

// Price prices a billed duration with the built-in rate card
func Price(unit, meterType string, durationHours float64) decimal.Decimal {
	return defaultCard.Price(unit, meterType, durationHours)
}
