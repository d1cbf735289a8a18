// Package kursliste defines the KurslisteAccessor contract (§6.3): the
// read-only, year-scoped price-list facade the calculation engine consumes.
// Loading the actual price list from XML or SQLite is out of scope (§1);
// this package only defines the shapes the core reads and a couple of
// adapters (a memoizing wrapper, an in-memory fake for tests) that are
// legitimate parts of the core's own contract and test surface.
package kursliste

import (
	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// Security is the price-list's view of one security (§3): authoritative
// metadata plus its payments and prices for the accessor's year.
type Security struct {
	ValorNumber   int64
	ISIN          string
	SecurityGroup taxstatement.SecurityGroup
	SecurityType  string
	Country       string
	Currency      string
	Payments      []Payment
	// YearEndPrice and DailyPrices implement getSecurityPrice (§6.3):
	// a daily price is consulted first, falling back to the year-end
	// price when the date has no daily quote.
	YearEndPrice *decimal.Decimal
	DailyPrices  map[string]decimal.Decimal // keyed by "YYYY-MM-DD"
}

// Legend carries optional stock-split metadata attached to a tax-event
// payment (§3, §4.3 step 6).
type Legend struct {
	RatioPresent   decimal.Decimal
	RatioNew       decimal.Decimal
	ValorNumberNew int64 // 0 means same-ISIN split
}

// Payment is the Kursliste's authoritative dividend/coupon event (§3).
type Payment struct {
	PaymentDate     taxstatement.Date
	ExDate          *taxstatement.Date
	PaymentValue    *decimal.Decimal // per-unit value in the security's own currency
	PaymentValueCHF *decimal.Decimal // per-unit value already converted to CHF
	ExchangeRate    *decimal.Decimal
	WithHoldingTax  bool
	CapitalGain     bool
	Undefined       bool
	TaxEvent        *bool
	Sign            *taxstatement.Sign
	PaymentType     taxstatement.PaymentType
	Deleted         bool
	Legend          *Legend
}

// Da1Rate is one row of the DA-1 treaty-relief rate table (§3, §6.3),
// keyed by (country, securityGroup, optional securityType, validity
// window).
type Da1Rate struct {
	Country        string
	SecurityGroup  taxstatement.SecurityGroup
	SecurityType   *string
	ValidFrom      *taxstatement.Date
	ValidTo        *taxstatement.Date
	LumpSumPercent decimal.Decimal
	NonRecoverablePercent decimal.Decimal
}

// Sign resolves a raw Kursliste sign string to the closed Sign enum (§6.3).
type Sign = taxstatement.Sign

// Accessor is the year-scoped read-only price-list facade the core
// consumes (§6.3). All lookups are logically memoized: implementations
// must be safe to share across calls within a run (§5).
type Accessor interface {
	// Year returns the tax year this accessor was constructed for.
	Year() int

	// GetExchangeRate returns the CHF exchange rate for currency on
	// referenceDate. CHF always returns 1. Returns (zero, false) when
	// unknown.
	GetExchangeRate(currency string, referenceDate taxstatement.Date) (decimal.Decimal, bool)

	// GetSecurityByValor looks up a security by valor number.
	GetSecurityByValor(valor int64) (Security, bool)

	// GetSecurityByIsin looks up a security by ISIN.
	GetSecurityByIsin(isin string) (Security, bool)

	// GetSecurityPrice returns the known price for isin on priceDate:
	// the daily price if known, else the year-end price (§6.3).
	GetSecurityPrice(isin string, priceDate taxstatement.Date) (decimal.Decimal, bool)

	// GetSignByValue resolves a raw sign string to the closed Sign set.
	GetSignByValue(signString string) (Sign, bool)

	// GetDa1Rate selects a DA-1 rate per the rules in §6.3: filter by
	// (country, group), prefer a type match if any candidate has one,
	// else fall back to type=None candidates, then filter by validity
	// window when referenceDate is given, returning the first match.
	GetDa1Rate(country string, group taxstatement.SecurityGroup, secType *string, referenceDate *taxstatement.Date) (Da1Rate, bool)
}
