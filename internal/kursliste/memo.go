package kursliste

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// MemoizingAccessor wraps an Accessor and caches every lookup, so an
// implementation backed by a slow store (XML parse, SQLite query) only
// pays that cost once per key within a run (§5: "results ... are expected
// to be memoized"). Safe for concurrent use, matching the "safe to share
// across calls within a run" contract even though the pipeline itself is
// single-threaded (§5).
type MemoizingAccessor struct {
	inner Accessor

	mu          sync.Mutex
	rates       map[string]rateEntry
	byValor     map[int64]secEntry
	byISIN      map[string]secEntry
	prices      map[string]priceEntry
	signs       map[string]signEntry
	da1         map[string]da1Entry
}

type rateEntry struct {
	rate decimal.Decimal
	ok   bool
}
type secEntry struct {
	sec Security
	ok  bool
}
type priceEntry struct {
	price decimal.Decimal
	ok    bool
}
type signEntry struct {
	sign Sign
	ok   bool
}
type da1Entry struct {
	rate Da1Rate
	ok   bool
}

// NewMemoizingAccessor wraps inner with a cache.
func NewMemoizingAccessor(inner Accessor) *MemoizingAccessor {
	return &MemoizingAccessor{
		inner:   inner,
		rates:   make(map[string]rateEntry),
		byValor: make(map[int64]secEntry),
		byISIN:  make(map[string]secEntry),
		prices:  make(map[string]priceEntry),
		signs:   make(map[string]signEntry),
		da1:     make(map[string]da1Entry),
	}
}

func (m *MemoizingAccessor) Year() int { return m.inner.Year() }

func (m *MemoizingAccessor) GetExchangeRate(currency string, referenceDate taxstatement.Date) (decimal.Decimal, bool) {
	key := currency + "|" + referenceDate.String()
	m.mu.Lock()
	if e, ok := m.rates[key]; ok {
		m.mu.Unlock()
		return e.rate, e.ok
	}
	m.mu.Unlock()

	rate, ok := m.inner.GetExchangeRate(currency, referenceDate)

	m.mu.Lock()
	m.rates[key] = rateEntry{rate, ok}
	m.mu.Unlock()
	return rate, ok
}

func (m *MemoizingAccessor) GetSecurityByValor(valor int64) (Security, bool) {
	m.mu.Lock()
	if e, ok := m.byValor[valor]; ok {
		m.mu.Unlock()
		return e.sec, e.ok
	}
	m.mu.Unlock()

	sec, ok := m.inner.GetSecurityByValor(valor)

	m.mu.Lock()
	m.byValor[valor] = secEntry{sec, ok}
	m.mu.Unlock()
	return sec, ok
}

func (m *MemoizingAccessor) GetSecurityByIsin(isin string) (Security, bool) {
	m.mu.Lock()
	if e, ok := m.byISIN[isin]; ok {
		m.mu.Unlock()
		return e.sec, e.ok
	}
	m.mu.Unlock()

	sec, ok := m.inner.GetSecurityByIsin(isin)

	m.mu.Lock()
	m.byISIN[isin] = secEntry{sec, ok}
	m.mu.Unlock()
	return sec, ok
}

func (m *MemoizingAccessor) GetSecurityPrice(isin string, priceDate taxstatement.Date) (decimal.Decimal, bool) {
	key := isin + "|" + priceDate.String()
	m.mu.Lock()
	if e, ok := m.prices[key]; ok {
		m.mu.Unlock()
		return e.price, e.ok
	}
	m.mu.Unlock()

	price, ok := m.inner.GetSecurityPrice(isin, priceDate)

	m.mu.Lock()
	m.prices[key] = priceEntry{price, ok}
	m.mu.Unlock()
	return price, ok
}

func (m *MemoizingAccessor) GetSignByValue(signString string) (Sign, bool) {
	m.mu.Lock()
	if e, ok := m.signs[signString]; ok {
		m.mu.Unlock()
		return e.sign, e.ok
	}
	m.mu.Unlock()

	sign, ok := m.inner.GetSignByValue(signString)

	m.mu.Lock()
	m.signs[signString] = signEntry{sign, ok}
	m.mu.Unlock()
	return sign, ok
}

func (m *MemoizingAccessor) GetDa1Rate(country string, group taxstatement.SecurityGroup, secType *string, referenceDate *taxstatement.Date) (Da1Rate, bool) {
	key := da1Key(country, group, secType, referenceDate)
	m.mu.Lock()
	if e, ok := m.da1[key]; ok {
		m.mu.Unlock()
		return e.rate, e.ok
	}
	m.mu.Unlock()

	rate, ok := m.inner.GetDa1Rate(country, group, secType, referenceDate)

	m.mu.Lock()
	m.da1[key] = da1Entry{rate, ok}
	m.mu.Unlock()
	return rate, ok
}

func da1Key(country string, group taxstatement.SecurityGroup, secType *string, referenceDate *taxstatement.Date) string {
	t := "-"
	if secType != nil {
		t = *secType
	}
	d := "-"
	if referenceDate != nil {
		d = referenceDate.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s", country, group, t, d)
}
