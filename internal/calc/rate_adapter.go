package calc

import (
	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/kursliste"
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// KurslisteRateAdapter is the production ExchangeRateProvider (§6.4): it
// wraps a KurslisteAccessor and exposes its exchange rates to the minimal
// calculator. Unlike the accessor's own GetExchangeRate, this narrower
// facade is what gets installed as MinimalTaxValueCalculator.Rates when a
// Kursliste is available.
type KurslisteRateAdapter struct {
	Accessor kursliste.Accessor
}

func (a KurslisteRateAdapter) GetExchangeRate(currency string, referenceDate taxstatement.Date) (decimal.Decimal, bool) {
	return a.Accessor.GetExchangeRate(currency, referenceDate)
}
