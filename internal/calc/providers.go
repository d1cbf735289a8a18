package calc

import (
	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// ExchangeRateProvider supplies the CHF exchange rates
// MinimalTaxValueCalculator uses for currency conversion (§6.4). When a
// Kursliste accessor is available the calculators use KurslisteRateAdapter
// as their provider; there is no fallback from one provider to another.
type ExchangeRateProvider interface {
	GetExchangeRate(currency string, referenceDate taxstatement.Date) (decimal.Decimal, bool)
}

// NoExchangeRateProvider always misses, the default when no supplementary
// source is configured.
type NoExchangeRateProvider struct{}

func (NoExchangeRateProvider) GetExchangeRate(string, taxstatement.Date) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

// FlagOverride carries a manual correction for one payment's classification
// (§6.5). Payment synthesis applies only Sign; PaymentType is not read.
type FlagOverride struct {
	PaymentType *taxstatement.PaymentType
	Sign        *taxstatement.Sign
}

// FlagOverrideProvider supplies per-security, per-payment-date manual
// overrides (§6.5). Looked up after the Kursliste sign has been validated;
// an override's Sign replaces the payment's sign and so can change which
// DA-1 rate applies (e.g. "(Q)"). The A/B bucket is not affected: it
// follows the Kursliste payment's withHoldingTax flag.
type FlagOverrideProvider interface {
	GetOverride(identifier string, paymentDate taxstatement.Date) (FlagOverride, bool)
}

// NoFlagOverrideProvider never overrides anything, the default.
type NoFlagOverrideProvider struct{}

func (NoFlagOverrideProvider) GetOverride(string, taxstatement.Date) (FlagOverride, bool) {
	return FlagOverride{}, false
}
