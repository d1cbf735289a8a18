package calc

import (
	"github.com/vroonhof/opensteuerauszug/internal/money"
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// FillInTaxValueCalculator runs after the Kursliste pass and handles the
// residue: a broker reported a payment with no Kursliste counterpart
// (§4.4). It embeds KurslisteTaxValueCalculator so every other hook —
// security lookup, tax-value override, payment synthesis — is inherited
// unchanged; only HandleSecurityPayment is overridden.
type FillInTaxValueCalculator struct {
	*KurslisteTaxValueCalculator

	currentSecurityCountry string
}

func NewFillInTaxValueCalculator(inner *KurslisteTaxValueCalculator) *FillInTaxValueCalculator {
	return &FillInTaxValueCalculator{KurslisteTaxValueCalculator: inner}
}

// HandleSecurity captures the country for the classification below, then
// delegates to the Kursliste pass for lookup, tax-value override, and
// payment synthesis.
func (f *FillInTaxValueCalculator) HandleSecurity(rc *RunContext, depot *taxstatement.Depot, sec *taxstatement.Security) error {
	f.currentSecurityCountry = sec.Country
	return f.KurslisteTaxValueCalculator.HandleSecurity(rc, depot, sec)
}

// HandleSecurityPayment classifies a residual broker-only payment — one
// Kursliste synthesis left untouched, i.e. lacking Kursliste=true — into
// CHF and A/B buckets (§4.4). Payments the Kursliste pass already
// synthesized carry their own authoritative exchangeRate/chfAmount (from
// paymentValueCHF, not a generically looked-up rate for paymentDate) and
// must not be touched again here, or Overwrite would silently replace
// Kursliste's CHF amount with one derived from a possibly different rate
// source, breaking §8 property 2.
func (f *FillInTaxValueCalculator) HandleSecurityPayment(rc *RunContext, sec *taxstatement.Security, p *taxstatement.SecurityPayment) error {
	path := "security[].payment[]"

	if p.Kursliste {
		return nil
	}

	if err := f.MinimalTaxValueCalculator.HandleSecurityPayment(rc, sec, p); err != nil {
		return err
	}

	if p.AmountCurrency == "" || p.PaymentDate.IsZero() {
		return nil
	}

	rate, ok := f.exchangeRate(p.AmountCurrency, p.PaymentDate)
	if !ok {
		return newErr(ErrMissingExchangeRate, path, "no exchange rate for %s on %s", p.AmountCurrency, p.PaymentDate)
	}
	rc.SetDecimal(path+".exchangeRate", &p.ExchangeRate, rate)
	chfAmount := p.Amount.Mul(rate)

	if f.currentSecurityCountry == "" {
		if !chfAmount.IsZero() {
			return newErr(ErrMissingCurrency, path, "payment on %s has non-zero revenue but security has no country", p.PaymentDate)
		}
		return nil
	}

	if taxstatement.IsSwiss(f.currentSecurityCountry) {
		rc.SetDecimal(path+".grossRevenueA", &p.GrossRevenueA, chfAmount)
		rc.SetDecimal(path+".withHoldingTaxClaim", &p.WithHoldingTaxClaim, money.WithHoldingTaxClaim(chfAmount))
	} else {
		rc.SetDecimal(path+".grossRevenueB", &p.GrossRevenueB, chfAmount)
	}
	return nil
}
