package calc

import (
	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/money"
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// MinimalTaxValueCalculator fills in the fields that follow directly from
// the presence of a currency and a reference date: the CHF exchange rate
// and the CHF value of an amount already present (§4.2). It is the
// innermost stage of the Minimal -> Kursliste -> FillIn composition chain
// (§9); later stages embed it and reuse its context-capture and
// currency-conversion behavior unless they override a specific hook.
type MinimalTaxValueCalculator struct {
	BaseCalculator

	Rates ExchangeRateProvider

	currentAccountIsTypeA  bool
	currentSecurityIsTypeA bool

	// computePayments is invoked by HandleSecurity once the current-security
	// context is captured, and is the composition-based stand-in for
	// subclass override §9 describes ("computePayments, the hook overridden
	// by the Kursliste pass"): KurslisteTaxValueCalculator replaces this
	// field with its own synthesis routine in its constructor, while every
	// other hook continues to resolve to the methods defined here via plain
	// struct embedding.
	computePayments func(rc *RunContext, sec *taxstatement.Security) error
}

// NewMinimalTaxValueCalculator builds a minimal calculator using rates for
// CHF conversion. A nil rates defaults to NoExchangeRateProvider.
func NewMinimalTaxValueCalculator(rates ExchangeRateProvider) *MinimalTaxValueCalculator {
	if rates == nil {
		rates = NoExchangeRateProvider{}
	}
	mc := &MinimalTaxValueCalculator{Rates: rates}
	mc.computePayments = mc.noopComputePayments
	return mc
}

func (mc *MinimalTaxValueCalculator) noopComputePayments(*RunContext, *taxstatement.Security) error {
	return nil
}

// exchangeRate resolves currency at referenceDate, short-circuiting CHF to
// 1 before consulting the provider.
func (mc *MinimalTaxValueCalculator) exchangeRate(currency string, referenceDate taxstatement.Date) (decimal.Decimal, bool) {
	if currency == money.CHF {
		return decimal.NewFromInt(1), true
	}
	return mc.Rates.GetExchangeRate(currency, referenceDate)
}

func (mc *MinimalTaxValueCalculator) HandleBankAccount(rc *RunContext, acct *taxstatement.BankAccount) error {
	mc.currentAccountIsTypeA = taxstatement.IsSwiss(acct.Country)
	return nil
}

func (mc *MinimalTaxValueCalculator) HandleBankAccountTaxValue(rc *RunContext, acct *taxstatement.BankAccount, tv *taxstatement.BankAccountTaxValue) error {
	path := "listOfBankAccounts[].taxValue[]"
	if tv.BalanceCurrency == "" {
		return nil
	}
	if tv.ReferenceDate.IsZero() {
		return newErr(ErrMissingDate, path, "balanceCurrency %q present without referenceDate", tv.BalanceCurrency)
	}
	rate, ok := mc.exchangeRate(tv.BalanceCurrency, tv.ReferenceDate)
	if !ok {
		return newErr(ErrMissingExchangeRate, path, "no exchange rate for %s on %s", tv.BalanceCurrency, tv.ReferenceDate)
	}
	rc.SetDecimalPtr(path+".exchangeRate", &tv.ExchangeRate, rate)
	if tv.Balance != nil {
		rc.SetDecimalPtr(path+".value", &tv.Value, tv.Balance.Mul(rate))
	}
	return nil
}

func (mc *MinimalTaxValueCalculator) HandleLiabilityAccountTaxValue(rc *RunContext, liab *taxstatement.LiabilityAccount, tv *taxstatement.LiabilityAccountTaxValue) error {
	path := "listOfLiabilities[].taxValue[]"
	if tv.BalanceCurrency == "" {
		return nil
	}
	if tv.ReferenceDate.IsZero() {
		return newErr(ErrMissingDate, path, "balanceCurrency %q present without referenceDate", tv.BalanceCurrency)
	}
	rate, ok := mc.exchangeRate(tv.BalanceCurrency, tv.ReferenceDate)
	if !ok {
		return newErr(ErrMissingExchangeRate, path, "no exchange rate for %s on %s", tv.BalanceCurrency, tv.ReferenceDate)
	}
	rc.SetDecimalPtr(path+".exchangeRate", &tv.ExchangeRate, rate)
	if tv.Balance != nil {
		rc.SetDecimalPtr(path+".value", &tv.Value, tv.Balance.Mul(rate))
	}
	return nil
}

// HandleSecurityStock treats a balance entry (Mutation=false) as the
// SecurityTaxValue node §4.2 describes: unitPrice/quantity stand in for
// "balance", converted to a CHF value. Mutation entries carry no value to
// convert and are left untouched by this hook.
func (mc *MinimalTaxValueCalculator) HandleSecurityStock(rc *RunContext, sec *taxstatement.Security, stock *taxstatement.SecurityStock) error {
	if stock.Mutation {
		return nil
	}
	path := "security[].stock[]"
	if stock.BalanceCurrency == "" {
		return nil
	}
	if stock.ReferenceDate.IsZero() {
		return newErr(ErrMissingDate, path, "balanceCurrency %q present without referenceDate", stock.BalanceCurrency)
	}
	rate, ok := mc.exchangeRate(stock.BalanceCurrency, stock.ReferenceDate)
	if !ok {
		return newErr(ErrMissingExchangeRate, path, "no exchange rate for %s on %s", stock.BalanceCurrency, stock.ReferenceDate)
	}
	rc.SetDecimalPtr(path+".exchangeRate", &stock.ExchangeRate, rate)
	if stock.UnitPrice != nil {
		localValue := stock.UnitPrice.Mul(stock.Quantity)
		rc.SetDecimalPtr(path+".value", &stock.Value, localValue.Mul(rate))
	}
	return nil
}

func (mc *MinimalTaxValueCalculator) HandleBankAccountPayment(rc *RunContext, acct *taxstatement.BankAccount, p *taxstatement.BankAccountPayment) error {
	path := "listOfBankAccounts[].payment[]"
	if p.AmountCurrency == "" || p.PaymentDate.IsZero() {
		return nil
	}
	rate, ok := mc.exchangeRate(p.AmountCurrency, p.PaymentDate)
	if !ok {
		return newErr(ErrMissingExchangeRate, path, "no exchange rate for %s on %s", p.AmountCurrency, p.PaymentDate)
	}
	rc.SetDecimalPtr(path+".exchangeRate", &p.ExchangeRate, rate)
	chfAmount := p.Amount.Mul(rate)

	if mc.currentAccountIsTypeA {
		rc.SetDecimalPtr(path+".grossRevenueA", &p.GrossRevenueA, chfAmount)
		rc.SetDecimalPtr(path+".withHoldingTaxClaim", &p.WithHoldingTaxClaim, money.WithHoldingTaxClaim(chfAmount))
	} else {
		rc.SetDecimalPtr(path+".grossRevenueB", &p.GrossRevenueB, chfAmount)
	}
	return nil
}

// HandleLiabilityAccountPayment always classifies as type B: interest paid
// is never subject to Swiss withholding (§4.2).
func (mc *MinimalTaxValueCalculator) HandleLiabilityAccountPayment(rc *RunContext, liab *taxstatement.LiabilityAccount, p *taxstatement.LiabilityAccountPayment) error {
	path := "listOfLiabilities[].payment[]"
	if p.AmountCurrency == "" || p.PaymentDate.IsZero() {
		return nil
	}
	rate, ok := mc.exchangeRate(p.AmountCurrency, p.PaymentDate)
	if !ok {
		return newErr(ErrMissingExchangeRate, path, "no exchange rate for %s on %s", p.AmountCurrency, p.PaymentDate)
	}
	rc.SetDecimalPtr(path+".exchangeRate", &p.ExchangeRate, rate)
	chfAmount := p.Amount.Mul(rate)
	rc.SetDecimalPtr(path+".grossRevenueB", &p.GrossRevenueB, chfAmount)
	return nil
}

// HandleSecurity captures the issuer-country context nested payments need,
// then triggers payment computation (§5: "_handle_Security fires before
// visiting children... computePayments is triggered by the Security
// handler after context setup").
func (mc *MinimalTaxValueCalculator) HandleSecurity(rc *RunContext, depot *taxstatement.Depot, sec *taxstatement.Security) error {
	mc.currentSecurityIsTypeA = taxstatement.IsSwiss(sec.Country)
	return mc.computePayments(rc, sec)
}

// HandleSecurityPayment defaults AdditionalWithHoldingTaxUSA to 0 for US
// securities when absent (§4.2), reading the country from sec. This hook
// does no currency conversion or A/B classification; for broker-only
// payments that is FillInTaxValueCalculator's job (§4.4).
func (mc *MinimalTaxValueCalculator) HandleSecurityPayment(rc *RunContext, sec *taxstatement.Security, p *taxstatement.SecurityPayment) error {
	if taxstatement.IsUS(sec.Country) && p.AdditionalWithHoldingTaxUSA == nil {
		zero := money.Zero
		rc.SetDecimalPtr("security[].payment[].additionalWithHoldingTaxUsa", &p.AdditionalWithHoldingTaxUSA, zero)
	}
	return nil
}
