package calc

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/kursliste"
	"github.com/vroonhof/opensteuerauszug/internal/money"
	"github.com/vroonhof/opensteuerauszug/internal/reconcile"
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// KurslisteTaxValueCalculator is the heart of the engine (§4.3): it looks
// up each security in the price list, overrides the tax value with the
// official unit price, and rebuilds the entire payment list from the price
// list's authoritative events. It embeds MinimalTaxValueCalculator and
// installs its own computePayments hook in place of the no-op default,
// the composition §9 calls out explicitly.
type KurslisteTaxValueCalculator struct {
	*MinimalTaxValueCalculator

	Accessor kursliste.Accessor
	Flags    FlagOverrideProvider

	// KeepExistingPayments enables the undeduplicated Overwrite-mode merge
	// the source labels "debug only" (§9 Open Questions): kept for parity,
	// defaults to off.
	KeepExistingPayments bool

	statement                *taxstatement.TaxStatement
	currentKurslisteSecurity *kursliste.Security
}

// NewKurslisteTaxValueCalculator wires a KurslisteAccessor-backed rate
// adapter into the embedded minimal calculator and installs payment
// synthesis as the computePayments hook.
func NewKurslisteTaxValueCalculator(accessor kursliste.Accessor, flags FlagOverrideProvider) *KurslisteTaxValueCalculator {
	if flags == nil {
		flags = NoFlagOverrideProvider{}
	}
	mc := NewMinimalTaxValueCalculator(KurslisteRateAdapter{Accessor: accessor})
	k := &KurslisteTaxValueCalculator{
		MinimalTaxValueCalculator: mc,
		Accessor:                  accessor,
		Flags:                     flags,
	}
	k.computePayments = k.synthesizePayments
	return k
}

// HandleTaxStatement captures the statement pointer so that cross-ISIN
// split resolution (step 6) and critical-warning emission can reach the
// tree root without a package-level global (§3: "no global mutable
// state").
func (k *KurslisteTaxValueCalculator) HandleTaxStatement(rc *RunContext, ts *taxstatement.TaxStatement) error {
	k.statement = ts
	return nil
}

// HandleSecurity performs the security lookup (§4.3) before delegating to
// the embedded minimal calculator's context capture and computePayments
// dispatch.
func (k *KurslisteTaxValueCalculator) HandleSecurity(rc *RunContext, depot *taxstatement.Depot, sec *taxstatement.Security) error {
	k.currentKurslisteSecurity = nil

	var found kursliste.Security
	ok := false
	if sec.ValorNumber != 0 {
		found, ok = k.Accessor.GetSecurityByValor(sec.ValorNumber)
	}
	if !ok && sec.ISIN != "" {
		found, ok = k.Accessor.GetSecurityByIsin(sec.ISIN)
	}

	if !ok {
		if sec.IsRightsIssue {
			if closing, has := sec.ClosingBalance(); !has || closing.Quantity.IsZero() {
				return k.MinimalTaxValueCalculator.HandleSecurity(rc, depot, sec)
			}
		}
		k.statement.AddCriticalWarning(taxstatement.CriticalWarning{
			ID:         newWarningID(),
			Kind:       taxstatement.WarningMissingKursliste,
			Identifier: sec.Identifier(),
		})
		return k.MinimalTaxValueCalculator.HandleSecurity(rc, depot, sec)
	}

	if sec.ValorNumber == 0 && found.ValorNumber != 0 && rc.Mode != ModeVerify {
		sec.ValorNumber = found.ValorNumber
	}

	k.currentKurslisteSecurity = &found
	return k.MinimalTaxValueCalculator.HandleSecurity(rc, depot, sec)
}

// HandleSecurityStock overrides the tax-value conversion with the official
// Kursliste price when one is published for the balance's referenceDate
// (§4.3); otherwise falls back to the minimal conversion.
func (k *KurslisteTaxValueCalculator) HandleSecurityStock(rc *RunContext, sec *taxstatement.Security, stock *taxstatement.SecurityStock) error {
	if stock.Mutation || k.currentKurslisteSecurity == nil {
		return k.MinimalTaxValueCalculator.HandleSecurityStock(rc, sec, stock)
	}

	isin := k.currentKurslisteSecurity.ISIN
	if isin == "" {
		isin = sec.ISIN
	}
	price, ok := k.Accessor.GetSecurityPrice(isin, stock.ReferenceDate)
	if !ok {
		return k.MinimalTaxValueCalculator.HandleSecurityStock(rc, sec, stock)
	}

	path := "security[].stock[]"
	rc.SetDecimalPtr(path+".unitPrice", &stock.UnitPrice, price)
	rc.SetDecimalPtr(path+".value", &stock.Value, price.Mul(stock.Quantity))
	rc.SetDecimalPtr(path+".exchangeRate", &stock.ExchangeRate, decimal.NewFromInt(1))
	rc.SetString(path+".balanceCurrency", &stock.BalanceCurrency, money.CHF)
	rc.SetBool(path+".kursliste", &stock.Kursliste, true)
	return nil
}

// synthesizePayments rebuilds sec.Payment from the matched Kursliste
// entry's non-deleted payments (§4.3 steps 1-15), replacing the tree's
// payment list via setKurslistePayments (§4.4).
func (k *KurslisteTaxValueCalculator) synthesizePayments(rc *RunContext, sec *taxstatement.Security) error {
	if k.currentKurslisteSecurity == nil {
		return nil
	}
	kl := *k.currentKurslisteSecurity

	reconciler := reconcile.New(sec.Stock)

	var out []taxstatement.SecurityPayment
	for _, p := range kl.Payments {
		if p.Deleted || p.CapitalGain {
			continue
		}

		r := p.PaymentDate
		if p.ExDate != nil {
			r = *p.ExDate
		}

		if p.ExDate != nil && p.ExDate.Year() < rc.TaxPeriod {
			k.statement.AddCriticalWarning(taxstatement.CriticalWarning{
				ID:         newWarningID(),
				Kind:       taxstatement.WarningPreviousYearExdate,
				Identifier: sec.Identifier(),
				Message:    "ex-date " + p.ExDate.String() + " precedes tax period " + strconv.Itoa(rc.TaxPeriod),
			})
		}

		pos, ok := reconciler.SynthesizeAt(r, true)
		if !ok {
			return newErr(ErrReconciliation, "security[].payment[]", "cannot synthesize position for %s at %s", sec.Identifier(), r)
		}
		quantity := pos.Quantity

		if quantity.IsZero() {
			continue
		}

		if p.TaxEvent != nil && *p.TaxEvent && p.Legend != nil {
			if err := k.validateSplit(sec, p, quantity, r); err != nil {
				return err
			}
		}

		sign := p.Sign
		if sign != nil {
			if !taxstatement.KnownSigns[*sign] {
				return newErr(ErrUnknownSign, "security[].payment[]", "unknown sign %q on %s", *sign, sec.Identifier())
			}
			if taxstatement.NonTaxableSigns[*sign] {
				continue
			}
			if *sign == taxstatement.SignV {
				return newErr(ErrUnimplemented, "security[].payment[]", "sign (V) distribution-in-shares is not implemented for %s", sec.Identifier())
			}
		}

		if override, ok := k.Flags.GetOverride(sec.Identifier(), p.PaymentDate); ok && override.Sign != nil {
			sign = override.Sign
		}

		name := p.PaymentType.PaymentName(kl.SecurityGroup)

		if p.Undefined {
			out = append(out, taxstatement.SecurityPayment{
				PaymentDate:    p.PaymentDate,
				ExDate:         p.ExDate,
				Quantity:       quantity,
				AmountCurrency: kl.Currency,
				Sign:           sign,
				Kursliste:      true,
				Undefined:      true,
				Name:           name,
			})
			continue
		}

		var amountPerUnit decimal.Decimal
		switch {
		case p.PaymentValue != nil:
			amountPerUnit = *p.PaymentValue
		case p.PaymentValueCHF != nil:
			amountPerUnit = *p.PaymentValueCHF
		default:
			return newErr(ErrNotFound, "security[].payment[]", "Kursliste payment for %s on %s has neither paymentValue nor paymentValueCHF", sec.Identifier(), p.PaymentDate)
		}
		amount := amountPerUnit.Mul(quantity)

		var chfAmount decimal.Decimal
		if p.PaymentValueCHF != nil {
			chfAmount = p.PaymentValueCHF.Mul(quantity)
		} else {
			chfAmount = amount
		}

		var exchangeRate decimal.Decimal
		switch {
		case p.ExchangeRate != nil:
			exchangeRate = *p.ExchangeRate
		case kl.Currency == money.CHF:
			exchangeRate = decimal.NewFromInt(1)
		default:
			return newErr(ErrMissingExchangeRate, "security[].payment[]", "Kursliste payment for %s on %s has no exchangeRate", sec.Identifier(), p.PaymentDate)
		}

		sp := taxstatement.SecurityPayment{
			PaymentDate:         p.PaymentDate,
			ExDate:              p.ExDate,
			Quantity:            quantity,
			AmountCurrency:      kl.Currency,
			Amount:              amount,
			AmountPerUnit:       amountPerUnit,
			ExchangeRate:        exchangeRate,
			Sign:                sign,
			Kursliste:           true,
			PaymentTypeOriginal: string(p.PaymentType),
			Name:                name,
		}

		if p.WithHoldingTax {
			sp.GrossRevenueA = chfAmount
			sp.GrossRevenueB = money.Zero
			sp.WithHoldingTaxClaim = money.WithHoldingTaxClaim(chfAmount)
		} else {
			sp.GrossRevenueA = money.Zero
			sp.GrossRevenueB = chfAmount
			sp.WithHoldingTaxClaim = money.Zero
		}

		k.applyDa1(&sp, kl, sign, p.PaymentDate, chfAmount)

		out = append(out, sp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PaymentDate.Before(out[j].PaymentDate)
	})

	return k.setKurslistePayments(rc, sec, out)
}

// validateSplit checks the stock-split mutation expected by a tax-event
// payment's legend (§4.3 step 6).
func (k *KurslisteTaxValueCalculator) validateSplit(sec *taxstatement.Security, p kursliste.Payment, quantityBefore decimal.Decimal, onDate taxstatement.Date) error {
	legend := p.Legend
	if legend.RatioPresent.IsZero() {
		return newErr(ErrDivisionByZero, "security[].payment[]", "split legend for %s has ratioPresent=0", sec.Identifier())
	}

	if legend.ValorNumberNew == 0 {
		ratio := legend.RatioNew.Div(legend.RatioPresent).Sub(decimal.NewFromInt(1))
		expected := quantityBefore.Mul(ratio)
		if !k.findMutation(sec.Stock, onDate, expected) {
			return newErr(ErrSplitMismatch, "security[].stock[]", "expected same-ISIN split mutation %s on %s for %s not found", expected, onDate, sec.Identifier())
		}
		return nil
	}

	expectedOld := quantityBefore.Neg()
	if !k.findMutation(sec.Stock, onDate, expectedOld) {
		return newErr(ErrSplitMismatch, "security[].stock[]", "expected cross-ISIN split mutation %s on %s for %s not found", expectedOld, onDate, sec.Identifier())
	}

	sibling := k.findSiblingSecurity(legend.ValorNumberNew)
	if sibling == nil {
		return newErr(ErrSplitMismatch, "security[].stock[]", "cross-ISIN split target valor %d for %s not found among securities", legend.ValorNumberNew, sec.Identifier())
	}
	expectedNew := quantityBefore.Mul(legend.RatioNew).Div(legend.RatioPresent)
	if !k.findMutation(sibling.Stock, onDate, expectedNew) {
		return newErr(ErrSplitMismatch, "security[].stock[]", "expected cross-ISIN split mutation %s on %s for sibling valor %d not found", expectedNew, onDate, legend.ValorNumberNew)
	}
	return nil
}

func (k *KurslisteTaxValueCalculator) findMutation(stock []taxstatement.SecurityStock, onDate taxstatement.Date, expected decimal.Decimal) bool {
	for _, s := range stock {
		if s.Mutation && s.ReferenceDate.Equal(onDate) && s.Quantity.Equal(expected) {
			return true
		}
	}
	return false
}

// findSiblingSecurity resolves a cross-ISIN split target by valor number,
// falling back to looking up its ISIN in the Kursliste and matching that
// (§4.3 step 6: "direct match preferred; else resolve via Kursliste ISIN
// of the new valor").
func (k *KurslisteTaxValueCalculator) findSiblingSecurity(valorNew int64) *taxstatement.Security {
	if k.statement == nil {
		return nil
	}
	if sec := k.statement.FindSecurity(valorNew, ""); sec != nil {
		return sec
	}
	if sibling, ok := k.Accessor.GetSecurityByValor(valorNew); ok && sibling.ISIN != "" {
		return k.statement.FindSecurity(0, sibling.ISIN)
	}
	return nil
}

// applyDa1 performs the DA-1 treaty-relief lookup (§4.3 step 15). For
// sign == "(Q)" the group/type are overridden to SHARE/None regardless of
// the Kursliste entry's own classification (§8 property 6). Percentages
// apply to the CHF-converted revenue, not the foreign-currency amount
// (§8 Scenario C: 90.00 CHF x 15% = 13.50, not 100.00 USD x 15%).
func (k *KurslisteTaxValueCalculator) applyDa1(sp *taxstatement.SecurityPayment, kl kursliste.Security, sign *taxstatement.Sign, paymentDate taxstatement.Date, chfAmount decimal.Decimal) {
	group := kl.SecurityGroup
	var secType *string
	if kl.SecurityType != "" {
		t := kl.SecurityType
		secType = &t
	}
	if sign != nil && *sign == taxstatement.SignQ {
		group = taxstatement.SecurityGroupShare
		secType = nil
	}

	rate, ok := k.Accessor.GetDa1Rate(kl.Country, group, secType, &paymentDate)
	if !ok {
		return
	}
	if rate.LumpSumPercent.IsZero() && rate.NonRecoverablePercent.IsZero() {
		return
	}

	lumpSumAmount := chfAmount.Mul(rate.LumpSumPercent).Div(decimal.NewFromInt(100))
	nonRecoverableAmount := chfAmount.Mul(rate.NonRecoverablePercent).Div(decimal.NewFromInt(100))

	sp.LumpSumTaxCreditPercent = decPtr(rate.LumpSumPercent)
	sp.LumpSumTaxCreditAmount = decPtr(lumpSumAmount)
	sp.NonRecoverableTaxPercent = decPtr(rate.NonRecoverablePercent)
	sp.NonRecoverableTaxAmount = decPtr(nonRecoverableAmount)
	sp.LumpSumTaxCredit = true

	if taxstatement.IsUS(kl.Country) {
		sp.AdditionalWithHoldingTaxUSA = decPtr(money.Zero)
	}
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	v := d
	return &v
}

