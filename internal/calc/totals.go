package calc

import (
	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/money"
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// TotalCalculator aggregates per-section (depot, bank account, liability
// account) and statement-level totals (§4.5); no per-security totals are
// written. Unlike Minimal/Kursliste/FillIn it is not part of that
// embedding chain — it implements Calculator directly by embedding
// BaseCalculator, since it needs no inherited per-node behavior. Walk
// visits parents before children, so a section's running sums (see
// runningTotals below) are written out when the next section of the same
// kind begins or when Finish is called.
type TotalCalculator struct {
	BaseCalculator

	// RoundSubTotal controls whether intermediate (per-depot,
	// per-bank-account) subtotals are rounded like the statement-level
	// sum, or left unrounded until the final aggregation (§4.5).
	RoundSubTotal bool

	stmt      *taxstatement.TaxStatement
	depot     *runningTotals
	bank      *runningTotals
	liability *runningTotals
	stmtTotal *runningTotals

	bankTaxValueDate      taxstatement.Date
	liabilityTaxValueDate taxstatement.Date
}

// runningTotals accumulates the same fields Totals exposes, unrounded,
// across a section's children.
type runningTotals struct {
	taxValue                   decimal.Decimal
	grossRevenueA              decimal.Decimal
	grossRevenueB              decimal.Decimal
	withHoldingTaxClaim        decimal.Decimal
	daGrossRevenue             decimal.Decimal
	da1TaxValue                decimal.Decimal
	lumpSumTaxCredit           decimal.Decimal
	nonRecoverableTax          decimal.Decimal
	additionalWithHoldingUSA   decimal.Decimal
	grossRevenueBUSA           decimal.Decimal
	taxValueUSA                decimal.Decimal
}

func NewTotalCalculator(roundSubTotal bool) *TotalCalculator {
	return &TotalCalculator{RoundSubTotal: roundSubTotal}
}

func (t *TotalCalculator) HandleTaxStatement(rc *RunContext, ts *taxstatement.TaxStatement) error {
	t.stmt = ts
	t.stmtTotal = &runningTotals{}
	return nil
}

func (t *TotalCalculator) HandleDepot(rc *RunContext, depot *taxstatement.Depot) error {
	t.flushDepot(rc)
	t.depot = &runningTotals{}
	return nil
}

func (t *TotalCalculator) HandleBankAccount(rc *RunContext, acct *taxstatement.BankAccount) error {
	t.flushBank(rc)
	t.bank = &runningTotals{}
	t.bankTaxValueDate = taxstatement.Date{}
	return nil
}

func (t *TotalCalculator) HandleLiabilityAccount(rc *RunContext, liab *taxstatement.LiabilityAccount) error {
	t.flushLiability(rc)
	t.liability = &runningTotals{}
	t.liabilityTaxValueDate = taxstatement.Date{}
	return nil
}

func (t *TotalCalculator) HandleSecurityStock(rc *RunContext, sec *taxstatement.Security, stock *taxstatement.SecurityStock) error {
	if stock.Mutation || stock.Value == nil {
		return nil
	}
	// Only the closing balance (the latest non-mutation entry) represents
	// the security's year-end tax value; interim balances do not add to
	// the depot's taxValue (§4.5 sums "security taxValue.value").
	closing, ok := sec.ClosingBalance()
	if !ok || !closing.ReferenceDate.Equal(stock.ReferenceDate) {
		return nil
	}
	t.depot.taxValue = t.depot.taxValue.Add(*stock.Value)
	if taxstatement.IsUS(sec.Country) {
		t.depot.taxValueUSA = t.depot.taxValueUSA.Add(*stock.Value)
	}
	if hasForeignWithholding(sec) {
		t.depot.da1TaxValue = t.depot.da1TaxValue.Add(*stock.Value)
	}
	return nil
}

func (t *TotalCalculator) HandleSecurityPayment(rc *RunContext, sec *taxstatement.Security, p *taxstatement.SecurityPayment) error {
	t.depot.grossRevenueA = t.depot.grossRevenueA.Add(p.GrossRevenueA)
	t.depot.grossRevenueB = t.depot.grossRevenueB.Add(p.GrossRevenueB)
	t.depot.withHoldingTaxClaim = t.depot.withHoldingTaxClaim.Add(p.WithHoldingTaxClaim)

	if p.LumpSumTaxCredit {
		t.depot.daGrossRevenue = t.depot.daGrossRevenue.Add(p.Amount)
		if p.LumpSumTaxCreditAmount != nil {
			t.depot.lumpSumTaxCredit = t.depot.lumpSumTaxCredit.Add(*p.LumpSumTaxCreditAmount)
		}
		if p.NonRecoverableTaxAmount != nil {
			t.depot.nonRecoverableTax = t.depot.nonRecoverableTax.Add(*p.NonRecoverableTaxAmount)
		}
	}
	if p.AdditionalWithHoldingTaxUSA != nil {
		t.depot.additionalWithHoldingUSA = t.depot.additionalWithHoldingUSA.Add(*p.AdditionalWithHoldingTaxUSA)
	}
	if taxstatement.IsUS(sec.Country) {
		t.depot.grossRevenueBUSA = t.depot.grossRevenueBUSA.Add(p.GrossRevenueB)
	}
	return nil
}

// HandleBankAccountTaxValue keeps the latest-dated tax value, since a
// statement may carry more than one balance entry per account but
// contributes only the closing one to the section total (§4.5).
func (t *TotalCalculator) HandleBankAccountTaxValue(rc *RunContext, acct *taxstatement.BankAccount, tv *taxstatement.BankAccountTaxValue) error {
	if tv.Value == nil {
		return nil
	}
	if t.bankTaxValueDate.IsZero() || tv.ReferenceDate.After(t.bankTaxValueDate) {
		t.bank.taxValue = *tv.Value
		t.bankTaxValueDate = tv.ReferenceDate
	}
	return nil
}

func (t *TotalCalculator) HandleBankAccountPayment(rc *RunContext, acct *taxstatement.BankAccount, p *taxstatement.BankAccountPayment) error {
	if p.GrossRevenueA != nil {
		t.bank.grossRevenueA = t.bank.grossRevenueA.Add(*p.GrossRevenueA)
	}
	if p.GrossRevenueB != nil {
		t.bank.grossRevenueB = t.bank.grossRevenueB.Add(*p.GrossRevenueB)
	}
	if p.WithHoldingTaxClaim != nil {
		t.bank.withHoldingTaxClaim = t.bank.withHoldingTaxClaim.Add(*p.WithHoldingTaxClaim)
	}
	return nil
}

func (t *TotalCalculator) HandleLiabilityAccountTaxValue(rc *RunContext, liab *taxstatement.LiabilityAccount, tv *taxstatement.LiabilityAccountTaxValue) error {
	if tv.Value == nil {
		return nil
	}
	if t.liabilityTaxValueDate.IsZero() || tv.ReferenceDate.After(t.liabilityTaxValueDate) {
		t.liability.taxValue = *tv.Value
		t.liabilityTaxValueDate = tv.ReferenceDate
	}
	return nil
}

func (t *TotalCalculator) HandleLiabilityAccountPayment(rc *RunContext, liab *taxstatement.LiabilityAccount, p *taxstatement.LiabilityAccountPayment) error {
	if p.GrossRevenueB != nil {
		t.liability.grossRevenueB = t.liability.grossRevenueB.Add(*p.GrossRevenueB)
	}
	return nil
}

// hasForeignWithholding reports whether a security has any DA-1-flagged
// payment, the classification §4.5 uses for da1TaxValue bucketing.
func hasForeignWithholding(sec *taxstatement.Security) bool {
	for _, p := range sec.Payment {
		if p.LumpSumTaxCredit {
			return true
		}
	}
	return false
}

func (t *TotalCalculator) round(x decimal.Decimal, isSubTotal bool) decimal.Decimal {
	if isSubTotal && !t.RoundSubTotal {
		return x
	}
	return money.RoundSum(x)
}

func (t *TotalCalculator) flushDepot(rc *RunContext) {
	if t.depot == nil {
		return
	}
	if len(t.stmt.ListOfSecurities) > 0 {
		d := &t.stmt.ListOfSecurities[len(t.stmt.ListOfSecurities)-1]
		t.writeSection(rc, "listOfSecurities[].", &d.Totals, t.depot)
	}
	t.stmtTotal.add(t.depot)
	t.depot = nil
}

func (t *TotalCalculator) flushBank(rc *RunContext) {
	if t.bank == nil {
		return
	}
	if len(t.stmt.ListOfBankAccounts) > 0 {
		a := &t.stmt.ListOfBankAccounts[len(t.stmt.ListOfBankAccounts)-1]
		t.writeSection(rc, "listOfBankAccounts[].", &a.Totals, t.bank)
	}
	t.stmtTotal.add(t.bank)
	t.bank = nil
}

func (t *TotalCalculator) flushLiability(rc *RunContext) {
	if t.liability == nil {
		return
	}
	if len(t.stmt.ListOfLiabilities) > 0 {
		l := &t.stmt.ListOfLiabilities[len(t.stmt.ListOfLiabilities)-1]
		t.writeSection(rc, "listOfLiabilities[].", &l.Totals, t.liability)
	}
	// Liabilities subtract at the statement level but appear positive in
	// their own list (§4.5).
	t.stmtTotal.subtractTaxValue(t.liability)
	t.stmtTotal.addRevenueOnly(t.liability)
	t.liability = nil
}

// Finish must be called after Walk completes to flush the last open
// section and write the statement-level totals. The generic Walk function
// has no "end of tree" hook, so the pipeline driver calls this explicitly.
func (t *TotalCalculator) Finish(rc *RunContext) {
	t.flushDepot(rc)
	t.flushBank(rc)
	t.flushLiability(rc)
	t.writeSection(rc, "", &t.stmt.Totals, t.stmtTotal)
}

func (t *TotalCalculator) writeSection(rc *RunContext, prefix string, dst *taxstatement.Totals, src *runningTotals, ) {
	isSubTotal := prefix != ""
	rc.SetDecimal(prefix+"totalTaxValue", &dst.TotalTaxValue, t.round(src.taxValue, isSubTotal))
	rc.SetDecimal(prefix+"totalGrossRevenueA", &dst.TotalGrossRevenueA, t.round(src.grossRevenueA, isSubTotal))
	rc.SetDecimal(prefix+"totalGrossRevenueB", &dst.TotalGrossRevenueB, t.round(src.grossRevenueB, isSubTotal))
	rc.SetDecimal(prefix+"totalWithHoldingTaxClaim", &dst.TotalWithHoldingTaxClaim, t.round(src.withHoldingTaxClaim, isSubTotal))
	rc.SetDecimal(prefix+"daGrossRevenue", &dst.DaGrossRevenue, t.round(src.daGrossRevenue, isSubTotal))
	rc.SetDecimal(prefix+"da1TaxValue", &dst.Da1TaxValue, t.round(src.da1TaxValue, isSubTotal))
	rc.SetDecimal(prefix+"totalLumpSumTaxCredit", &dst.TotalLumpSumTaxCredit, t.round(src.lumpSumTaxCredit, isSubTotal))
	rc.SetDecimal(prefix+"totalNonRecoverableTax", &dst.TotalNonRecoverableTax, t.round(src.nonRecoverableTax, isSubTotal))
	rc.SetDecimal(prefix+"totalAdditionalWithHoldingTaxUSA", &dst.TotalAdditionalWithHoldingTaxUSA, t.round(src.additionalWithHoldingUSA, isSubTotal))
	rc.SetDecimal(prefix+"totalGrossRevenueBUSA", &dst.TotalGrossRevenueBUSA, t.round(src.grossRevenueBUSA, isSubTotal))
	rc.SetDecimal(prefix+"totalTaxValueUSA", &dst.TotalTaxValueUSA, t.round(src.taxValueUSA, isSubTotal))
}

func (r *runningTotals) add(o *runningTotals) {
	r.taxValue = r.taxValue.Add(o.taxValue)
	r.grossRevenueA = r.grossRevenueA.Add(o.grossRevenueA)
	r.grossRevenueB = r.grossRevenueB.Add(o.grossRevenueB)
	r.withHoldingTaxClaim = r.withHoldingTaxClaim.Add(o.withHoldingTaxClaim)
	r.daGrossRevenue = r.daGrossRevenue.Add(o.daGrossRevenue)
	r.da1TaxValue = r.da1TaxValue.Add(o.da1TaxValue)
	r.lumpSumTaxCredit = r.lumpSumTaxCredit.Add(o.lumpSumTaxCredit)
	r.nonRecoverableTax = r.nonRecoverableTax.Add(o.nonRecoverableTax)
	r.additionalWithHoldingUSA = r.additionalWithHoldingUSA.Add(o.additionalWithHoldingUSA)
	r.grossRevenueBUSA = r.grossRevenueBUSA.Add(o.grossRevenueBUSA)
	r.taxValueUSA = r.taxValueUSA.Add(o.taxValueUSA)
}

func (r *runningTotals) subtractTaxValue(o *runningTotals) {
	r.taxValue = r.taxValue.Sub(o.taxValue)
}

func (r *runningTotals) addRevenueOnly(o *runningTotals) {
	r.grossRevenueB = r.grossRevenueB.Add(o.grossRevenueB)
}
