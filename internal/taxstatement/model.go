// Package taxstatement holds the strongly-typed tax-statement tree the
// calculation engine operates on: the eCH-0196 data model described in
// spec §3. The tree is produced by an external importer (out of scope) and
// owned exclusively by one pipeline run; calculators in package calc mutate
// it in place.
package taxstatement

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownElement preserves one element this engine does not model, so it
// round-trips through serialization unchanged (§3).
type UnknownElement struct {
	Name    string `json:"name" xml:",any"`
	Content string `json:"content,omitempty"`
}

// Unknowns is embedded in every tree node that needs to preserve fields the
// engine does not understand.
type Unknowns struct {
	UnknownAttrs    map[string]string `json:"unknownAttrs,omitempty"`
	UnknownElements []UnknownElement  `json:"unknownElements,omitempty"`
}

// Client identifies one taxpayer named on the statement.
type Client struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	TIN       string `json:"tin,omitempty"`
	Unknowns
}

// Totals holds the statement-level aggregates TotalCalculator fills in
// (§4.5). Per-section totals (Depot, BankAccount, LiabilityAccount) reuse
// the same shape at narrower scope.
type Totals struct {
	TotalTaxValue                    decimal.Decimal `json:"totalTaxValue"`
	TotalGrossRevenueA                decimal.Decimal `json:"totalGrossRevenueA"`
	TotalGrossRevenueB                decimal.Decimal `json:"totalGrossRevenueB"`
	TotalWithHoldingTaxClaim          decimal.Decimal `json:"totalWithHoldingTaxClaim"`
	DaGrossRevenue                    decimal.Decimal `json:"daGrossRevenue"`
	Da1TaxValue                       decimal.Decimal `json:"da1TaxValue"`
	TotalLumpSumTaxCredit             decimal.Decimal `json:"totalLumpSumTaxCredit"`
	TotalNonRecoverableTax            decimal.Decimal `json:"totalNonRecoverableTax"`
	TotalAdditionalWithHoldingTaxUSA  decimal.Decimal `json:"totalAdditionalWithHoldingTaxUsa"`
	TotalGrossRevenueBUSA             decimal.Decimal `json:"totalGrossRevenueBUsa"`
	TotalTaxValueUSA                  decimal.Decimal `json:"totalTaxValueUsa"`
}

// CriticalWarningKind enumerates the two warning shapes §6.2 defines.
type CriticalWarningKind string

const (
	WarningMissingKursliste    CriticalWarningKind = "MISSING_KURSLISTE"
	WarningPreviousYearExdate  CriticalWarningKind = "PREVIOUS_YEAR_EXDATE"
)

// CriticalWarning is attached to the output statement, never to an error
// return — it does not abort the run (§6.2, §7).
type CriticalWarning struct {
	ID         string               `json:"id"`
	Kind       CriticalWarningKind  `json:"kind"`
	Identifier string               `json:"identifier"`
	Message    string               `json:"message,omitempty"`
}

// SecurityStock is one entry in a security's stock history (§3): either a
// balance (Mutation=false, the position at the *start* of ReferenceDate) or
// a signed mutation applied during ReferenceDate. The year-end/openingsub
// balance entries also double as the "SecurityTaxValue" node the minimal
// calculator hooks describe — UnitPrice/Value/ExchangeRate are only
// meaningful on balance entries.
type SecurityStock struct {
	ReferenceDate    Date             `json:"referenceDate" validate:"required"`
	Mutation         bool             `json:"mutation"`
	Quantity         decimal.Decimal  `json:"quantity"`
	BalanceCurrency  string           `json:"balanceCurrency,omitempty"`
	QuotationType    QuotationType    `json:"quotationType,omitempty"`
	UnitPrice        *decimal.Decimal `json:"unitPrice,omitempty"`
	Value            *decimal.Decimal `json:"value,omitempty"`
	ExchangeRate     *decimal.Decimal `json:"exchangeRate,omitempty"`
	Name             string           `json:"name,omitempty"`
	Kursliste        bool             `json:"kursliste,omitempty"`
	Unknowns
}

// lessThan orders stock entries by (referenceDate, mutation): same-day
// balances precede same-day mutations (§3).
func (s SecurityStock) lessThan(o SecurityStock) bool {
	if !s.ReferenceDate.Equal(o.ReferenceDate) {
		return s.ReferenceDate.Before(o.ReferenceDate)
	}
	// balance (false) sorts before mutation (true)
	return !s.Mutation && o.Mutation
}

// SecurityPayment is one cash-flow event on a security (§3).
type SecurityPayment struct {
	PaymentDate      Date             `json:"paymentDate"`
	ExDate           *Date            `json:"exDate,omitempty"`
	Quantity         decimal.Decimal  `json:"quantity"`
	AmountCurrency   string           `json:"amountCurrency,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	AmountPerUnit    decimal.Decimal  `json:"amountPerUnit"`
	ExchangeRate     decimal.Decimal  `json:"exchangeRate"`
	Sign             *Sign            `json:"sign,omitempty"`
	GrossRevenueA    decimal.Decimal  `json:"grossRevenueA"`
	GrossRevenueB    decimal.Decimal  `json:"grossRevenueB"`
	WithHoldingTaxClaim decimal.Decimal `json:"withHoldingTaxClaim"`

	LumpSumTaxCreditPercent      *decimal.Decimal `json:"lumpSumTaxCreditPercent,omitempty"`
	LumpSumTaxCreditAmount       *decimal.Decimal `json:"lumpSumTaxCreditAmount,omitempty"`
	NonRecoverableTaxPercent     *decimal.Decimal `json:"nonRecoverableTaxPercent,omitempty"`
	NonRecoverableTaxAmount      *decimal.Decimal `json:"nonRecoverableTaxAmount,omitempty"`
	AdditionalWithHoldingTaxUSA  *decimal.Decimal `json:"additionalWithHoldingTaxUsa,omitempty"`
	LumpSumTaxCredit             bool              `json:"lumpSumTaxCredit,omitempty"`

	Kursliste          bool   `json:"kursliste,omitempty"`
	Undefined          bool   `json:"undefined,omitempty"`
	PaymentTypeOriginal string `json:"paymentTypeOriginal,omitempty"`
	Name               string `json:"name,omitempty"`
	Unknowns
}

// Security is one holding, identified by (ISIN, ValorNumber, DepotNumber)
// with ISIN preferred over the valor fallback (§3).
type Security struct {
	ISIN             string          `json:"isin,omitempty" validate:"omitempty,isin"`
	ValorNumber      int64           `json:"valorNumber,omitempty" validate:"omitempty,valor"`
	DepotNumber      string          `json:"depotNumber"`
	Country          string          `json:"country"`
	Currency         string          `json:"currency"`
	QuotationType    QuotationType   `json:"quotationType"`
	SecurityCategory string          `json:"securityCategory,omitempty"`
	SecurityName     string          `json:"securityName,omitempty"`
	IsRightsIssue    bool            `json:"isRightsIssue,omitempty"`

	Stock   []SecurityStock   `json:"stock"`
	Payment []SecurityPayment `json:"payment"`
	Unknowns
}

// Identifier returns the preferred identity string for error messages and
// warnings: ISIN when present, otherwise the valor number.
func (s *Security) Identifier() string {
	if s.ISIN != "" {
		return s.ISIN
	}
	if s.ValorNumber != 0 {
		return formatValor(s.ValorNumber)
	}
	return "<unidentified security>"
}

// DisplayName truncates SecurityName to 60 characters with a middle
// ellipsis when longer, per §3.
func (s *Security) DisplayName() string {
	return TruncateMiddle(s.SecurityName, 60)
}

// TruncateMiddle truncates s to at most max characters, replacing the
// middle with an ellipsis when s is longer.
func TruncateMiddle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 5 {
		return s
	}
	const ellipsis = "..."
	keep := max - len(ellipsis)
	head := keep/2 + keep%2
	tail := keep / 2
	return string(r[:head]) + ellipsis + string(r[len(r)-tail:])
}

func formatValor(v int64) string {
	return "valor:" + strconv.FormatInt(v, 10)
}

// ClosingBalance returns the last balance entry in chronological order, or
// false if the security has no balance entries at all — used by the
// rights-issue heuristic (§9).
func (s *Security) ClosingBalance() (SecurityStock, bool) {
	var best SecurityStock
	found := false
	for _, st := range s.Stock {
		if st.Mutation {
			continue
		}
		if !found || st.ReferenceDate.After(best.ReferenceDate) {
			best = st
			found = true
		}
	}
	return best, found
}

// SortedStock returns a copy of s.Stock ordered by (referenceDate,
// mutation), the canonical order the PositionReconciler and payment
// synthesis require (§3).
func (s *Security) SortedStock() []SecurityStock {
	out := make([]SecurityStock, len(s.Stock))
	copy(out, s.Stock)
	sortStock(out)
	return out
}

// SortStock sorts stock in place by (referenceDate, mutation), the
// canonical ordering key from §3.
func SortStock(stock []SecurityStock) {
	sortStock(stock)
}

func sortStock(stock []SecurityStock) {
	// insertion sort: the lists involved are short (a handful of
	// mutations per tax year) and this keeps relative order of entries
	// that compare equal, matching the spec's "ordering key" framing.
	for i := 1; i < len(stock); i++ {
		j := i
		for j > 0 && stock[j].lessThan(stock[j-1]) {
			stock[j], stock[j-1] = stock[j-1], stock[j]
			j--
		}
	}
}

// Depot is a container of securities identified by DepotNumber (§3).
type Depot struct {
	DepotNumber string     `json:"depotNumber"`
	Security    []Security `json:"security"`
	Totals
	Unknowns
}

// BankAccountTaxValue is a balance entry for a bank account at a reference
// date (§3).
type BankAccountTaxValue struct {
	ReferenceDate   Date             `json:"referenceDate" validate:"required"`
	BalanceCurrency string           `json:"balanceCurrency,omitempty"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	Value           *decimal.Decimal `json:"value,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	Unknowns
}

// BankAccountPayment is one cash-flow event on a bank account (§3).
type BankAccountPayment struct {
	PaymentDate         Date             `json:"paymentDate"`
	AmountCurrency       string           `json:"amountCurrency,omitempty"`
	Amount               decimal.Decimal  `json:"amount"`
	ExchangeRate         *decimal.Decimal `json:"exchangeRate,omitempty"`
	GrossRevenueA        *decimal.Decimal `json:"grossRevenueA,omitempty"`
	GrossRevenueB        *decimal.Decimal `json:"grossRevenueB,omitempty"`
	WithHoldingTaxClaim  *decimal.Decimal `json:"withHoldingTaxClaim,omitempty"`
	Unknowns
}

// BankAccount is one account, with an opening/closing date scoped to the
// statement period (§3).
type BankAccount struct {
	BankAccountNumber string `json:"bankAccountNumber"`
	Country           string `json:"country"`
	OpeningDate       *Date  `json:"openingDate,omitempty"`
	ClosingDate       *Date  `json:"closingDate,omitempty"`

	TaxValue []BankAccountTaxValue `json:"taxValue"`
	Payment  []BankAccountPayment  `json:"payment"`
	Totals
	Unknowns
}

// LiabilityAccountTaxValue mirrors BankAccountTaxValue for liabilities.
type LiabilityAccountTaxValue struct {
	ReferenceDate   Date             `json:"referenceDate" validate:"required"`
	BalanceCurrency string           `json:"balanceCurrency,omitempty"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`
	Value           *decimal.Decimal `json:"value,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchangeRate,omitempty"`
	Unknowns
}

// LiabilityAccountPayment is always type-B interest paid (§4.2).
type LiabilityAccountPayment struct {
	PaymentDate    Date             `json:"paymentDate"`
	AmountCurrency string           `json:"amountCurrency,omitempty"`
	Amount         decimal.Decimal  `json:"amount"`
	ExchangeRate   *decimal.Decimal `json:"exchangeRate,omitempty"`
	GrossRevenueB  *decimal.Decimal `json:"grossRevenueB,omitempty"`
	Unknowns
}

// LiabilityAccount is a debt position; its tax value subtracts at the
// statement level but appears positive within its own list (§4.5).
type LiabilityAccount struct {
	LiabilityAccountNumber string `json:"liabilityAccountNumber"`
	Country                string `json:"country"`

	TaxValue []LiabilityAccountTaxValue `json:"taxValue"`
	Payment  []LiabilityAccountPayment  `json:"payment"`
	Totals
	Unknowns
}

// Expense is a deductible expense line item. The spec names the
// listOfExpenses collection without detailing its fields; this is the
// minimal shape round-trip serialization needs. TotalCalculator does not
// read expenses.
type Expense struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
	Unknowns
}

// TaxStatement is the root of the tree (§3).
type TaxStatement struct {
	PeriodFrom   Date   `json:"periodFrom" validate:"required"`
	PeriodTo     Date   `json:"periodTo" validate:"required"`
	TaxPeriod    int    `json:"taxPeriod" validate:"required"`
	Canton       string `json:"canton,omitempty"`
	Country      string `json:"country"`
	MinorVersion int    `json:"minorVersion,omitempty"`
	Institution  string `json:"institution,omitempty"`

	Clients []Client `json:"clients"`

	ListOfSecurities  []Depot             `json:"listOfSecurities"`
	ListOfBankAccounts []BankAccount       `json:"listOfBankAccounts"`
	ListOfLiabilities []LiabilityAccount  `json:"listOfLiabilities"`
	ListOfExpenses    []Expense           `json:"listOfExpenses"`

	Totals
	CriticalWarnings []CriticalWarning `json:"criticalWarnings,omitempty"`
	Unknowns
}

// NewTaxStatement returns a statement with Country defaulted to "CH", per
// §3.
func NewTaxStatement() *TaxStatement {
	return &TaxStatement{Country: "CH"}
}

// AllSecurities iterates every security across every depot, in depot order
// then security order, the traversal order §5 prescribes for the visitor.
func (ts *TaxStatement) AllSecurities(fn func(depot *Depot, sec *Security)) {
	for i := range ts.ListOfSecurities {
		depot := &ts.ListOfSecurities[i]
		for j := range depot.Security {
			fn(depot, &depot.Security[j])
		}
	}
}

// FindSecurity locates a security by valor number (preferred) or ISIN
// across the whole statement, used by cross-ISIN split resolution (§4.3
// step 6) to find a sibling security by its new valor number.
func (ts *TaxStatement) FindSecurity(valorNumber int64, isin string) *Security {
	var byISIN *Security
	for i := range ts.ListOfSecurities {
		depot := &ts.ListOfSecurities[i]
		for j := range depot.Security {
			sec := &depot.Security[j]
			if valorNumber != 0 && sec.ValorNumber == valorNumber {
				return sec
			}
			if isin != "" && sec.ISIN == isin {
				byISIN = sec
			}
		}
	}
	return byISIN
}

// AddCriticalWarning appends a structured warning to the statement (§6.2).
func (ts *TaxStatement) AddCriticalWarning(w CriticalWarning) {
	ts.CriticalWarnings = append(ts.CriticalWarnings, w)
}

// trimmedUpper is a small shared helper for normalizing country/currency
// codes read off the tree before comparison.
func trimmedUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsSwiss reports whether a country code denotes Switzerland.
func IsSwiss(country string) bool {
	return trimmedUpper(country) == "CH"
}

// IsUS reports whether a country code denotes the United States.
func IsUS(country string) bool {
	return trimmedUpper(country) == "US"
}
