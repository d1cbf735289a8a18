package calc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vroonhof/opensteuerauszug/internal/kursliste"
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

func decp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

// TestScenarioCUSDividendWithDA1 covers §8 Scenario C.
func TestScenarioCUSDividendWithDA1(t *testing.T) {
	isin := "US0000000001"

	accessor := kursliste.NewInMemory(2023)
	accessor.AddSecurity(kursliste.Security{
		ISIN:          isin,
		SecurityGroup: taxstatement.SecurityGroupShare,
		Country:       "US",
		Currency:      "USD",
		Payments: []kursliste.Payment{
			{
				PaymentDate:     d(2023, time.June, 30),
				PaymentValue:    decp("5.00"),
				PaymentValueCHF: decp("4.50"),
				ExchangeRate:    decp("0.9"),
				WithHoldingTax:  false,
				PaymentType:     taxstatement.PaymentTypeStandard,
			},
		},
	})
	accessor.SetExchangeRate("USD", d(2023, time.January, 1), decimal.RequireFromString("0.9"))
	accessor.SetExchangeRate("USD", d(2024, time.January, 1), decimal.RequireFromString("0.9"))
	accessor.Da1Rates = []kursliste.Da1Rate{
		{Country: "US", SecurityGroup: taxstatement.SecurityGroupShare, LumpSumPercent: decimal.RequireFromString("15"), NonRecoverablePercent: decimal.RequireFromString("15")},
	}

	sec := taxstatement.Security{
		ISIN:     isin,
		Country:  "US",
		Currency: "USD",
		Stock: []taxstatement.SecurityStock{
			{ReferenceDate: d(2023, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(20), BalanceCurrency: "USD"},
			{ReferenceDate: d(2024, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(20), BalanceCurrency: "USD"},
		},
	}
	ts := taxstatement.NewTaxStatement()
	ts.TaxPeriod = 2023
	ts.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{sec}}}

	rc := NewRunContext(ModeOverwrite, 2023)
	k := NewKurslisteTaxValueCalculator(accessor, nil)
	require.NoError(t, Walk(rc, ts, k))

	payments := ts.ListOfSecurities[0].Security[0].Payment
	require.Len(t, payments, 1)
	p := payments[0]

	assert.True(t, p.Amount.Equal(decimal.RequireFromString("100.00")), "amount = %s", p.Amount)
	assert.True(t, p.GrossRevenueB.Equal(decimal.RequireFromString("90.00")), "grossRevenueB = %s", p.GrossRevenueB)
	assert.True(t, p.GrossRevenueA.IsZero())
	assert.True(t, p.WithHoldingTaxClaim.IsZero())
	require.NotNil(t, p.LumpSumTaxCreditPercent)
	assert.True(t, p.LumpSumTaxCreditPercent.Equal(decimal.RequireFromString("15")))
	require.NotNil(t, p.LumpSumTaxCreditAmount)
	assert.True(t, p.LumpSumTaxCreditAmount.Equal(decimal.RequireFromString("13.50")), "lumpSumTaxCreditAmount = %s", p.LumpSumTaxCreditAmount)
	require.NotNil(t, p.NonRecoverableTaxAmount)
	assert.True(t, p.NonRecoverableTaxAmount.Equal(decimal.RequireFromString("13.50")))
	require.NotNil(t, p.AdditionalWithHoldingTaxUSA)
	assert.True(t, p.AdditionalWithHoldingTaxUSA.IsZero())
	assert.True(t, p.LumpSumTaxCredit)
}

// TestScenarioDSameISINSplit covers §8 Scenario D: opening 2, mutation +6
// on 2023-06-18, closing 8; legend ratioPresent=1, ratioNew=4 validates.
func TestScenarioDSameISINSplit(t *testing.T) {
	isin := "CH0000000001"
	taxEvent := true

	accessor := kursliste.NewInMemory(2023)
	accessor.AddSecurity(kursliste.Security{
		ISIN:          isin,
		SecurityGroup: taxstatement.SecurityGroupShare,
		Country:       "CH",
		Currency:      "CHF",
		Payments: []kursliste.Payment{
			{
				PaymentDate: d(2023, time.June, 18),
				TaxEvent:    &taxEvent,
				Legend: &kursliste.Legend{
					RatioPresent: decimal.NewFromInt(1),
					RatioNew:     decimal.NewFromInt(4),
				},
				Undefined: true,
				Deleted:   false,
			},
		},
	})

	sec := taxstatement.Security{
		ISIN:     isin,
		Country:  "CH",
		Currency: "CHF",
		Stock: []taxstatement.SecurityStock{
			{ReferenceDate: d(2023, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(2), BalanceCurrency: "CHF"},
			{ReferenceDate: d(2023, time.June, 18), Mutation: true, Quantity: decimal.NewFromInt(6)},
			{ReferenceDate: d(2024, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(8), BalanceCurrency: "CHF"},
		},
	}
	ts := taxstatement.NewTaxStatement()
	ts.TaxPeriod = 2023
	ts.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{sec}}}

	rc := NewRunContext(ModeOverwrite, 2023)
	k := NewKurslisteTaxValueCalculator(accessor, nil)
	require.NoError(t, Walk(rc, ts, k))

	// The split event itself carries no revenue (Undefined: true); reaching
	// here without error is the pass signal for the split-ratio validation,
	// which runs before the shell payment is emitted.
	payments := ts.ListOfSecurities[0].Security[0].Payment
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Undefined)
	assert.True(t, payments[0].Quantity.Equal(decimal.NewFromInt(2)))
}

// TestScenarioDSameISINSplitMismatchFails covers the negative case: a
// mutation that does not match the expected split ratio is a hard error.
func TestScenarioDSameISINSplitMismatchFails(t *testing.T) {
	isin := "CH0000000002"
	taxEvent := true

	accessor := kursliste.NewInMemory(2023)
	accessor.AddSecurity(kursliste.Security{
		ISIN:    isin,
		Country: "CH",
		Currency: "CHF",
		Payments: []kursliste.Payment{
			{
				PaymentDate: d(2023, time.June, 18),
				TaxEvent:    &taxEvent,
				Legend: &kursliste.Legend{
					RatioPresent: decimal.NewFromInt(1),
					RatioNew:     decimal.NewFromInt(4),
				},
			},
		},
	})

	sec := taxstatement.Security{
		ISIN:     isin,
		Country:  "CH",
		Currency: "CHF",
		Stock: []taxstatement.SecurityStock{
			{ReferenceDate: d(2023, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(2), BalanceCurrency: "CHF"},
			{ReferenceDate: d(2023, time.June, 18), Mutation: true, Quantity: decimal.NewFromInt(99)},
			{ReferenceDate: d(2024, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(101), BalanceCurrency: "CHF"},
		},
	}
	ts := taxstatement.NewTaxStatement()
	ts.TaxPeriod = 2023
	ts.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{sec}}}

	rc := NewRunContext(ModeOverwrite, 2023)
	k := NewKurslisteTaxValueCalculator(accessor, nil)
	err := Walk(rc, ts, k)
	require.Error(t, err)
	var coreErr *CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, ErrSplitMismatch, coreErr.Kind)
}

// TestScenarioECrossISINExchange covers §8 Scenario E: old security has
// mutation -10 on 2023-08-03, new security (by valorNumberNew) has
// mutation +10 on the same date, ratio 1:1.
func TestScenarioECrossISINExchange(t *testing.T) {
	oldISIN := "CH0000000010"
	newISIN := "CH0000000020"
	newValor := int64(555)
	taxEvent := true

	accessor := kursliste.NewInMemory(2023)
	accessor.AddSecurity(kursliste.Security{ISIN: oldISIN, Country: "CH", Currency: "CHF",
		Payments: []kursliste.Payment{
			{
				PaymentDate: d(2023, time.August, 3),
				TaxEvent:    &taxEvent,
				Legend: &kursliste.Legend{
					RatioPresent:   decimal.NewFromInt(1),
					RatioNew:       decimal.NewFromInt(1),
					ValorNumberNew: newValor,
				},
				Undefined: true,
			},
		},
	})
	accessor.AddSecurity(kursliste.Security{ISIN: newISIN, ValorNumber: newValor, Country: "CH", Currency: "CHF"})

	oldSec := taxstatement.Security{
		ISIN: oldISIN, Country: "CH", Currency: "CHF",
		Stock: []taxstatement.SecurityStock{
			{ReferenceDate: d(2023, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(10), BalanceCurrency: "CHF"},
			{ReferenceDate: d(2023, time.August, 3), Mutation: true, Quantity: decimal.NewFromInt(-10)},
			{ReferenceDate: d(2024, time.January, 1), Mutation: false, Quantity: decimal.Zero, BalanceCurrency: "CHF"},
		},
	}
	newSec := taxstatement.Security{
		ISIN: newISIN, ValorNumber: newValor, Country: "CH", Currency: "CHF",
		Stock: []taxstatement.SecurityStock{
			{ReferenceDate: d(2023, time.January, 1), Mutation: false, Quantity: decimal.Zero, BalanceCurrency: "CHF"},
			{ReferenceDate: d(2023, time.August, 3), Mutation: true, Quantity: decimal.NewFromInt(10)},
			{ReferenceDate: d(2024, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(10), BalanceCurrency: "CHF"},
		},
	}

	ts := taxstatement.NewTaxStatement()
	ts.TaxPeriod = 2023
	ts.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{oldSec, newSec}}}

	rc := NewRunContext(ModeOverwrite, 2023)
	k := NewKurslisteTaxValueCalculator(accessor, nil)
	require.NoError(t, Walk(rc, ts, k))
}

func TestMissingKurslisteAddsCriticalWarning(t *testing.T) {
	accessor := kursliste.NewInMemory(2023)

	sec := taxstatement.Security{
		ISIN: "XX0000000000", Country: "CH", Currency: "CHF",
		Stock: []taxstatement.SecurityStock{
			{ReferenceDate: d(2023, time.January, 1), Mutation: false, Quantity: decimal.NewFromInt(1), BalanceCurrency: "CHF"},
		},
	}
	ts := taxstatement.NewTaxStatement()
	ts.TaxPeriod = 2023
	ts.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{sec}}}

	rc := NewRunContext(ModeOverwrite, 2023)
	k := NewKurslisteTaxValueCalculator(accessor, nil)
	require.NoError(t, Walk(rc, ts, k))

	require.Len(t, ts.CriticalWarnings, 1)
	assert.Equal(t, taxstatement.WarningMissingKursliste, ts.CriticalWarnings[0].Kind)
	assert.Equal(t, "XX0000000000", ts.CriticalWarnings[0].Identifier)
}

func TestRightsIssueSuppressesMissingKurslisteWarning(t *testing.T) {
	accessor := kursliste.NewInMemory(2023)

	sec := taxstatement.Security{
		ISIN: "XX0000000001", Country: "CH", Currency: "CHF", IsRightsIssue: true,
		Stock: []taxstatement.SecurityStock{
			{ReferenceDate: d(2023, time.December, 31), Mutation: false, Quantity: decimal.Zero, BalanceCurrency: "CHF"},
		},
	}
	ts := taxstatement.NewTaxStatement()
	ts.TaxPeriod = 2023
	ts.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{sec}}}

	rc := NewRunContext(ModeOverwrite, 2023)
	k := NewKurslisteTaxValueCalculator(accessor, nil)
	require.NoError(t, Walk(rc, ts, k))

	assert.Empty(t, ts.CriticalWarnings)
}
