package taxstatement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStatement() *TaxStatement {
	ts := NewTaxStatement()
	ts.TaxPeriod = 2023
	ts.PeriodFrom = NewDate(2023, time.January, 1)
	ts.PeriodTo = NewDate(2023, time.December, 31)
	ts.ListOfSecurities = []Depot{
		{DepotNumber: "D1", Security: []Security{{ISIN: "US0378331005"}}},
	}
	return ts
}

func TestValidateAcceptsWellFormedStatement(t *testing.T) {
	require.NoError(t, validStatement().Validate())
}

func TestValidateRejectsMalformedISIN(t *testing.T) {
	ts := validStatement()
	ts.ListOfSecurities[0].Security[0].ISIN = "not-an-isin"
	assert.Error(t, ts.Validate())
}

func TestValidateRejectsPeriodFromAfterPeriodTo(t *testing.T) {
	ts := validStatement()
	ts.PeriodFrom, ts.PeriodTo = ts.PeriodTo, ts.PeriodFrom
	assert.Error(t, ts.Validate())
}

func TestValidateRejectsTaxPeriodMismatch(t *testing.T) {
	ts := validStatement()
	ts.TaxPeriod = 2022
	assert.Error(t, ts.Validate())
}

func TestValidateRejectsSecurityWithNoIdentifier(t *testing.T) {
	ts := validStatement()
	ts.ListOfSecurities[0].Security[0].ISIN = ""
	ts.ListOfSecurities[0].Security[0].ValorNumber = 0
	assert.Error(t, ts.Validate())
}

func TestValidateAcceptsValorOnlySecurity(t *testing.T) {
	ts := validStatement()
	ts.ListOfSecurities[0].Security[0].ISIN = ""
	ts.ListOfSecurities[0].Security[0].ValorNumber = 123456
	require.NoError(t, ts.Validate())
}
