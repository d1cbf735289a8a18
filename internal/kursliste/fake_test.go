package kursliste

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

func d(year int, month time.Month, day int) taxstatement.Date {
	return taxstatement.NewDate(year, month, day)
}

func TestInMemoryGetExchangeRateCHFShortCircuit(t *testing.T) {
	a := NewInMemory(2023)
	rate, ok := a.GetExchangeRate("CHF", d(2023, time.December, 31))
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestInMemoryGetExchangeRateLookup(t *testing.T) {
	a := NewInMemory(2023)
	a.SetExchangeRate("USD", d(2023, time.December, 31), decimal.RequireFromString("0.91"))

	rate, ok := a.GetExchangeRate("USD", d(2023, time.December, 31))
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.91")))

	_, ok = a.GetExchangeRate("EUR", d(2023, time.December, 31))
	assert.False(t, ok)
}

func TestInMemorySecurityLookup(t *testing.T) {
	a := NewInMemory(2023)
	a.AddSecurity(Security{ValorNumber: 123, ISIN: "US0378331005"})

	byValor, ok := a.GetSecurityByValor(123)
	require.True(t, ok)
	assert.Equal(t, "US0378331005", byValor.ISIN)

	byISIN, ok := a.GetSecurityByIsin("US0378331005")
	require.True(t, ok)
	assert.Equal(t, int64(123), byISIN.ValorNumber)
}

func TestInMemoryGetSecurityPriceDailyThenYearEnd(t *testing.T) {
	yearEnd := decimal.RequireFromString("100")
	daily := decimal.RequireFromString("105")
	sec := Security{
		ISIN:         "US0378331005",
		YearEndPrice: &yearEnd,
		DailyPrices:  map[string]decimal.Decimal{"2023-06-30": daily},
	}
	a := NewInMemory(2023)
	a.AddSecurity(sec)

	p, ok := a.GetSecurityPrice("US0378331005", d(2023, time.June, 30))
	require.True(t, ok)
	assert.True(t, p.Equal(daily))

	p2, ok := a.GetSecurityPrice("US0378331005", d(2023, time.December, 31))
	require.True(t, ok)
	assert.True(t, p2.Equal(yearEnd))
}

func TestInMemoryGetDa1RateMatchesCountryAndGroup(t *testing.T) {
	a := NewInMemory(2023)
	a.Da1Rates = []Da1Rate{
		{Country: "US", SecurityGroup: taxstatement.SecurityGroupShare, LumpSumPercent: decimal.RequireFromString("15"), NonRecoverablePercent: decimal.RequireFromString("15")},
	}
	rate, ok := a.GetDa1Rate("US", taxstatement.SecurityGroupShare, nil, nil)
	require.True(t, ok)
	assert.True(t, rate.LumpSumPercent.Equal(decimal.RequireFromString("15")))
}

func TestInMemoryGetDa1RateValidityWindow(t *testing.T) {
	from := d(2023, time.January, 1)
	to := d(2023, time.June, 30)
	a := NewInMemory(2023)
	a.Da1Rates = []Da1Rate{
		{Country: "US", SecurityGroup: taxstatement.SecurityGroupShare, ValidFrom: &from, ValidTo: &to, LumpSumPercent: decimal.RequireFromString("15")},
	}
	ref := d(2023, time.December, 31)
	_, ok := a.GetDa1Rate("US", taxstatement.SecurityGroupShare, nil, &ref)
	assert.False(t, ok)

	refIn := d(2023, time.March, 1)
	_, ok = a.GetDa1Rate("US", taxstatement.SecurityGroupShare, nil, &refIn)
	assert.True(t, ok)
}
