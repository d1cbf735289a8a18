package taxstatement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidISIN(t *testing.T) {
	assert.True(t, ValidISIN("US0378331005"))
	assert.False(t, ValidISIN("US037833100"))
	assert.False(t, ValidISIN("us0378331005"))
}

func TestValidValorNumber(t *testing.T) {
	assert.True(t, ValidValorNumber(1))
	assert.True(t, ValidValorNumber(MaxValorNumber))
	assert.False(t, ValidValorNumber(0))
	assert.False(t, ValidValorNumber(MaxValorNumber+1))
	assert.False(t, ValidValorNumber(-5))
}

func TestWithParentheses(t *testing.T) {
	assert.Equal(t, SignQ, WithParentheses("Q"))
	assert.Equal(t, SignQ, WithParentheses("(Q)"))
}

func TestPaymentName(t *testing.T) {
	assert.Equal(t, "Dividend", PaymentTypeStandard.PaymentName(SecurityGroupShare))
	assert.Equal(t, "Distribution", PaymentTypeStandard.PaymentName(SecurityGroupFund))
	assert.Equal(t, "Stock Dividend", PaymentTypeGratis.PaymentName(SecurityGroupShare))
	assert.Equal(t, "Taxable Income from Accumulating Fund", PaymentTypeFundAccumulation.PaymentName(SecurityGroupFund))
}

func TestKnownSignsClosedSet(t *testing.T) {
	assert.True(t, KnownSigns[SignKEP])
	assert.True(t, KnownSigns[SignV])
	assert.False(t, KnownSigns[Sign("(ZZ)")])
}

func TestNonTaxableSigns(t *testing.T) {
	assert.True(t, NonTaxableSigns[SignKEP])
	assert.True(t, NonTaxableSigns[SignKG])
	assert.False(t, NonTaxableSigns[SignQ])
}
