package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundSum(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12.3456", "12.346"},
		{"99.9999", "100.000"},
		{"100.005", "100.01"},
		{"-100.005", "-100.01"},
		{"0", "0"},
	}
	for _, c := range cases {
		got := RoundSum(decimal.RequireFromString(c.in))
		assert.True(t, got.Equal(decimal.RequireFromString(c.want)), "RoundSum(%s) = %s, want %s", c.in, got, c.want)
	}
}

func TestWithHoldingTaxClaim(t *testing.T) {
	got := WithHoldingTaxClaim(decimal.RequireFromString("100"))
	assert.True(t, got.Equal(decimal.RequireFromString("35.00")))
}

func TestEqualIgnoresScale(t *testing.T) {
	a := decimal.RequireFromString("1")
	b := decimal.RequireFromString("1.00")
	assert.True(t, Equal(a, b))
}
