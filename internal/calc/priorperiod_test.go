package calc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

func secWithClosing(isin string, qty decimal.Decimal, on taxstatement.Date) taxstatement.Security {
	return taxstatement.Security{
		ISIN: isin,
		Stock: []taxstatement.SecurityStock{
			{ReferenceDate: on, Mutation: false, Quantity: qty, BalanceCurrency: "CHF"},
		},
	}
}

func secWithOpening(isin string, qty decimal.Decimal, on taxstatement.Date) taxstatement.Security {
	return secWithClosing(isin, qty, on)
}

// TestPriorPeriodVerifierMatch covers §4.6: matching prior-closing and
// current-opening quantities count as a match.
func TestPriorPeriodVerifierMatch(t *testing.T) {
	prior := taxstatement.NewTaxStatement()
	prior.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{
		secWithClosing("CH0000000001", decimal.NewFromInt(10), d(2023, time.January, 1)),
	}}}
	current := taxstatement.NewTaxStatement()
	current.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{
		secWithOpening("CH0000000001", decimal.NewFromInt(10), d(2024, time.January, 1)),
	}}}

	v := NewPriorPeriodVerifier()
	result := v.Verify(prior, current)
	assert.Equal(t, 1, result.MatchedCount)
	assert.Empty(t, result.Mismatches)
}

// TestPriorPeriodVerifierMismatch covers a genuine quantity disagreement.
func TestPriorPeriodVerifierMismatch(t *testing.T) {
	prior := taxstatement.NewTaxStatement()
	prior.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{
		secWithClosing("CH0000000001", decimal.NewFromInt(10), d(2023, time.January, 1)),
	}}}
	current := taxstatement.NewTaxStatement()
	current.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{
		secWithOpening("CH0000000001", decimal.NewFromInt(7), d(2024, time.January, 1)),
	}}}

	v := NewPriorPeriodVerifier()
	result := v.Verify(prior, current)
	assert.Equal(t, 0, result.MatchedCount)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, MismatchQuantity, result.Mismatches[0].Kind)
}

// TestPriorPeriodVerifierMissingInCurrent covers a non-zero prior closing
// with no counterpart in the current statement at all.
func TestPriorPeriodVerifierMissingInCurrent(t *testing.T) {
	prior := taxstatement.NewTaxStatement()
	prior.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{
		secWithClosing("CH0000000001", decimal.NewFromInt(10), d(2023, time.January, 1)),
	}}}
	current := taxstatement.NewTaxStatement()

	v := NewPriorPeriodVerifier()
	result := v.Verify(prior, current)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, MismatchMissingInCurrent, result.Mismatches[0].Kind)
}

// TestPriorPeriodVerifierMissingInPrior covers a non-zero current opening
// with no counterpart in the prior statement.
func TestPriorPeriodVerifierMissingInPrior(t *testing.T) {
	prior := taxstatement.NewTaxStatement()
	current := taxstatement.NewTaxStatement()
	current.ListOfSecurities = []taxstatement.Depot{{DepotNumber: "D1", Security: []taxstatement.Security{
		secWithOpening("CH0000000001", decimal.NewFromInt(10), d(2024, time.January, 1)),
	}}}

	v := NewPriorPeriodVerifier()
	result := v.Verify(prior, current)
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, MismatchMissingInPrior, result.Mismatches[0].Kind)
}

// TestPriorPeriodVerifierImplicitZerosOK covers §4.6: implicit zeros on
// either side are fine when the other side is also zero — absent from
// both statements should not produce a mismatch.
func TestPriorPeriodVerifierImplicitZerosOK(t *testing.T) {
	prior := taxstatement.NewTaxStatement()
	current := taxstatement.NewTaxStatement()

	v := NewPriorPeriodVerifier()
	result := v.Verify(prior, current)
	assert.Empty(t, result.Mismatches)
	assert.Equal(t, 0, result.MatchedCount)
}
