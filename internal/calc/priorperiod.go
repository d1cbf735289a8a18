package calc

import (
	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// PositionMismatchKind classifies one prior-period verification outcome
// (§4.6).
type PositionMismatchKind string

const (
	MismatchQuantity        PositionMismatchKind = "MISMATCH"
	MismatchMissingInCurrent PositionMismatchKind = "MISSING_IN_CURRENT"
	MismatchMissingInPrior  PositionMismatchKind = "MISSING_IN_PRIOR"
)

// PositionMismatch records one (depot, identifier) key whose prior-ending
// and current-opening quantities disagree (§4.6).
type PositionMismatch struct {
	Kind          PositionMismatchKind
	DepotNumber   string
	Identifier    string
	PriorClosing  decimal.Decimal
	CurrentOpening decimal.Decimal
}

// PriorPeriodResult summarizes one cross-check run (§4.6, §8 Scenario
// framing).
type PriorPeriodResult struct {
	MatchedCount int
	Mismatches   []PositionMismatch
}

// PriorPeriodVerifier is the optional one-shot cross-check against the
// previous year's statement (§2 step 6, §4.6). It is not wired into the
// Minimal/Kursliste/FillIn embedding chain or into Walk at all — it
// compares two already-computed trees directly rather than visiting one.
type PriorPeriodVerifier struct {
	Tolerance decimal.Decimal
}

func NewPriorPeriodVerifier() *PriorPeriodVerifier {
	return &PriorPeriodVerifier{Tolerance: decimal.Zero}
}

type positionKey struct {
	depot string
	id    string
}

func securityKey(depotNumber string, sec *taxstatement.Security) positionKey {
	id := sec.ISIN
	if id == "" {
		id = sec.Identifier()
	}
	return positionKey{depot: depotNumber, id: id}
}

// Verify compares prior's year-end closing quantities against current's
// opening quantities, keyed by (depot, isin-or-valor) (§4.6).
func (v *PriorPeriodVerifier) Verify(prior, current *taxstatement.TaxStatement) PriorPeriodResult {
	priorClosing := make(map[positionKey]decimal.Decimal)
	for _, depot := range prior.ListOfSecurities {
		for i := range depot.Security {
			sec := &depot.Security[i]
			closing, ok := sec.ClosingBalance()
			if !ok {
				continue
			}
			priorClosing[securityKey(depot.DepotNumber, sec)] = closing.Quantity
		}
	}

	currentOpening := make(map[positionKey]decimal.Decimal)
	for _, depot := range current.ListOfSecurities {
		for i := range depot.Security {
			sec := &depot.Security[i]
			opening, ok := earliestBalance(sec.Stock)
			if !ok {
				continue
			}
			currentOpening[securityKey(depot.DepotNumber, sec)] = opening.Quantity
		}
	}

	result := PriorPeriodResult{}
	seen := make(map[positionKey]bool)

	for key, priorQty := range priorClosing {
		seen[key] = true
		currentQty, ok := currentOpening[key]
		if !ok {
			currentQty = decimal.Zero
		}
		v.classify(&result, key, priorQty, currentQty, ok)
	}

	for key, currentQty := range currentOpening {
		if seen[key] {
			continue
		}
		v.classify(&result, key, decimal.Zero, currentQty, true)
	}

	return result
}

func (v *PriorPeriodVerifier) classify(result *PriorPeriodResult, key positionKey, priorQty, currentQty decimal.Decimal, presentInCurrent bool) {
	diff := priorQty.Sub(currentQty).Abs()
	if diff.LessThanOrEqual(v.Tolerance) {
		result.MatchedCount++
		return
	}

	switch {
	case !presentInCurrent && !priorQty.IsZero():
		result.Mismatches = append(result.Mismatches, PositionMismatch{
			Kind: MismatchMissingInCurrent, DepotNumber: key.depot, Identifier: key.id,
			PriorClosing: priorQty, CurrentOpening: decimal.Zero,
		})
	case priorQty.IsZero() && !currentQty.IsZero() && !presentInPrior(priorQty):
		result.Mismatches = append(result.Mismatches, PositionMismatch{
			Kind: MismatchMissingInPrior, DepotNumber: key.depot, Identifier: key.id,
			PriorClosing: decimal.Zero, CurrentOpening: currentQty,
		})
	default:
		result.Mismatches = append(result.Mismatches, PositionMismatch{
			Kind: MismatchQuantity, DepotNumber: key.depot, Identifier: key.id,
			PriorClosing: priorQty, CurrentOpening: currentQty,
		})
	}
}

// presentInPrior exists only to document the implicit-zero exemption
// (§4.6: "implicit zeros on either side are OK when the other side is
// also zero") at the call site above; the zero check is already folded
// into classify's tolerance comparison for the true match case, this
// covers the asymmetric zero-vs-nonzero cases explicitly.
func presentInPrior(priorQty decimal.Decimal) bool {
	return !priorQty.IsZero()
}

func earliestBalance(stock []taxstatement.SecurityStock) (taxstatement.SecurityStock, bool) {
	var best taxstatement.SecurityStock
	found := false
	for _, s := range stock {
		if s.Mutation {
			continue
		}
		if !found || s.ReferenceDate.Before(best.ReferenceDate) {
			best = s
			found = true
		}
	}
	return best, found
}
