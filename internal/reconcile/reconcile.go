// Package reconcile implements the PositionReconciler (§4.1): a small
// subsystem that walks an arbitrarily interleaved sequence of balance
// snapshots and signed mutations for one security (or cash position) and
// can synthesize the position at any date, forward or backward.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// Position is the synthesized result of a reconciliation query (§4.1).
type Position struct {
	ReferenceDate taxstatement.Date
	Quantity      decimal.Decimal
	Currency      string
}

// Discrepancy records a mismatch found by CheckConsistency between a
// reported balance and the position calculated by applying mutations
// since the previous balance.
type Discrepancy struct {
	ReferenceDate taxstatement.Date
	Reported      decimal.Decimal
	Calculated    decimal.Decimal
	Diff          decimal.Decimal // Reported - Calculated
}

// ConsistencyResult is the outcome of CheckConsistency (§4.1).
type ConsistencyResult struct {
	Consistent    bool
	Discrepancies []Discrepancy
	// NegativeExcursions lists dates where the running position went
	// negative between balance resets — never possible at the boundary
	// of a compliant tax statement (§8 property 3), but callers decide
	// whether to treat it as a hard error.
	NegativeExcursions []taxstatement.Date
	Log                []string
}

// Reconciler holds one security's stock history, sorted by
// (referenceDate, mutation) so that same-day balances precede same-day
// mutations (§3).
type Reconciler struct {
	entries []taxstatement.SecurityStock
}

// New builds a Reconciler from an unsorted stock list.
func New(stock []taxstatement.SecurityStock) *Reconciler {
	entries := make([]taxstatement.SecurityStock, len(stock))
	copy(entries, stock)
	sortEntries(entries)
	return &Reconciler{entries: entries}
}

func sortEntries(entries []taxstatement.SecurityStock) {
	for i := 1; i < len(entries); i++ {
		j := i
		for j > 0 && lessThan(entries[j], entries[j-1]) {
			entries[j], entries[j-1] = entries[j-1], entries[j]
			j--
		}
	}
}

func lessThan(a, b taxstatement.SecurityStock) bool {
	if !a.ReferenceDate.Equal(b.ReferenceDate) {
		return a.ReferenceDate.Before(b.ReferenceDate)
	}
	return !a.Mutation && b.Mutation
}

// CheckConsistency walks forward from the earliest balance, applying each
// mutation, and at each subsequent balance reports the discrepancy
// (reported - calculated) before resetting the running position to the
// reported value so one bad snapshot does not cascade (§4.1). It fails
// (returns an error) if there is no balance at all.
func (r *Reconciler) CheckConsistency() (ConsistencyResult, error) {
	firstBalance := -1
	for i, e := range r.entries {
		if !e.Mutation {
			firstBalance = i
			break
		}
	}
	if firstBalance == -1 {
		return ConsistencyResult{}, fmt.Errorf("reconcile: no balance entry in stock history")
	}

	result := ConsistencyResult{Consistent: true}
	running := r.entries[firstBalance].Quantity
	result.Log = append(result.Log, fmt.Sprintf("start balance %s on %s", running, r.entries[firstBalance].ReferenceDate))

	for _, e := range r.entries[firstBalance+1:] {
		if e.Mutation {
			running = running.Add(e.Quantity)
			result.Log = append(result.Log, fmt.Sprintf("apply mutation %s on %s -> %s", e.Quantity, e.ReferenceDate, running))
			if running.IsNegative() {
				result.NegativeExcursions = append(result.NegativeExcursions, e.ReferenceDate)
			}
			continue
		}

		diff := e.Quantity.Sub(running)
		if !diff.IsZero() {
			result.Consistent = false
			result.Discrepancies = append(result.Discrepancies, Discrepancy{
				ReferenceDate: e.ReferenceDate,
				Reported:      e.Quantity,
				Calculated:    running,
				Diff:          diff,
			})
			result.Log = append(result.Log, fmt.Sprintf("discrepancy on %s: reported %s calculated %s", e.ReferenceDate, e.Quantity, running))
		}
		running = e.Quantity
	}

	return result, nil
}

// SynthesizeAt computes the position at referenceDate (§4.1):
//
//   - forward path: if a balance exists at or before referenceDate, take
//     the latest such balance and apply every mutation strictly after its
//     date and strictly before referenceDate (mutations on referenceDate
//     itself are not applied — start-of-day semantics);
//   - backward path: otherwise, if a balance exists strictly after
//     referenceDate, take the earliest one and un-apply every mutation in
//     the half-open interval [referenceDate, that balance's date) — this
//     follows the interval as literally stated, so mutations dated exactly
//     on referenceDate ARE un-applied and the result is the start-of-day
//     position, as on the forward path (see DESIGN.md for the Open
//     Question this resolves);
//   - zero fallback: if assumeZeroIfNoBalances is set and no balance
//     exists anywhere, start from zero before the first mutation and
//     apply forward.
//
// It returns ok=false when none of the three paths apply.
func (r *Reconciler) SynthesizeAt(referenceDate taxstatement.Date, assumeZeroIfNoBalances bool) (Position, bool) {
	if pos, ok := r.forward(referenceDate); ok {
		return pos, true
	}
	if pos, ok := r.backward(referenceDate); ok {
		return pos, true
	}
	if assumeZeroIfNoBalances {
		return r.zeroForward(referenceDate), true
	}
	return Position{}, false
}

func (r *Reconciler) forward(referenceDate taxstatement.Date) (Position, bool) {
	idx := -1
	for i, e := range r.entries {
		if e.Mutation {
			continue
		}
		if e.ReferenceDate.After(referenceDate) {
			continue
		}
		if idx == -1 || e.ReferenceDate.After(r.entries[idx].ReferenceDate) {
			idx = i
		}
	}
	if idx == -1 {
		return Position{}, false
	}

	base := r.entries[idx]
	qty := base.Quantity
	for _, e := range r.entries {
		if !e.Mutation {
			continue
		}
		if e.ReferenceDate.After(base.ReferenceDate) && e.ReferenceDate.Before(referenceDate) {
			qty = qty.Add(e.Quantity)
		}
	}
	return Position{ReferenceDate: referenceDate, Quantity: qty, Currency: base.BalanceCurrency}, true
}

func (r *Reconciler) backward(referenceDate taxstatement.Date) (Position, bool) {
	idx := -1
	for i, e := range r.entries {
		if e.Mutation {
			continue
		}
		if !e.ReferenceDate.After(referenceDate) {
			continue
		}
		if idx == -1 || e.ReferenceDate.Before(r.entries[idx].ReferenceDate) {
			idx = i
		}
	}
	if idx == -1 {
		return Position{}, false
	}

	target := r.entries[idx]
	qty := target.Quantity
	for _, e := range r.entries {
		if !e.Mutation {
			continue
		}
		if !e.ReferenceDate.Before(referenceDate) && e.ReferenceDate.Before(target.ReferenceDate) {
			qty = qty.Sub(e.Quantity)
		}
	}
	return Position{ReferenceDate: referenceDate, Quantity: qty, Currency: target.BalanceCurrency}, true
}

func (r *Reconciler) zeroForward(referenceDate taxstatement.Date) Position {
	qty := decimal.Zero
	currency := ""
	for _, e := range r.entries {
		if !e.Mutation {
			continue
		}
		if currency == "" {
			currency = e.BalanceCurrency
		}
		if e.ReferenceDate.Before(referenceDate) {
			qty = qty.Add(e.Quantity)
		}
	}
	return Position{ReferenceDate: referenceDate, Quantity: qty, Currency: currency}
}
