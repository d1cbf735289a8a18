// Package pipeline wires the calculation engine's stages into the order
// §2 prescribes and exposes a single Run entry point.
package pipeline

import (
	"github.com/vroonhof/opensteuerauszug/internal/calc"
	"github.com/vroonhof/opensteuerauszug/internal/kursliste"
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// Options configures one pipeline run.
type Options struct {
	// Accessor is the year-scoped Kursliste facade. Required for the
	// Kursliste and FillIn stages; when nil, those stages are skipped and
	// the statement only goes through MinimalTaxValueCalculator and
	// TotalCalculator.
	Accessor kursliste.Accessor

	Rates  calc.ExchangeRateProvider
	Flags  calc.FlagOverrideProvider

	// NoRoundSubTotal disables rounding of intermediate subtotals (§4.5
	// defaults roundSubTotal to yes, so this field is an explicit opt-out
	// rather than an opt-in bool that would default the wrong way).
	NoRoundSubTotal      bool
	KeepExistingPayments bool

	// PriorStatement, when set, runs PriorPeriodVerifier after the main
	// chain (§4.6).
	PriorStatement *taxstatement.TaxStatement
}

// Result carries the per-run diagnostics every calculator stage
// contributes, plus the prior-period outcome when requested (§6.2).
type Result struct {
	Errors            []calc.CalculationError
	ModifiedPaths     []string
	PriorPeriod       *calc.PriorPeriodResult
}

// Run executes the full pipeline over ts in the given mode (§2). The tree
// is mutated in place. In ModeVerify no field value is written; Walk still
// sorts each security's stock entries into canonical order, and critical
// warnings are still appended to the statement.
func Run(mode calc.Mode, ts *taxstatement.TaxStatement, opts Options) (*Result, error) {
	rc := calc.NewRunContext(mode, ts.TaxPeriod)

	var top calc.Calculator
	if opts.Accessor != nil {
		kl := calc.NewKurslisteTaxValueCalculator(opts.Accessor, opts.Flags)
		kl.KeepExistingPayments = opts.KeepExistingPayments
		top = calc.NewFillInTaxValueCalculator(kl)
	} else {
		top = calc.NewMinimalTaxValueCalculator(opts.Rates)
	}

	if err := calc.Walk(rc, ts, top); err != nil {
		return nil, err
	}

	totals := calc.NewTotalCalculator(!opts.NoRoundSubTotal)
	if err := calc.Walk(rc, ts, totals); err != nil {
		return nil, err
	}
	totals.Finish(rc)

	result := &Result{Errors: rc.Errors, ModifiedPaths: rc.ModifiedPaths}

	if opts.PriorStatement != nil {
		verifier := calc.NewPriorPeriodVerifier()
		r := verifier.Verify(opts.PriorStatement, ts)
		result.PriorPeriod = &r
	}

	return result, nil
}
