package taxstatement

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level validator instance with the two custom tag
// checks the data model needs (ISIN format, valor-number range). A single
// shared instance is the documented go-playground/validator usage pattern:
// struct-tag metadata is cached on first use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("isin", func(fl validator.FieldLevel) bool {
		return ValidISIN(fl.Field().String())
	})
	_ = v.RegisterValidation("valor", func(fl validator.FieldLevel) bool {
		return ValidValorNumber(fl.Field().Int())
	})
	return v
}

// Validate checks the structural invariants from §3: ISIN/valor format,
// periodFrom <= periodTo, and (for single-year statements) that both dates
// fall in taxPeriod. It does not check cross-field consistency that belongs
// to a calculator (e.g. reconciled balances) — that is PositionReconciler's
// and the calculators' job.
func (ts *TaxStatement) Validate() error {
	if err := validate.Struct(ts); err != nil {
		return fmt.Errorf("taxstatement: %w", err)
	}
	if ts.PeriodFrom.After(ts.PeriodTo) {
		return fmt.Errorf("taxstatement: periodFrom %s is after periodTo %s", ts.PeriodFrom, ts.PeriodTo)
	}
	if ts.PeriodFrom.Year() == ts.PeriodTo.Year() && ts.PeriodFrom.Year() != ts.TaxPeriod {
		return fmt.Errorf("taxstatement: taxPeriod %d does not match period year %d", ts.TaxPeriod, ts.PeriodFrom.Year())
	}
	for i := range ts.ListOfSecurities {
		for j := range ts.ListOfSecurities[i].Security {
			sec := &ts.ListOfSecurities[i].Security[j]
			if sec.ISIN == "" && sec.ValorNumber == 0 {
				return fmt.Errorf("taxstatement: security at depot %q index %d has neither isin nor valorNumber",
					ts.ListOfSecurities[i].DepotNumber, j)
			}
			if err := validate.Struct(sec); err != nil {
				return fmt.Errorf("taxstatement: %w", err)
			}
		}
	}
	return nil
}
