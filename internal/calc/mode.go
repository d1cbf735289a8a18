package calc

import (
	"github.com/shopspring/decimal"
)

// Mode selects one of the three semantics every calculator's field-write
// primitive implements uniformly (§2, §4.2):
//
//   - ModeVerify checks existing values against the computed value and
//     collects a CalculationError on mismatch, never mutating the tree;
//   - ModeFill writes only fields that are currently absent;
//   - ModeOverwrite always writes the computed value.
type Mode int

const (
	ModeVerify Mode = iota
	ModeFill
	ModeOverwrite
)

func (m Mode) String() string {
	switch m {
	case ModeVerify:
		return "Verify"
	case ModeFill:
		return "Fill"
	case ModeOverwrite:
		return "Overwrite"
	default:
		return "Unknown"
	}
}

// CalculationError is a path-addressed mismatch collected by ModeVerify
// (§6.2, §7).
type CalculationError struct {
	FieldPath string
	Expected  string
	Actual    string
}

// RunContext carries the cross-cutting, run-scoped state threaded through
// every calculator hook: the active mode, the accumulated verification
// errors and modified-field paths, and run metadata. Calculator-specific
// dependencies (an accessor, a rate provider) live on the calculator
// structs themselves, per §9's "keep it as a field on the calculator"
// option; RunContext is the "explicit context passed down" option, used
// here for the state every layer of the Minimal/Kursliste/FillIn chain
// needs to share.
type RunContext struct {
	Mode      Mode
	RunID     string
	TaxPeriod int

	Errors        []CalculationError
	ModifiedPaths []string
}

// NewRunContext starts a fresh run context for the given mode and tax
// period.
func NewRunContext(mode Mode, taxPeriod int) *RunContext {
	return &RunContext{
		Mode:      mode,
		RunID:     newRunID(),
		TaxPeriod: taxPeriod,
	}
}

func (rc *RunContext) recordError(path, expected, actual string) {
	rc.Errors = append(rc.Errors, CalculationError{FieldPath: path, Expected: expected, Actual: actual})
}

func (rc *RunContext) recordModified(path string) {
	rc.ModifiedPaths = append(rc.ModifiedPaths, path)
}

// SetDecimal applies the three-mode write semantics to a required decimal
// field (the zero value stands for "absent", matching the convention the
// teacher's own float64 fields use throughout internal/engine). It returns
// whether the field was modified.
func (rc *RunContext) SetDecimal(path string, target *decimal.Decimal, newValue decimal.Decimal) bool {
	switch rc.Mode {
	case ModeVerify:
		if !target.Equal(newValue) {
			rc.recordError(path, newValue.String(), target.String())
		}
		return false
	case ModeFill:
		if target.IsZero() && !newValue.IsZero() {
			*target = newValue
			rc.recordModified(path)
			return true
		}
		return false
	default: // ModeOverwrite
		if target.Equal(newValue) {
			return false
		}
		*target = newValue
		rc.recordModified(path)
		return true
	}
}

// SetDecimalPtr applies the three-mode write semantics to an optional
// (*decimal.Decimal) field, where nil means absent.
func (rc *RunContext) SetDecimalPtr(path string, target **decimal.Decimal, newValue decimal.Decimal) bool {
	switch rc.Mode {
	case ModeVerify:
		if *target == nil {
			rc.recordError(path, newValue.String(), "<absent>")
		} else if !(*target).Equal(newValue) {
			rc.recordError(path, newValue.String(), (*target).String())
		}
		return false
	case ModeFill:
		if *target == nil {
			v := newValue
			*target = &v
			rc.recordModified(path)
			return true
		}
		return false
	default: // ModeOverwrite
		if *target != nil && (*target).Equal(newValue) {
			return false
		}
		v := newValue
		*target = &v
		rc.recordModified(path)
		return true
	}
}

// SetString applies the three-mode write semantics to a required string
// field, where "" means absent.
func (rc *RunContext) SetString(path string, target *string, newValue string) bool {
	switch rc.Mode {
	case ModeVerify:
		if *target != newValue {
			rc.recordError(path, newValue, *target)
		}
		return false
	case ModeFill:
		if *target == "" && newValue != "" {
			*target = newValue
			rc.recordModified(path)
			return true
		}
		return false
	default: // ModeOverwrite
		if *target == newValue {
			return false
		}
		*target = newValue
		rc.recordModified(path)
		return true
	}
}

// SetBool applies the three-mode write semantics to a bool field. false is
// treated as "absent" for Fill purposes — a documented limitation shared
// with every bool flag the teacher's own domain_types.go defaults to
// false.
func (rc *RunContext) SetBool(path string, target *bool, newValue bool) bool {
	switch rc.Mode {
	case ModeVerify:
		if *target != newValue {
			rc.recordError(path, boolString(newValue), boolString(*target))
		}
		return false
	case ModeFill:
		if !*target && newValue {
			*target = true
			rc.recordModified(path)
			return true
		}
		return false
	default: // ModeOverwrite
		if *target == newValue {
			return false
		}
		*target = newValue
		rc.recordModified(path)
		return true
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
