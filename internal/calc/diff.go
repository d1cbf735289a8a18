package calc

import (
	"github.com/google/go-cmp/cmp"

	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// setKurslistePayments is the mode-aware bridge between synthesized
// payments and the in-tree payment list (§4.4).
func (k *KurslisteTaxValueCalculator) setKurslistePayments(rc *RunContext, sec *taxstatement.Security, expected []taxstatement.SecurityPayment) error {
	path := "security[].payment"

	switch rc.Mode {
	case ModeOverwrite:
		if k.KeepExistingPayments && len(sec.Payment) > 0 {
			// Debug-only merge (§9 Open Questions): concatenate without
			// deduplication, exactly as the source behaves.
			sec.Payment = append(append([]taxstatement.SecurityPayment{}, sec.Payment...), expected...)
		} else {
			sec.Payment = expected
		}
		rc.recordModified(path)
		return nil

	case ModeFill:
		if len(sec.Payment) == 0 {
			sec.Payment = expected
			rc.recordModified(path)
			return nil
		}
		diffPayments(rc, path, sec.Payment, expected)
		return nil

	default: // ModeVerify
		diffPayments(rc, path, sec.Payment, expected)
		return nil
	}
}

// diffPayments pairs existing and expected payments by paymentDate and
// reports one CalculationError per matched pair that differs, plus
// extra/missing entries on either side (§4.4). A differing pair's error
// carries the two payments' names as expected/actual; the individual
// fields that differ are not listed. Pairing prefers a structurally equal
// match on the date, so a single date with multiple payments still lines
// up correctly when broker and Kursliste data already agree.
func diffPayments(rc *RunContext, path string, actual, expected []taxstatement.SecurityPayment) {
	byDate := make(map[string][]taxstatement.SecurityPayment)
	for _, e := range expected {
		key := e.PaymentDate.String()
		byDate[key] = append(byDate[key], e)
	}

	used := make(map[string]map[int]bool)

	for _, a := range actual {
		key := a.PaymentDate.String()
		candidates := byDate[key]
		if used[key] == nil {
			used[key] = make(map[int]bool)
		}

		matchIdx := -1
		for i, e := range candidates {
			if used[key][i] {
				continue
			}
			if cmp.Equal(a, e, paymentCmpOpts()...) {
				matchIdx = i
				break
			}
		}
		if matchIdx == -1 {
			for i, e := range candidates {
				if !used[key][i] {
					matchIdx = i
					break
				}
			}
		}

		if matchIdx == -1 {
			rc.recordError(path+"["+key+"]", "<absent>", "extra payment present in tree")
			continue
		}
		used[key][matchIdx] = true
		e := candidates[matchIdx]
		if diff := cmp.Diff(e, a, paymentCmpOpts()...); diff != "" {
			rc.recordError(path+"["+key+"]", e.Name, a.Name)
		}
	}

	for key, candidates := range byDate {
		for i, e := range candidates {
			if !used[key][i] {
				rc.recordError(path+"["+key+"]", e.Name, "<missing>")
			}
		}
	}
}

// paymentCmpOpts relies on go-cmp's default behavior of calling a type's
// own Equal method when one matches the Equal(T) bool signature:
// decimal.Decimal and taxstatement.Date both qualify, so their unexported
// internals never need an explicit option here.
func paymentCmpOpts() []cmp.Option {
	return nil
}
