package calc

import (
	"github.com/vroonhof/opensteuerauszug/internal/taxstatement"
)

// Calculator is a visitor over the tax-statement tree with one hook per
// node type (§9: "a Calculator trait with explicit hooks per node type and
// default no-ops, plus a generic tree walker that dispatches on a tagged
// variant"). BaseCalculator supplies the no-op defaults; concrete
// calculators embed a previous stage and override only the hooks whose
// behavior they change, which gives "forwarding hooks unless overridden"
// for free through Go's method promotion — the composition §9 describes
// as `FillInCalculator{ inner: KurslisteCalculator{ inner:
// MinimalCalculator{} } }`.
type Calculator interface {
	HandleTaxStatement(rc *RunContext, ts *taxstatement.TaxStatement) error
	HandleDepot(rc *RunContext, depot *taxstatement.Depot) error
	HandleSecurity(rc *RunContext, depot *taxstatement.Depot, sec *taxstatement.Security) error
	HandleSecurityStock(rc *RunContext, sec *taxstatement.Security, stock *taxstatement.SecurityStock) error
	HandleSecurityPayment(rc *RunContext, sec *taxstatement.Security, payment *taxstatement.SecurityPayment) error
	HandleBankAccount(rc *RunContext, acct *taxstatement.BankAccount) error
	HandleBankAccountTaxValue(rc *RunContext, acct *taxstatement.BankAccount, tv *taxstatement.BankAccountTaxValue) error
	HandleBankAccountPayment(rc *RunContext, acct *taxstatement.BankAccount, p *taxstatement.BankAccountPayment) error
	HandleLiabilityAccount(rc *RunContext, liab *taxstatement.LiabilityAccount) error
	HandleLiabilityAccountTaxValue(rc *RunContext, liab *taxstatement.LiabilityAccount, tv *taxstatement.LiabilityAccountTaxValue) error
	HandleLiabilityAccountPayment(rc *RunContext, liab *taxstatement.LiabilityAccount, p *taxstatement.LiabilityAccountPayment) error
}

// BaseCalculator implements every Calculator hook as a no-op. Embed it to
// pick and choose which hooks to override.
type BaseCalculator struct{}

func (BaseCalculator) HandleTaxStatement(*RunContext, *taxstatement.TaxStatement) error { return nil }
func (BaseCalculator) HandleDepot(*RunContext, *taxstatement.Depot) error               { return nil }
func (BaseCalculator) HandleSecurity(*RunContext, *taxstatement.Depot, *taxstatement.Security) error {
	return nil
}
func (BaseCalculator) HandleSecurityStock(*RunContext, *taxstatement.Security, *taxstatement.SecurityStock) error {
	return nil
}
func (BaseCalculator) HandleSecurityPayment(*RunContext, *taxstatement.Security, *taxstatement.SecurityPayment) error {
	return nil
}
func (BaseCalculator) HandleBankAccount(*RunContext, *taxstatement.BankAccount) error { return nil }
func (BaseCalculator) HandleBankAccountTaxValue(*RunContext, *taxstatement.BankAccount, *taxstatement.BankAccountTaxValue) error {
	return nil
}
func (BaseCalculator) HandleBankAccountPayment(*RunContext, *taxstatement.BankAccount, *taxstatement.BankAccountPayment) error {
	return nil
}
func (BaseCalculator) HandleLiabilityAccount(*RunContext, *taxstatement.LiabilityAccount) error {
	return nil
}
func (BaseCalculator) HandleLiabilityAccountTaxValue(*RunContext, *taxstatement.LiabilityAccount, *taxstatement.LiabilityAccountTaxValue) error {
	return nil
}
func (BaseCalculator) HandleLiabilityAccountPayment(*RunContext, *taxstatement.LiabilityAccount, *taxstatement.LiabilityAccountPayment) error {
	return nil
}

// Walk traverses the tree in the order §5 prescribes: parent before
// children, index order within a list, and — within a Security — the
// Security hook fires before its stock/payment children so a calculator
// can install "current security" context first. Stock entries are sorted
// into canonical (referenceDate, mutation) order before traversal.
func Walk(rc *RunContext, ts *taxstatement.TaxStatement, c Calculator) error {
	if err := c.HandleTaxStatement(rc, ts); err != nil {
		return err
	}

	for i := range ts.ListOfSecurities {
		depot := &ts.ListOfSecurities[i]
		if err := c.HandleDepot(rc, depot); err != nil {
			return err
		}
		for j := range depot.Security {
			sec := &depot.Security[j]
			if err := c.HandleSecurity(rc, depot, sec); err != nil {
				return err
			}
			taxstatement.SortStock(sec.Stock)
			for k := range sec.Stock {
				if err := c.HandleSecurityStock(rc, sec, &sec.Stock[k]); err != nil {
					return err
				}
			}
			for k := range sec.Payment {
				if err := c.HandleSecurityPayment(rc, sec, &sec.Payment[k]); err != nil {
					return err
				}
			}
		}
	}

	for i := range ts.ListOfBankAccounts {
		acct := &ts.ListOfBankAccounts[i]
		if err := c.HandleBankAccount(rc, acct); err != nil {
			return err
		}
		for k := range acct.TaxValue {
			if err := c.HandleBankAccountTaxValue(rc, acct, &acct.TaxValue[k]); err != nil {
				return err
			}
		}
		for k := range acct.Payment {
			if err := c.HandleBankAccountPayment(rc, acct, &acct.Payment[k]); err != nil {
				return err
			}
		}
	}

	for i := range ts.ListOfLiabilities {
		liab := &ts.ListOfLiabilities[i]
		if err := c.HandleLiabilityAccount(rc, liab); err != nil {
			return err
		}
		for k := range liab.TaxValue {
			if err := c.HandleLiabilityAccountTaxValue(rc, liab, &liab.TaxValue[k]); err != nil {
				return err
			}
		}
		for k := range liab.Payment {
			if err := c.HandleLiabilityAccountPayment(rc, liab, &liab.Payment[k]); err != nil {
				return err
			}
		}
	}

	return nil
}
