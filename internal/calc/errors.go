package calc

import "fmt"

// ErrorKind closes the set of hard-error categories §7 enumerates, so
// callers can branch on failure kind instead of matching error strings.
type ErrorKind string

const (
	ErrMissingCurrency     ErrorKind = "MISSING_CURRENCY"
	ErrMissingDate         ErrorKind = "MISSING_DATE"
	ErrMissingExchangeRate ErrorKind = "MISSING_EXCHANGE_RATE"
	ErrUnknownSign         ErrorKind = "UNKNOWN_SIGN"
	ErrUnimplemented       ErrorKind = "UNIMPLEMENTED"
	ErrSplitMismatch       ErrorKind = "SPLIT_MISMATCH"
	ErrNegativeBalance     ErrorKind = "NEGATIVE_BALANCE"
	ErrDivisionByZero      ErrorKind = "DIVISION_BY_ZERO"
	ErrNotFound            ErrorKind = "NOT_FOUND"
	ErrReconciliation      ErrorKind = "RECONCILIATION"
)

// CoreError is a hard error (§7): it aborts the pipeline run. The tree is
// left partially filled; the caller receives this alongside whatever
// verification errors and warnings had already accumulated.
type CoreError struct {
	Kind    ErrorKind
	Path    string
	Message string
}

func (e *CoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
}

// newErr builds a CoreError with a formatted message.
func newErr(kind ErrorKind, path string, format string, args ...interface{}) error {
	return &CoreError{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}
