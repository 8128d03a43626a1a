// internal/launchpad/errors.go
package launchpad

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/ledger"
)

// Kind classifies protocol errors by how a caller should react to them.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation errors are the caller's to fix; never retried.
	KindValidation
	// KindState errors reflect protocol state; retry after re-reading it.
	KindState
	// KindAuthorization errors are surfaced verbatim and never retried.
	KindAuthorization
	// KindNotFound errors need a prerequisite operation first.
	KindNotFound
	// KindMath errors come from checked arithmetic.
	KindMath
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindMath:
		return "math"
	default:
		return "unknown"
	}
}

// Error is a protocol error with a stable numeric code.
type Error struct {
	Code uint32
	Name string
	Msg  string
	Kind Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

var (
	ErrNotEnoughLamports  = &Error{6000, "NotEnoughLamports", "not enough lamports", KindState}
	ErrProgramPaused      = &Error{6001, "ProgramPaused", "program is paused", KindState}
	ErrOverflow           = &Error{6002, "Overflow", "math overflow", KindMath}
	ErrDivisionByZero     = &Error{6003, "DivisionByZero", "division by zero", KindMath}
	ErrSlippageExceeded   = &Error{6004, "SlippageExceeded", "slippage exceeded", KindValidation}
	ErrCurveCompleted     = &Error{6005, "CurveCompleted", "bonding curve already completed", KindState}
	ErrZeroAmount         = &Error{6006, "ZeroAmount", "amount must be greater than zero", KindValidation}
	ErrNotEnoughTokens    = &Error{6007, "NotEnoughTokens", "not enough tokens available", KindValidation}
	ErrUnauthorized       = &Error{6008, "Unauthorized", "caller is not the authority", KindAuthorization}
	ErrAlreadyInitialized = &Error{6009, "AlreadyInitialized", "account already initialized", KindState}
	ErrAccountNotFound    = &Error{6010, "AccountNotFound", "account not found", KindNotFound}
	ErrInvalidBps         = &Error{6011, "InvalidBps", "basis points must be within [0, 10000]", KindValidation}
	ErrInvalidConfig      = &Error{6012, "InvalidConfig", "invalid configuration", KindValidation}
	ErrInvalidMetadata    = &Error{6013, "InvalidMetadata", "invalid token metadata", KindValidation}
	ErrInsufficientFunds  = &Error{6014, "InsufficientFunds", "insufficient funds", KindValidation}
	ErrCurveNotCompleted  = &Error{6015, "CurveNotCompleted", "bonding curve has not completed", KindState}
	ErrAlreadyMigrated    = &Error{6016, "AlreadyMigrated", "bonding curve already migrated", KindState}
)

var allErrors = []*Error{
	ErrNotEnoughLamports, ErrProgramPaused, ErrOverflow, ErrDivisionByZero,
	ErrSlippageExceeded, ErrCurveCompleted, ErrZeroAmount, ErrNotEnoughTokens,
	ErrUnauthorized, ErrAlreadyInitialized, ErrAccountNotFound, ErrInvalidBps,
	ErrInvalidConfig, ErrInvalidMetadata, ErrInsufficientFunds,
	ErrCurveNotCompleted, ErrAlreadyMigrated,
}

// ErrorByCode looks up a protocol error by its numeric code.
func ErrorByCode(code uint32) (*Error, bool) {
	for _, e := range allErrors {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}

// AsError extracts the protocol error from err's chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the kind of the protocol error in err's chain.
func KindOf(err error) Kind {
	if pe, ok := AsError(err); ok {
		return pe.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err may succeed after re-reading state.
func IsRetryable(err error) bool {
	return KindOf(err) == KindState
}

// mathErr maps arithmetic and ledger balance failures onto protocol errors.
func mathErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, curve.ErrDivisionByZero):
		return fmt.Errorf("%w: %v", ErrDivisionByZero, err)
	case errors.Is(err, curve.ErrOverflow), errors.Is(err, ledger.ErrBalanceOverflow):
		return fmt.Errorf("%w: %v", ErrOverflow, err)
	}
	return err
}
