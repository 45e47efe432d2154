package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the audit and disbursement code wraps
// exactly one of these, so callers classify failures with errors.Is.
var (
	ErrParse          = errors.New("parse error")
	ErrLookup         = errors.New("lookup error")
	ErrArithmetic     = errors.New("arithmetic error")
	ErrQuery          = errors.New("query error")
	ErrReconciliation = errors.New("reconciliation error")
	ErrSubmission     = errors.New("submission error")
	ErrManifest       = errors.New("manifest error")
)

var (
	ErrAliasNotFound  = fmt.Errorf("%w: alias not found", ErrLookup)
	ErrOverflow       = fmt.Errorf("%w: overflow", ErrArithmetic)
	ErrUnderflow      = fmt.Errorf("%w: underflow", ErrArithmetic)
	ErrDivisionByZero = fmt.Errorf("%w: division by zero", ErrArithmetic)
	ErrSigning        = fmt.Errorf("%w: signing failed", ErrSubmission)
	ErrRejected       = fmt.Errorf("%w: transfer rejected", ErrSubmission)

	// zero value legs and legs paying the source itself can only come from a broken manifest
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrManifest)
	ErrInvalidTarget = fmt.Errorf("%w: invalid target", ErrManifest)
)
