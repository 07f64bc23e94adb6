package engine

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the engine. Every failure is
// recoverable: callers may skip the offending transaction and continue.
var (
	ErrDuplicateTransaction          = errors.New("duplicate transaction")
	ErrInsufficientFunds             = errors.New("insufficient funds")
	ErrAmountNotPositive             = errors.New("transaction amount is not positive")
	ErrDisputedTransactionNotFound   = errors.New("disputed transaction not found")
	ErrDisputeWithdrawalNotSupported = errors.New("disputing a withdrawal is not supported")
	ErrDisputeClientMismatch         = errors.New("dispute client does not own the transaction")
	ErrResolveClientMismatch         = errors.New("resolve client does not own the transaction")
	ErrChargebackClientMismatch      = errors.New("chargeback client does not own the transaction")
	ErrAccountLocked                 = errors.New("account is locked")
	ErrInvalidStatusTransition       = errors.New("invalid status transition")
	ErrInvalidLockedAccountPolicy    = errors.New("invalid locked account policy")
)

// StatusTransitionError reports a disallowed status move with the attempted
// from/to states for diagnostics.
type StatusTransitionError struct {
	From TransactionStatus
	To   TransactionStatus
}

// Error returns the formatted error message.
func (transitionError StatusTransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidStatusTransition, transitionError.From, transitionError.To)
}

// Unwrap makes the error matchable against ErrInvalidStatusTransition.
func (transitionError StatusTransitionError) Unwrap() error {
	return ErrInvalidStatusTransition
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
