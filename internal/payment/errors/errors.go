package errors

import (
	"errors"
	"fmt"
)

var (
	ErrSetupNotComplete = errors.New("Setup Intent not succeeded")
	ErrCustomerMismatch = errors.New("Payment method customer mismatch")
	ErrAlreadyExists    = errors.New("Payment method already exists")
	ErrNotFound         = errors.New("Payment method not found")
	ErrListFailed       = errors.New("Error fetching payment methods")
)

// ProcessorError is any failure reported by the payment processor, including
// transport failures while talking to it.
type ProcessorError struct {
	Op  string
	Msg string
	Err error
}

func (e *ProcessorError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("Stripe error: %s", e.Msg)
	}
	return fmt.Sprintf("Stripe error: %s: %s", e.Op, e.Msg)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

func NewProcessorError(op string, err error) error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &ProcessorError{Op: op, Msg: msg, Err: err}
}

func IsProcessorError(err error) bool {
	var processorError *ProcessorError
	return errors.As(err, &processorError)
}

// ProcessorMessage returns the processor's own message, or "" when err is not a ProcessorError.
func ProcessorMessage(err error) string {
	var processorError *ProcessorError
	if errors.As(err, &processorError) {
		return processorError.Msg
	}
	return ""
}

// IsDomainError reports whether err is one of the onboarding precondition failures.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrSetupNotComplete) ||
		errors.Is(err, ErrCustomerMismatch) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNotFound)
}
