package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing billing input
	ErrValidation = errors.New("invalid billing input")

	// ErrSignatureVerification marks a tampered or forged gateway callback.
	// It is a deliberate rejection, not a system fault.
	ErrSignatureVerification = errors.New("payment signature verification failed")

	// ErrNotFound marks a missing resident or society record
	ErrNotFound = errors.New("record not found")

	// ErrSettlementConflict marks a settlement that lost the race against a
	// concurrent bill recomputation; the caller should retry from the bill page
	ErrSettlementConflict = errors.New("billing state changed during settlement")
)

// GatewayError wraps a failure reported by the payment gateway
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %v", e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// PersistenceError wraps a store write failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
