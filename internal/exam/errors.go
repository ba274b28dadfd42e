package exam

import (
	"errors"
	"strings"
)

var (
	ErrConfigNotFound  = errors.New("test configuration not found")
	ErrVariantNotFound = errors.New("test variant not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStore           = errors.New("store error")
)

// ValidationError carries the human-readable reasons of a rejected request.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Reasons, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(reasons ...string) error {
	return &ValidationError{Reasons: reasons}
}

// StoreError wraps a persistence failure. It is fatal for the operation and
// never retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store error: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// storeErr passes not-found sentinels through and wraps everything else.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrVariantNotFound) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
