package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameters marks requests rejected before any data is read.
	ErrInvalidParameters = errors.New("analytics: invalid parameters")
	// ErrDataAccess marks failures of the underlying ledger reads.
	ErrDataAccess = errors.New("analytics: data access failed")
)

// ParamError describes a rejected parameter.
type ParamError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrInvalidParameters.
func (e *ParamError) Is(target error) bool { return target == ErrInvalidParameters }

// Unwrap exposes the cause, if any.
func (e *ParamError) Unwrap() error { return e.Err }

// DataAccessError wraps the ledger read that failed. The original error is
// preserved for errors.Is/As.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Op, e.Err)
}

// Is matches ErrDataAccess.
func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }

// Unwrap returns the underlying read error.
func (e *DataAccessError) Unwrap() error { return e.Err }

func invalid(field, reason string) error {
	return &ParamError{Field: field, Reason: reason}
}

func dataAccess(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *DataAccessError
	if errors.As(err, &existing) {
		return err
	}
	return &DataAccessError{Op: op, Err: err}
}
