package domain

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrAccessDenied            = errors.New("station is not a sorter station")
	ErrEmptyScanCode           = errors.New("scan code is required")
	ErrNoActiveSourceContainer = errors.New("no active source container")
	ErrUnknownSourceContainer  = errors.New("source container not found in station inventory")
	ErrSKUNotInSourceContainer = errors.New("sku not found in active source container")
	ErrNoDemand                = errors.New("no order requires this sku")
	ErrCapacityExhausted       = errors.New("all grids are in use")
	ErrMalformedSnapshot       = errors.New("malformed station snapshot")
	ErrGridNotFound            = errors.New("grid not found")
	ErrContainerNotChangeable  = errors.New("grid destination container is already confirmed")
	ErrDuplicateContainer      = errors.New("container already assigned to another grid")
	ErrEmptyContainerCode      = errors.New("container code is required")
)

// RejectionError carries the operator input behind a rejected scan.
type RejectionError struct {
	Code string
	Err  error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s (input: %s)", e.Err.Error(), e.Code)
}

func (e *RejectionError) Unwrap() error { return e.Err }

func reject(code string, err error) error {
	return &RejectionError{Code: code, Err: err}
}

// DuplicateContainerError names the grid that already holds the container.
type DuplicateContainerError struct {
	Container string
	GridID    string
}

func (e *DuplicateContainerError) Error() string {
	return fmt.Sprintf("%s: %s is used by %s", ErrDuplicateContainer.Error(), e.Container, e.GridID)
}

func (e *DuplicateContainerError) Unwrap() error { return ErrDuplicateContainer }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedSnapshot, fmt.Sprintf(format, args...))
}
