package application

import (
	"context"
	"errors"

	"github.com/wms-platform/sorter-station-service/internal/domain"
	apperrors "github.com/wms-platform/sorter-station-service/pkg/errors"
	"github.com/wms-platform/sorter-station-service/pkg/resilience"
)

// ErrStationNotConnected is returned by operations that need a station barcode
var ErrStationNotConnected = errors.New("station is not connected")

// FeedbackError reports a failed feedback call and whether the station was
// resynchronized from the snapshot source afterwards.
type FeedbackError struct {
	Kind           string
	Resynchronized bool
	Err            error
}

func (e *FeedbackError) Error() string {
	return e.Kind + " feedback failed: " + e.Err.Error()
}

func (e *FeedbackError) Unwrap() error { return e.Err }

// MapError converts service errors into AppErrors for the HTTP layer
func MapError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var fbErr *FeedbackError
	if errors.As(err, &fbErr) {
		resync := "false"
		if fbErr.Resynchronized {
			resync = "true"
		}
		return apperrors.ErrFeedbackFailed(fbErr.Kind).
			WithDetail("resynchronized", resync).
			Wrap(err)
	}

	appErr := mapDomainError(err)
	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		appErr.WithDetail("code", rejection.Code)
	}
	var dup *domain.DuplicateContainerError
	if errors.As(err, &dup) {
		appErr.WithDetail("gridId", dup.GridID)
	}
	return appErr
}

func mapDomainError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrCapacityExhausted):
		return apperrors.ErrCapacityExhausted(domain.ErrCapacityExhausted.Error()).Wrap(err)
	case errors.Is(err, domain.ErrAccessDenied):
		return apperrors.ErrForbidden(domain.ErrAccessDenied.Error()).Wrap(err)
	case errors.Is(err, domain.ErrMalformedSnapshot):
		return apperrors.ErrMalformedSnapshot(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrGridNotFound):
		return apperrors.ErrNotFound("grid").Wrap(err)
	case errors.Is(err, domain.ErrDuplicateContainer),
		errors.Is(err, domain.ErrContainerNotChangeable),
		errors.Is(err, ErrStationNotConnected):
		return apperrors.ErrConflict(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrEmptyScanCode),
		errors.Is(err, domain.ErrEmptyContainerCode):
		return apperrors.ErrValidation(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrNoActiveSourceContainer),
		errors.Is(err, domain.ErrUnknownSourceContainer),
		errors.Is(err, domain.ErrSKUNotInSourceContainer),
		errors.Is(err, domain.ErrNoDemand):
		return apperrors.ErrScanRejected(err.Error()).Wrap(err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ErrServiceUnavailable("upstream").Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTimeout("upstream request").Wrap(err)
	}
	return apperrors.MapDomainError(err)
}

// rejectionReason is a short metric label for a rejected operator action
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, domain.ErrEmptyScanCode):
		return "empty_code"
	case errors.Is(err, domain.ErrNoActiveSourceContainer):
		return "no_source_container"
	case errors.Is(err, domain.ErrUnknownSourceContainer):
		return "unknown_source_container"
	case errors.Is(err, domain.ErrSKUNotInSourceContainer):
		return "sku_not_in_container"
	case errors.Is(err, domain.ErrNoDemand):
		return "no_demand"
	case errors.Is(err, domain.ErrCapacityExhausted):
		return "capacity_exhausted"
	}
	return "other"
}
