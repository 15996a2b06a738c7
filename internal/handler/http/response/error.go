package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"
)

var rejectionStatus = map[tick.Code]int{
	tick.CodeUnauthorized:         http.StatusUnauthorized,
	tick.CodeGeoOutOfRange:        http.StatusForbidden,
	tick.CodeShopNotGeoConfigured: http.StatusForbidden,
	tick.CodeNoActiveEmployment:   http.StatusForbidden,
	tick.CodeNoScheduledDay:       http.StatusForbidden,
	tick.CodeUnplannedWork:        http.StatusForbidden,
	tick.CodeDuplicate:            http.StatusConflict,
	tick.CodeInvalidShop:          http.StatusUnprocessableEntity,
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Tick policy rejections
	if rej, ok := tick.AsRejection(err); ok {
		if rej.Retryable() {
			ServiceUnavailable(w, string(rej.Code), rej.Error())
			return
		}
		status, known := rejectionStatus[rej.Code]
		if !known {
			status = http.StatusUnprocessableEntity
		}
		Rejected(w, status, string(rej.Code), rej.Error())
		return
	}

	switch {
	// Auth
	case errors.Is(err, principal.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Unauthorized")
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrTerminalInactive):
		Unauthorized(w, "Terminal is deactivated")
	case errors.Is(err, auth.ErrAdminRequired):
		Forbidden(w, "Admin privilege required")
	case errors.Is(err, shop.ErrTerminalIPMismatch):
		Forbidden(w, "Request address is not bound to this shop")

	// Biometrics
	case errors.Is(err, tick.ErrBiometricsUnavailable):
		ServiceUnavailable(w, string(tick.CodeBiometricsRetry), "Biometrics service unavailable")
	case errors.Is(err, tick.ErrBiometricsMismatch):
		Forbidden(w, "Face does not match the employee")

	// Not found
	case errors.Is(err, network.ErrNetworkNotFound):
		NotFound(w, "Network not found")
	case errors.Is(err, shop.ErrShopNotFound):
		NotFound(w, "Shop not found")
	case errors.Is(err, shop.ErrWorkTypeNotFound):
		NotFound(w, "Work type not found")
	case errors.Is(err, shop.ErrTerminalNotFound):
		NotFound(w, "Terminal not found")
	case errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, employee.ErrNoEmployeeForUser):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmploymentNotFound):
		NotFound(w, "Employment not found")
	case errors.Is(err, workerday.ErrWorkerDayNotFound):
		NotFound(w, "Worker day not found")
	case errors.Is(err, vacancy.ErrVacancyNotFound):
		NotFound(w, "Vacancy not found")
	case errors.Is(err, tick.ErrTickNotFound):
		NotFound(w, "Tick not found")

	// Vacancy
	case errors.Is(err, vacancy.ErrInvalidTransition):
		Conflict(w, "Vacancy state transition not allowed")
	case errors.Is(err, vacancy.ErrPartitionBusy):
		Conflict(w, "Vacancy partition is being processed")
	case errors.Is(err, vacancy.ErrEmployeeRequired),
		errors.Is(err, vacancy.ErrNotEligible):
		BadRequest(w, err.Error(), nil)

	// Worker days
	case errors.Is(err, workerday.ErrInvariant):
		slog.Error("Worker day invariant violated", "error", err, "alert", true)
		InternalServerError(w, "Worker day invariant violated")
	case errors.Is(err, workerday.ErrInvalidInterval),
		errors.Is(err, workerday.ErrInvalidDetails),
		errors.Is(err, workerday.ErrNotFact):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, workerday.ErrOtherShop),
		errors.Is(err, workerday.ErrNoPlan):
		Conflict(w, err.Error())
	case errors.Is(err, workerday.ErrConflict),
		database.IsConflict(err):
		Conflict(w, "Concurrent update, retry the request")

	// Demand and coverage
	case errors.Is(err, demand.ErrPastBucket),
		errors.Is(err, demand.ErrMisaligned),
		errors.Is(err, demand.ErrOutOfHorizon),
		errors.Is(err, coverage.ErrEmptyWindow),
		errors.Is(err, coverage.ErrWindowTooLarge),
		errors.Is(err, coverage.ErrNoWorkTypes):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
