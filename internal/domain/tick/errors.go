package tick

import (
	"errors"
	"fmt"
)

var (
	ErrTickNotFound          = errors.New("tick not found")
	ErrBiometricsUnavailable = errors.New("biometrics service unavailable")
	ErrBiometricsMismatch    = errors.New("face does not match the employee")
)

// Code is a machine readable policy rejection reason.
type Code string

const (
	CodeUnauthorized         Code = "unauthorized"
	CodeGeoOutOfRange        Code = "geo-out-of-range"
	CodeShopNotGeoConfigured Code = "shop-not-geo-configured"
	CodeNoActiveEmployment   Code = "no-active-employment"
	CodeNoScheduledDay       Code = "no-scheduled-day"
	CodeDuplicate            Code = "duplicate"
	CodeInvalidShop          Code = "invalid-shop"
	CodeUnplannedWork        Code = "unplanned-work-not-allowed"
	CodeBiometricsRetry      Code = "biometrics-unavailable-retry"
)

// RejectionError is returned when a tick fails a network policy.
type RejectionError struct {
	Code   Code
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Retryable reports whether the caller may resend the same tick later.
func (e *RejectionError) Retryable() bool {
	return e.Code == CodeBiometricsRetry
}

func Reject(code Code, detail string) error {
	return &RejectionError{Code: code, Detail: detail}
}

// AsRejection extracts the rejection code from err.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
