package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	var invalid validator.ValidationErrors
	invalid.Add("shop_id", "shop_id must be a valid UUID")

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
		wantRetry bool
	}{
		{"validation", invalid, http.StatusUnprocessableEntity, "VALIDATION_ERROR", false},
		{"geo rejection", tick.Reject(tick.CodeGeoOutOfRange, "1200m"), http.StatusForbidden, "geo-out-of-range", false},
		{"duplicate rejection", tick.Reject(tick.CodeDuplicate, ""), http.StatusConflict, "duplicate", false},
		{"invalid shop", tick.Reject(tick.CodeInvalidShop, "S9"), http.StatusUnprocessableEntity, "invalid-shop", false},
		{"wrapped rejection", fmt.Errorf("intake: %w", tick.Reject(tick.CodeNoScheduledDay, "")), http.StatusForbidden, "no-scheduled-day", false},
		{"biometrics retry", tick.Reject(tick.CodeBiometricsRetry, "timeout"), http.StatusServiceUnavailable, "biometrics-unavailable-retry", true},
		{"biometrics down", tick.ErrBiometricsUnavailable, http.StatusServiceUnavailable, "biometrics-unavailable-retry", true},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED", false},
		{"ip mismatch", shop.ErrTerminalIPMismatch, http.StatusForbidden, "FORBIDDEN", false},
		{"unknown shop", shop.ErrShopNotFound, http.StatusNotFound, "NOT_FOUND", false},
		{"bad transition", vacancy.ErrInvalidTransition, http.StatusConflict, "CONFLICT", false},
		{"db conflict", fmt.Errorf("%w: unique", database.ErrConflict), http.StatusConflict, "CONFLICT", false},
		{"invariant", workerday.ErrInvariant, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", false},
		{"window too large", coverage.ErrWindowTooLarge, http.StatusBadRequest, "BAD_REQUEST", false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantError, body.Error.Code)
			assert.Equal(t, tt.wantRetry, body.Error.Retry)
		})
	}
}
