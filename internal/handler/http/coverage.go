package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/response"
)

type CoverageHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	WriteForecast(w http.ResponseWriter, r *http.Request)
}

type coverageHandlerImpl struct {
	coverageService coverage.CoverageService
}

func NewCoverageHandler(coverageService coverage.CoverageService) CoverageHandler {
	return &coverageHandlerImpl{
		coverageService: coverageService,
	}
}

// Get implements CoverageHandler.
func (h *coverageHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := coverage.CoverageRequest{
		ShopID:           query.Get("shop_id"),
		WorkTypeIDs:      query.Get("work_type_ids"),
		From:             query.Get("from"),
		To:               query.Get("to"),
		IncludeVacancies: getBoolQueryParam(r, "include_vacancies", true),
		UseFact:          getBoolQueryParam(r, "use_fact", false),
	}

	q, err := req.Validate()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	series, err := h.coverageService.Build(r.Context(), q)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, coverage.NewSeriesResponse(series))
}

// WriteForecast implements CoverageHandler.
func (h *coverageHandlerImpl) WriteForecast(w http.ResponseWriter, r *http.Request) {
	var req coverage.WriteForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	forecast, err := req.Validate()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.coverageService.WriteForecast(r.Context(), forecast); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Forecast saved", map[string]int{"buckets": len(forecast.Buckets)})
}

// getBoolQueryParam gets a bool query parameter with a default value
func getBoolQueryParam(r *http.Request, key string, defaultVal bool) bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}
