package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type VacancyHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Run(w http.ResponseWriter, r *http.Request)
	Assign(w http.ResponseWriter, r *http.Request)
	Confirm(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
}

type vacancyHandlerImpl struct {
	vacancyService vacancy.VacancyService
}

func NewVacancyHandler(vacancyService vacancy.VacancyService) VacancyHandler {
	return &vacancyHandlerImpl{
		vacancyService: vacancyService,
	}
}

// List implements VacancyHandler.
func (h *vacancyHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := vacancy.ListRequest{
		ShopID:     query.Get("shop_id"),
		WorkTypeID: query.Get("work_type_id"),
		From:       query.Get("from"),
		To:         query.Get("to"),
	}

	items, err := h.vacancyService.List(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, items, &response.Meta{Count: len(items)})
}

// Run implements VacancyHandler. Without 'at' the cycle runs for now.
func (h *vacancyHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	var req vacancy.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	at := req.AtTime
	if at.IsZero() {
		at = time.Now()
	}

	result, err := h.vacancyService.RunShop(r.Context(), req.ShopID, at)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Assign implements VacancyHandler.
func (h *vacancyHandlerImpl) Assign(w http.ResponseWriter, r *http.Request) {
	var req vacancy.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.VacancyID = chi.URLParam(r, "id")

	result, err := h.vacancyService.Assign(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Vacancy assigned", result)
}

// Confirm implements VacancyHandler.
func (h *vacancyHandlerImpl) Confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.vacancyService.Confirm(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Vacancy confirmed", result)
}

// Cancel implements VacancyHandler.
func (h *vacancyHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.vacancyService.Cancel(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Vacancy cancelled", result)
}
