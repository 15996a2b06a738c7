package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type WorkerDayHandler interface {
	Override(w http.ResponseWriter, r *http.Request)
}

type workerDayHandlerImpl struct {
	overrideService workerday.OverrideService
}

func NewWorkerDayHandler(overrideService workerday.OverrideService) WorkerDayHandler {
	return &workerDayHandlerImpl{
		overrideService: overrideService,
	}
}

// Override implements WorkerDayHandler.
func (h *workerDayHandlerImpl) Override(w http.ResponseWriter, r *http.Request) {
	p, err := principal.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req workerday.OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.WorkerDayID = chi.URLParam(r, "id")

	authorID := p.UserID
	if authorID == "" {
		authorID = p.TerminalID
	}

	result, err := h.overrideService.Override(r.Context(), req, authorID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Override recorded", result)
}
