package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/response"
)

type TickHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
}

type tickHandlerImpl struct {
	tickService tick.TickService
}

func NewTickHandler(tickService tick.TickService) TickHandler {
	return &tickHandlerImpl{
		tickService: tickService,
	}
}

// Create accepts a JSON body, or a multipart form with the JSON in the
// 'data' field and an optional 'photo' file.
func (h *tickHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req tick.CreateTickRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		// Parse multipart form (max 10MB)
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			slog.Error("Failed to parse multipart form", "error", err)
			response.BadRequest(w, "Failed to parse form data", nil)
			return
		}

		dataJSON := r.FormValue("data")
		if dataJSON == "" {
			response.BadRequest(w, "Field 'data' is required", nil)
			return
		}
		if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
			slog.Error("Failed to unmarshal JSON data", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}

		file, fileHeader, err := r.FormFile("photo")
		switch {
		case err == nil:
			defer file.Close()
			req.Photo = file
			req.PhotoHeader = fileHeader
		case err != http.ErrMissingFile:
			slog.Error("Failed to get file from form", "error", err)
			response.BadRequest(w, "Invalid file upload", nil)
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.tickService.Create(r.Context(), p, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Duplicate {
		response.SuccessWithMessage(w, "Tick already recorded", result)
		return
	}
	response.Created(w, "Tick recorded", result)
}
