package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/response"
)

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := principal.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if !p.Admin {
			response.HandleError(w, auth.ErrAdminRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
