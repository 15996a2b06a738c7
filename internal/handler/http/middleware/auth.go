package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired turns a verified access token into a principal stored on the
// request context. It must run after jwtauth.Verifier.
func AuthRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if jwtService.IsTokenRevoked(jwtauth.TokenFromHeader(r)) {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			p, err := jwtService.PrincipalFromClaims(claims)
			if err != nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), p)))
		}
		return http.HandlerFunc(hfn)
	}
}
