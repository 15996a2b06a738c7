package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type AuthHandler interface {
	TerminalLogin(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	jwtService  jwt.Service
	authService auth.AuthService
}

func NewAuthHandler(jwtService jwt.Service, authService auth.AuthService) AuthHandler {
	return &AuthHandlerImpl{
		jwtService:  jwtService,
		authService: authService,
	}
}

// TerminalLogin implements AuthHandler.
func (a *AuthHandlerImpl) TerminalLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.TerminalLoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("TerminalLogin decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := a.authService.TerminalLogin(r.Context(), req, remoteIP(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Terminal authenticated", result)
}

// Logout implements AuthHandler.
func (a *AuthHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	token := jwtauth.TokenFromHeader(r)
	if token == "" {
		response.Unauthorized(w, "Missing token")
		return
	}

	a.jwtService.RevokeToken(token)
	response.SuccessWithMessage(w, "Logged out", nil)
}

// remoteIP strips the port from RemoteAddr, which RealIP has already
// rewritten when the service runs behind a proxy.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
