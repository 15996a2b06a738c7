package auth

import (
	"context"
)

type AuthService interface {
	// TerminalLogin exchanges terminal credentials for a shop-bound access
	// token. remoteIP is checked against shop-IP terminals.
	TerminalLogin(ctx context.Context, req TerminalLoginRequest, remoteIP string) (TokenResponse, error)
}
