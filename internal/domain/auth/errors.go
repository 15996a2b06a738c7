package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid terminal id or secret")
	ErrTerminalInactive   = errors.New("terminal is deactivated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAdminRequired      = errors.New("admin privilege required")
)
