package auth

import "github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"

type TerminalLoginRequest struct {
	TerminalID string `json:"terminal_id"`
	Secret     string `json:"secret"`
}

func (r *TerminalLoginRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.TerminalID) {
		errs.Add("terminal_id", "terminal_id must be a valid UUID")
	}
	if validator.IsEmpty(r.Secret) {
		errs.Add("secret", "secret is required")
	}
	if len(r.Secret) > 72 {
		errs.Add("secret", "secret must not exceed 72 characters")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	TokenType   string `json:"token_type"`
	ShopID      string `json:"shop_id"`
}

type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Topic     string `json:"topic"`
}
