package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	shop.TerminalRepository
	shop.ShopRepository
	jwt.Service
}

func NewAuthService(terminalRepository shop.TerminalRepository, shopRepository shop.ShopRepository, jwtService jwt.Service) auth.AuthService {
	return &AuthServiceImpl{
		TerminalRepository: terminalRepository,
		ShopRepository:     shopRepository,
		Service:            jwtService,
	}
}

// HashSecret returns the bcrypt hash stored for a terminal secret.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// TerminalLogin implements auth.AuthService.
func (a *AuthServiceImpl) TerminalLogin(ctx context.Context, req auth.TerminalLoginRequest, remoteIP string) (auth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	terminal, err := a.TerminalRepository.GetByID(ctx, req.TerminalID)
	if err != nil {
		if errors.Is(err, shop.ErrTerminalNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to get terminal: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(terminal.SecretHash), []byte(req.Secret)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if !terminal.Active {
		return auth.TokenResponse{}, auth.ErrTerminalInactive
	}

	kind := principal.KindTerminal
	if terminal.Kind == shop.TerminalKindShopIP {
		kind = principal.KindShopIP
		if terminal.AllowedIP == nil || *terminal.AllowedIP != remoteIP {
			slog.Warn("Shop-IP login from unbound address", "terminal_id", terminal.ID, "remote_ip", remoteIP)
			return auth.TokenResponse{}, shop.ErrTerminalIPMismatch
		}
	}

	sh, err := a.ShopRepository.GetByID(ctx, terminal.ShopID)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to get shop of terminal %s: %w", terminal.ID, err)
	}

	p := principal.Principal{
		Kind:       kind,
		ShopID:     sh.ID,
		TerminalID: terminal.ID,
		NetworkID:  sh.NetworkID,
	}
	token, expiresAt, err := a.Service.GenerateAccessToken(p)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	return auth.TokenResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
		ShopID:      sh.ID,
	}, nil
}
