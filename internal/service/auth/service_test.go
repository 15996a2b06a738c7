package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/wfm-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	terminalID = "8f2b1c4e-2a7d-4c1b-9f0e-3d5a6b7c8d9e"
	browserID  = "1a2b3c4d-5e6f-4a8b-9c0d-1e2f3a4b5c6d"
	retiredID  = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
	testSecret = "test-secret-key-for-jwt"
)

func newAuthService(t *testing.T) (auth.AuthService, jwt.Service) {
	t.Helper()
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)

	s := memory.NewStore()
	s.AddShop(shop.Shop{ID: "shop-1", NetworkID: "net-1", Code: "S1"})
	ip := "10.0.0.7"
	s.AddTerminal(shop.Terminal{ID: terminalID, ShopID: "shop-1", Kind: shop.TerminalKindTerminal, SecretHash: hash, Active: true})
	s.AddTerminal(shop.Terminal{ID: browserID, ShopID: "shop-1", Kind: shop.TerminalKindShopIP, SecretHash: hash, AllowedIP: &ip, Active: true})
	s.AddTerminal(shop.Terminal{ID: retiredID, ShopID: "shop-1", Kind: shop.TerminalKindTerminal, SecretHash: hash})

	jwtService := jwt.NewJWTService(testSecret, time.Hour, 24*time.Hour)
	return NewAuthService(s.Terminals(), s.Shops(), jwtService), jwtService
}

func TestAuthService_TerminalLogin(t *testing.T) {
	svc, jwtService := newAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      auth.TerminalLoginRequest
		remoteIP string
		wantErr  error
		wantKind principal.Kind
	}{
		{
			name:     "terminal",
			req:      auth.TerminalLoginRequest{TerminalID: terminalID, Secret: "s3cret"},
			wantKind: principal.KindTerminal,
		},
		{
			name:     "shop-ip browser on its address",
			req:      auth.TerminalLoginRequest{TerminalID: browserID, Secret: "s3cret"},
			remoteIP: "10.0.0.7",
			wantKind: principal.KindShopIP,
		},
		{
			name:     "shop-ip browser elsewhere",
			req:      auth.TerminalLoginRequest{TerminalID: browserID, Secret: "s3cret"},
			remoteIP: "10.0.0.8",
			wantErr:  shop.ErrTerminalIPMismatch,
		},
		{
			name:    "wrong secret",
			req:     auth.TerminalLoginRequest{TerminalID: terminalID, Secret: "nope"},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:    "unknown terminal",
			req:     auth.TerminalLoginRequest{TerminalID: "00000000-0000-4000-8000-000000000000", Secret: "s3cret"},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:    "deactivated terminal",
			req:     auth.TerminalLoginRequest{TerminalID: retiredID, Secret: "s3cret"},
			wantErr: auth.ErrTerminalInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.TerminalLogin(ctx, tt.req, tt.remoteIP)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "shop-1", resp.ShopID)

			token, err := jwtService.JWTAuth().Decode(resp.AccessToken)
			require.NoError(t, err)
			claims, err := token.AsMap(ctx)
			require.NoError(t, err)
			p, err := jwtService.PrincipalFromClaims(claims)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Equal(t, "net-1", p.NetworkID)
			assert.True(t, p.ShopBound())
		})
	}
}

func TestAuthService_TerminalLoginValidation(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.TerminalLogin(context.Background(), auth.TerminalLoginRequest{TerminalID: "x"}, "")

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.ToMap(), "terminal_id")
	assert.Contains(t, errs.ToMap(), "secret")
}
