package jwt

import (
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TypeAccess = "access"
	TypeStream = "stream"
)

type Service interface {
	// GenerateAccessToken issues a token carrying the principal claims.
	GenerateAccessToken(p principal.Principal) (token string, expiresAt int64, err error)
	// PrincipalFromClaims rebuilds the principal from verified access-token claims.
	PrincipalFromClaims(claims map[string]interface{}) (principal.Principal, error)
	GenerateStreamToken(p principal.Principal, topic string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (topic string, err error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeToken(token string)
	IsTokenRevoked(token string) bool
}

type JWTService struct {
	accessTTL     map[principal.Kind]time.Duration
	tokenAuth     *jwtauth.JWTAuth
	revokedTokens map[string]int64
	mu            sync.RWMutex
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService builds the token service. userTTL applies to user tokens;
// deviceTTL to terminal, shop-IP and system tokens.
func NewJWTService(secretKey string, userTTL, deviceTTL time.Duration) Service {
	return &JWTService{
		accessTTL: map[principal.Kind]time.Duration{
			principal.KindUser:     userTTL,
			principal.KindTerminal: deviceTTL,
			principal.KindShopIP:   deviceTTL,
			principal.KindSystem:   deviceTTL,
		},
		tokenAuth:     jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		revokedTokens: make(map[string]int64),
	}
}

func (j *JWTService) GenerateAccessToken(p principal.Principal) (token string, expiresAt int64, err error) {
	if !p.Kind.Valid() {
		return "", 0, fmt.Errorf("invalid principal kind %q", p.Kind)
	}
	expiresAt = time.Now().Add(j.accessTTL[p.Kind]).Unix()

	claims := map[string]interface{}{
		"principal_kind": string(p.Kind),
		"user_id":        nilIfEmpty(p.UserID),
		"shop_id":        nilIfEmpty(p.ShopID),
		"terminal_id":    nilIfEmpty(p.TerminalID),
		"network_id":     p.NetworkID,
		"admin":          p.Admin,
		"type":           TypeAccess,
		"exp":            expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

func (j *JWTService) PrincipalFromClaims(claims map[string]interface{}) (principal.Principal, error) {
	if t, _ := claims["type"].(string); t != TypeAccess {
		return principal.Principal{}, principal.ErrUnauthorized
	}
	kind, _ := claims["principal_kind"].(string)
	p := principal.Principal{
		Kind:       principal.Kind(kind),
		UserID:     stringClaim(claims, "user_id"),
		ShopID:     stringClaim(claims, "shop_id"),
		TerminalID: stringClaim(claims, "terminal_id"),
		NetworkID:  stringClaim(claims, "network_id"),
	}
	p.Admin, _ = claims["admin"].(bool)

	if !p.Kind.Valid() || p.NetworkID == "" {
		return principal.Principal{}, principal.ErrUnauthorized
	}
	if p.Kind == principal.KindUser && p.UserID == "" {
		return principal.Principal{}, principal.ErrUnauthorized
	}
	if (p.Kind == principal.KindTerminal || p.Kind == principal.KindShopIP) && p.ShopID == "" {
		return principal.Principal{}, principal.ErrUnauthorized
	}
	return p, nil
}

func (j *JWTService) RevokeToken(token string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.revokedTokens[token] = time.Now().Unix()
}

func (j *JWTService) IsTokenRevoked(token string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[token]
	return revoked
}

// GenerateStreamToken generates a short-lived token for event stream connections
func (j *JWTService) GenerateStreamToken(p principal.Principal, topic string) (token string, expiresIn int, err error) {
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"network_id": p.NetworkID,
		"topic":      topic,
		"type":       TypeStream,
		"exp":        expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateStreamToken validates a stream token and returns its topic
func (j *JWTService) ValidateStreamToken(tokenString string) (topic string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TypeStream {
		return "", jwt.ErrInvalidJWT()
	}

	topicVal, ok := token.Get("topic")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	topic, ok = topicVal.(string)
	if !ok || topic == "" {
		return "", jwt.ErrInvalidJWT()
	}

	return topic, nil
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func stringClaim(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}
