package principal

import (
	"context"
	"errors"
)

// Kind identifies who authenticated the request.
type Kind string

const (
	KindUser     Kind = "user"
	KindTerminal Kind = "terminal"
	KindShopIP   Kind = "shop_ip"
	KindSystem   Kind = "system"
)

func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindTerminal, KindShopIP, KindSystem:
		return true
	}
	return false
}

// Principal is the authenticated caller of an operation. Terminal and shop-IP
// principals are bound to exactly one shop.
type Principal struct {
	Kind       Kind
	UserID     string
	ShopID     string
	TerminalID string
	NetworkID  string
	Admin      bool
}

var ErrUnauthorized = errors.New("unauthorized")

// System is used by background ingestion.
func System(networkID string) Principal {
	return Principal{Kind: KindSystem, NetworkID: networkID, Admin: true}
}

// ShopBound reports whether the principal carries its own shop binding.
func (p Principal) ShopBound() bool {
	return (p.Kind == KindTerminal || p.Kind == KindShopIP) && p.ShopID != ""
}

type ctxKey struct{}

func WithContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	if !ok || !p.Kind.Valid() {
		return Principal{}, ErrUnauthorized
	}
	return p, nil
}
