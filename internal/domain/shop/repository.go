package shop

import "context"

type ShopRepository interface {
	GetByID(ctx context.Context, id string) (Shop, error)
	GetByCode(ctx context.Context, networkID, code string) (Shop, error)
	GetByURVZone(ctx context.Context, zone string) (Shop, error)
	ListByNetwork(ctx context.Context, networkID string) ([]Shop, error)
}

type WorkTypeRepository interface {
	GetByID(ctx context.Context, id string) (WorkType, error)
	ListByShop(ctx context.Context, shopID string) ([]WorkType, error)
	// FindByName returns the work type of shopID sharing a name with another shop's type.
	FindByName(ctx context.Context, shopID, name string) (WorkType, error)
}

type TerminalRepository interface {
	GetByID(ctx context.Context, id string) (Terminal, error)
}
