package network

import "context"

type NetworkRepository interface {
	GetByID(ctx context.Context, id string) (Network, error)
	List(ctx context.Context) ([]Network, error)
}
