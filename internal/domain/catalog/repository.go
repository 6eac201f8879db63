package catalog

import (
	"context"
)

// Repository defines the interface for catalog data access
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	ListVariantsByProduct(ctx context.Context, productID string) ([]*Variant, error)
}
