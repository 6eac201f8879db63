package repository

import (
	"context"
	"sync"

	"github.com/subcycle/subcycle/internal/domain/catalog"
	ierr "github.com/subcycle/subcycle/internal/errors"
)

// InMemoryCatalogRepository is a thread-safe in-process catalog store.
type InMemoryCatalogRepository struct {
	mu       sync.RWMutex
	products map[string]*catalog.Product
	variants map[string]*catalog.Variant
}

// NewInMemoryCatalogRepository creates an empty catalog repository.
func NewInMemoryCatalogRepository() *InMemoryCatalogRepository {
	return &InMemoryCatalogRepository{
		products: make(map[string]*catalog.Product),
		variants: make(map[string]*catalog.Variant),
	}
}

// SeedProduct inserts a product and its variants. Seeding the same product
// id again adds the variants to the stored record.
func (r *InMemoryCatalogRepository) SeedProduct(product *catalog.Product, variants ...*catalog.Variant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[product.ID]
	if !ok {
		stored = product
		r.products[product.ID] = product
	}
	for _, v := range variants {
		v.ProductID = stored.ID
		r.variants[v.ID] = v
		stored.VariantIDs = appendUnique(stored.VariantIDs, v.ID)
	}
}

func (r *InMemoryCatalogRepository) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, ierr.NewError("product not found").
			WithHintf("Product with ID %s was not found", id).
			WithReportableDetails(map[string]any{
				"product_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return product, nil
}

func (r *InMemoryCatalogRepository) GetVariant(ctx context.Context, id string) (*catalog.Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	variant, ok := r.variants[id]
	if !ok {
		return nil, ierr.NewError("variant not found").
			WithHintf("Variant with ID %s was not found", id).
			WithReportableDetails(map[string]any{
				"variant_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return variant, nil
}

func (r *InMemoryCatalogRepository) ListVariantsByProduct(ctx context.Context, productID string) ([]*catalog.Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[productID]
	if !ok {
		return nil, ierr.NewError("product not found").
			WithReportableDetails(map[string]any{
				"product_id": productID,
			}).
			Mark(ierr.ErrNotFound)
	}

	variants := make([]*catalog.Variant, 0, len(product.VariantIDs))
	for _, id := range product.VariantIDs {
		if v, ok := r.variants[id]; ok {
			variants = append(variants, v)
		}
	}
	return variants, nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
