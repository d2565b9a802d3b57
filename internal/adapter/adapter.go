// Package adapter defines the interface to the storefront backend.
// The cart and search components depend on this interface, never on HTTP.
package adapter

import (
	"context"

	"storefront/internal/model"
)

// Backend abstracts the storefront REST API.
//
// All methods return already-deserialized values; transport failures and
// non-2xx responses come back as *model.APIError.
type Backend interface {
	// ListProducts returns the full catalog (GET /products).
	ListProducts(ctx context.Context) ([]model.Product, error)

	// SearchProducts returns products matching text (GET /products/search?value=).
	// A search with no matches returns a NotFound error, as the backend does.
	SearchProducts(ctx context.Context, text string) ([]model.Product, error)

	// FetchCart returns the shopper's cart records (GET /cart).
	// Requires a bearer token.
	FetchCart(ctx context.Context, token string) ([]model.CartRecord, error)

	// UpsertCart sets the quantity of one product (POST /cart) and returns the
	// server's full updated cart. Quantity <= 0 removes the line.
	UpsertCart(ctx context.Context, token string, req model.UpsertRequest) ([]model.CartRecord, error)
}
