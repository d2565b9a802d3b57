package adapter

import (
	"context"
	"sync"

	"storefront/internal/model"
)

// Mock implements Backend for testing.
// Each method can be configured via function fields; calls are counted.
type Mock struct {
	ListProductsFunc   func(ctx context.Context) ([]model.Product, error)
	SearchProductsFunc func(ctx context.Context, text string) ([]model.Product, error)
	FetchCartFunc      func(ctx context.Context, token string) ([]model.CartRecord, error)
	UpsertCartFunc     func(ctx context.Context, token string, req model.UpsertRequest) ([]model.CartRecord, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *Mock) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked.
func (m *Mock) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// ListProducts calls the configured ListProductsFunc or returns an empty catalog.
func (m *Mock) ListProducts(ctx context.Context) ([]model.Product, error) {
	m.record("ListProducts")
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx)
	}
	return []model.Product{}, nil
}

// SearchProducts calls the configured SearchProductsFunc or returns NotFound.
func (m *Mock) SearchProducts(ctx context.Context, text string) ([]model.Product, error) {
	m.record("SearchProducts")
	if m.SearchProductsFunc != nil {
		return m.SearchProductsFunc(ctx, text)
	}
	return nil, model.NewNotFoundError("product", "")
}

// FetchCart calls the configured FetchCartFunc or returns an empty cart.
func (m *Mock) FetchCart(ctx context.Context, token string) ([]model.CartRecord, error) {
	m.record("FetchCart")
	if m.FetchCartFunc != nil {
		return m.FetchCartFunc(ctx, token)
	}
	return []model.CartRecord{}, nil
}

// UpsertCart calls the configured UpsertCartFunc or returns an error.
func (m *Mock) UpsertCart(ctx context.Context, token string, req model.UpsertRequest) ([]model.CartRecord, error) {
	m.record("UpsertCart")
	if m.UpsertCartFunc != nil {
		return m.UpsertCartFunc(ctx, token, req)
	}
	return nil, model.NewInternalError(nil)
}

// Verify Mock implements Backend interface at compile time.
var _ Backend = (*Mock)(nil)
