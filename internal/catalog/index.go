// Package catalog provides a read-only lookup over the fetched product list.
package catalog

import "storefront/internal/model"

// Index maps product IDs to products.
// An Index is immutable after construction and safe for concurrent reads.
type Index struct {
	products []model.Product
	byID     map[string]int
}

// NewIndex builds an index over products, keeping their original order.
// If an ID appears more than once the first occurrence wins.
func NewIndex(products []model.Product) *Index {
	idx := &Index{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if _, dup := idx.byID[p.ID]; dup {
			continue
		}
		idx.byID[p.ID] = len(idx.products)
		idx.products = append(idx.products, p)
	}
	return idx
}

// Lookup returns the product with the given ID.
// A nil Index behaves as an empty catalog.
func (idx *Index) Lookup(id string) (model.Product, bool) {
	if idx == nil {
		return model.Product{}, false
	}
	i, ok := idx.byID[id]
	if !ok {
		return model.Product{}, false
	}
	return idx.products[i], true
}

// Products returns a copy of the indexed products in their original order.
func (idx *Index) Products() []model.Product {
	if idx == nil {
		return []model.Product{}
	}
	out := make([]model.Product, len(idx.products))
	copy(out, idx.products)
	return out
}

// Len returns the number of distinct products.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.products)
}
