// Package reconcile merges the server-held cart with the product catalog.
// Everything here is pure: no I/O, deterministic for given inputs.
//
// Orphan policy: a cart record whose product is missing from the catalog
// (deleted or renamed server-side) is left out of the reconciled view rather
// than failing the whole cart. Orphans reports those records so callers can
// log them; the records themselves stay on the server untouched.
package reconcile

import (
	"storefront/internal/catalog"
	"storefront/internal/model"
)

// Reconcile builds display line items from cart records and the catalog.
//
// Algorithm:
//  1. For each record, in input order, look up its product in the index
//  2. Found → emit a LineItem with the record's quantity and product attributes
//  3. Not found → skip (see package orphan policy)
//
// A nil or empty records slice yields an empty, non-nil slice.
func Reconcile(records []model.CartRecord, idx *catalog.Index) []model.LineItem {
	items := make([]model.LineItem, 0, len(records))
	for _, rec := range records {
		p, ok := idx.Lookup(rec.ProductID)
		if !ok {
			continue
		}
		items = append(items, model.LineItem{
			ProductID: rec.ProductID,
			Quantity:  rec.Quantity,
			Name:      p.Name,
			Category:  p.Category,
			UnitCost:  p.UnitCost,
			Rating:    p.Rating,
			ImageURL:  p.ImageURL,
		})
	}
	return items
}

// Orphans returns the IDs of records that Reconcile would drop, in input order.
func Orphans(records []model.CartRecord, idx *catalog.Index) []string {
	var ids []string
	for _, rec := range records {
		if _, ok := idx.Lookup(rec.ProductID); !ok {
			ids = append(ids, rec.ProductID)
		}
	}
	return ids
}

// TotalValue returns the sum of UnitCost * Quantity over items.
// Zero-quantity items contribute nothing. The sum is taken in cents.
func TotalValue(items []model.LineItem) float64 {
	var cents int64
	for _, item := range items {
		cents += model.LineCents(item.UnitCost, item.Quantity)
	}
	return model.FromCents(cents)
}

// TotalCount returns the number of line items, i.e. distinct products.
// It is deliberately not the sum of quantities.
func TotalCount(items []model.LineItem) int {
	return len(items)
}
