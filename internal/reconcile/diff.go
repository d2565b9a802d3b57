package reconcile

import "storefront/internal/model"

// CartDiff describes how a refreshed cart differs from the previous one.
// It is informational only: the refreshed cart always replaces the old one.
type CartDiff struct {
	Added   []string       // Products in after but not before
	Removed []string       // Products in before but not after
	Changed []QuantityDiff // Products in both with different quantities
}

// QuantityDiff records a quantity change for one product.
type QuantityDiff struct {
	ProductID   string
	OldQuantity int
	NewQuantity int
}

// IsEmpty returns true if the two carts hold the same lines.
func (d *CartDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffItems compares two reconciled carts by ProductID.
// Added and Changed follow after's order; Removed follows before's order.
func DiffItems(before, after []model.LineItem) *CartDiff {
	diff := &CartDiff{}

	beforeQty := make(map[string]int, len(before))
	for _, item := range before {
		beforeQty[item.ProductID] = item.Quantity
	}
	afterQty := make(map[string]int, len(after))
	for _, item := range after {
		afterQty[item.ProductID] = item.Quantity
	}

	for _, item := range after {
		old, existed := beforeQty[item.ProductID]
		switch {
		case !existed:
			diff.Added = append(diff.Added, item.ProductID)
		case old != item.Quantity:
			diff.Changed = append(diff.Changed, QuantityDiff{
				ProductID:   item.ProductID,
				OldQuantity: old,
				NewQuantity: item.Quantity,
			})
		}
	}

	for _, item := range before {
		if _, kept := afterQty[item.ProductID]; !kept {
			diff.Removed = append(diff.Removed, item.ProductID)
		}
	}

	return diff
}
