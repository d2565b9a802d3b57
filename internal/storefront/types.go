package storefront

import (
	"storefront/internal/model"
	"storefront/internal/reconcile"
)

// Variant is the severity of a Notification.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantWarning Variant = "warning"
	VariantError   Variant = "error"
)

// Notification is a message for the shopper.
type Notification struct {
	Variant Variant
	Message string
}

// Notifier receives notifications. It may be called from the debounce
// timer's goroutine and must not call back into the Page.
type Notifier func(Notification)

// Snapshot is a point-in-time copy of the page state.
type Snapshot struct {
	Catalog []model.Product  // full catalog, original order
	View    []model.Product  // products currently shown (search-filtered)
	Items   []model.LineItem // reconciled cart
	Query   string           // last text typed into the search box
	Loading bool

	TotalValue float64 // Σ unit cost × quantity
	TotalCount int     // distinct products in the cart
	Summary    Summary
}

// Summary is the order summary shown on the checkout view.
// Shipping is always free.
type Summary struct {
	Products int
	Subtotal float64
	Shipping float64
	Total    float64
}

func newSummary(items []model.LineItem) Summary {
	subtotal := reconcile.TotalValue(items)
	return Summary{
		Products: reconcile.TotalCount(items),
		Subtotal: subtotal,
		Shipping: 0,
		Total:    subtotal,
	}
}
