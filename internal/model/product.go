// Package model defines the storefront domain types shared by the catalog,
// cart and search components, along with the error taxonomy they report.
package model

// Product is a purchasable catalog entry. Products are owned by the catalog
// and never modified by the client.
// JSON tags follow the backend's wire format.
type Product struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	UnitCost float64 `json:"cost"`
	Rating   int     `json:"rating"` // 0..5
	ImageURL string  `json:"image"`
}

// CartRecord is one line of the server-held cart.
// The server guarantees at most one record per ProductID.
type CartRecord struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"qty"`
}

// LineItem is a CartRecord merged with its catalog Product.
// Line items are derived on every reconciliation and replaced wholesale;
// they are never persisted or patched in place.
type LineItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"qty"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	UnitCost  float64 `json:"cost"`
	Rating    int     `json:"rating"`
	ImageURL  string  `json:"image"`
}

// Subtotal returns UnitCost * Quantity.
func (li LineItem) Subtotal() float64 {
	return li.UnitCost * float64(li.Quantity)
}

// UpsertRequest is the body of POST /cart.
// A Quantity of zero or less asks the server to delete the line.
type UpsertRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"qty"`
}

// HasProduct reports whether records contains a line for productID.
func HasProduct(records []CartRecord, productID string) bool {
	for _, r := range records {
		if r.ProductID == productID {
			return true
		}
	}
	return false
}

// RecordsFrom converts line items back to the cart records they were built from.
// Used by callers that only kept the reconciled view.
func RecordsFrom(items []LineItem) []CartRecord {
	records := make([]CartRecord, 0, len(items))
	for _, item := range items {
		records = append(records, CartRecord{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return records
}
