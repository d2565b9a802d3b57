package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/session"
)

// cartResponse is the reconciled cart returned by every cart route.
type cartResponse struct {
	Items      []model.LineItem `json:"items"`
	TotalValue float64          `json:"totalValue"`
	TotalCount int              `json:"totalCount"`
}

func newCartResponse(items []model.LineItem) *cartResponse {
	if items == nil {
		items = []model.LineItem{}
	}
	return &cartResponse{
		Items:      items,
		TotalValue: reconcile.TotalValue(items),
		TotalCount: reconcile.TotalCount(items),
	}
}

// addRequest is the body of POST /cart.
type addRequest struct {
	ProductID string `json:"productId"`
}

// setQuantityRequest is the body of PUT /cart/{productId}.
// qty is a pointer so a missing field is distinguishable from a removal.
type setQuantityRequest struct {
	Quantity *int `json:"qty"`
}

// === HTTP Handlers ===

// handleListProducts returns the full catalog.
// GET /products
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.backend.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

// handleSearchProducts filters the catalog by free text.
// GET /products/search?value=<text>
func (h *Handler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.searchProducts(r.Context(), r.URL.Query().Get("value"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

// handleGetCart returns the caller's reconciled cart.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	resp, err := h.getCart(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleAddToCart adds one unit of a product not yet in the cart.
// POST /cart
func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		h.writeError(w, model.NewValidationError("productId", "required"))
		return
	}

	resp, err := h.addToCart(r.Context(), session.FromContext(r.Context()), req.ProductID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleSetQuantity sets a cart line's quantity. Zero or less removes it.
// PUT /cart/{productId}
func (h *Handler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Quantity == nil {
		h.writeError(w, model.NewValidationError("qty", "required"))
		return
	}

	resp, err := h.setQuantity(r.Context(), session.FromContext(r.Context()), productID, *req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// === Operations shared by REST and MCP ===

// searchProducts treats empty text as "no filter" and returns the full catalog.
func (h *Handler) searchProducts(ctx context.Context, text string) ([]model.Product, error) {
	if strings.TrimSpace(text) == "" {
		return h.backend.ListProducts(ctx)
	}
	return h.backend.SearchProducts(ctx, text)
}

func (h *Handler) getCart(ctx context.Context, sess session.Session) (*cartResponse, error) {
	if !sess.Authenticated() {
		return newCartResponse(nil), nil
	}
	idx, records, err := h.loadState(ctx, sess)
	if err != nil {
		return nil, err
	}
	if orphans := reconcile.Orphans(records, idx); len(orphans) > 0 {
		h.logger.Warn("cart references products missing from catalog",
			slog.Any("product_ids", orphans))
	}
	return newCartResponse(reconcile.Reconcile(records, idx)), nil
}

func (h *Handler) addToCart(ctx context.Context, sess session.Session, productID string) (*cartResponse, error) {
	if !sess.Authenticated() {
		return nil, model.NewUnauthenticatedError()
	}
	idx, records, err := h.loadState(ctx, sess)
	if err != nil {
		return nil, err
	}
	items, err := h.gateway.AddToCart(ctx, sess, records, idx, productID)
	if err != nil {
		return nil, h.mutationError(err, items)
	}
	return newCartResponse(items), nil
}

func (h *Handler) setQuantity(ctx context.Context, sess session.Session, productID string, qty int) (*cartResponse, error) {
	if !sess.Authenticated() {
		return nil, model.NewUnauthenticatedError()
	}
	products, err := h.backend.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	items, err := h.gateway.SetQuantity(ctx, sess, nil, catalog.NewIndex(products), productID, qty)
	if err != nil {
		return nil, h.mutationError(err, items)
	}
	return newCartResponse(items), nil
}

// loadState fetches the catalog and the caller's cart concurrently.
func (h *Handler) loadState(ctx context.Context, sess session.Session) (*catalog.Index, []model.CartRecord, error) {
	var (
		products []model.Product
		records  []model.CartRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = h.backend.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = h.backend.FetchCart(gctx, sess.Token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return catalog.NewIndex(products), records, nil
}

// mutationError logs the refreshed cart a NotFound carries. The client
// re-reads the cart with GET /cart.
func (h *Handler) mutationError(err error, refreshed []model.LineItem) error {
	if errors.Is(err, model.ErrNotFound) && refreshed != nil {
		h.logger.Info("cart refreshed after not-found mutation",
			slog.Int("line_items", len(refreshed)))
	}
	return err
}
