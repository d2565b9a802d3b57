// Package cart applies cart mutations against the backend.
//
// The gateway never computes the next cart locally. Every successful
// mutation returns the server's full cart, and that is what gets reconciled
// and handed back. Overlapping calls are not queued; each response is
// authoritative, so the caller converges on the server's last commit.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/adapter"
	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/session"
)

// MutateOptions tunes a single mutation.
type MutateOptions struct {
	// PreventDuplicate refuses the mutation when the product is already in
	// the cart. Set by the catalog's "Add to Cart" action; the cart-panel
	// stepper leaves it off so it can increment existing lines.
	PreventDuplicate bool
}

// Gateway validates and sends cart mutations.
type Gateway struct {
	backend adapter.Backend
	logger  *slog.Logger
}

// NewGateway creates a Gateway over backend.
func NewGateway(backend adapter.Backend, logger *slog.Logger) *Gateway {
	return &Gateway{backend: backend, logger: logger}
}

// Mutate sets productID's quantity in the cart.
//
// Preconditions are checked before any request, in order:
//  1. sess must be authenticated, else Unauthenticated
//  2. with PreventDuplicate, productID must not be in current, else DuplicateItem
//
// A quantity of zero or less is a removal request and is sent as-is.
//
// On success the server's returned cart is reconciled against idx and
// returned. On failure the error is classified (*model.APIError) and the
// returned items are nil, so the caller keeps its prior state. The one
// exception is NotFound: the product vanished server-side, so the cart is
// re-fetched and, if that works, returned alongside the error.
func (g *Gateway) Mutate(
	ctx context.Context,
	sess session.Session,
	current []model.CartRecord,
	idx *catalog.Index,
	productID string,
	quantity int,
	opts MutateOptions,
) ([]model.LineItem, error) {
	if !sess.Authenticated() {
		return nil, model.NewUnauthenticatedError()
	}
	if opts.PreventDuplicate && model.HasProduct(current, productID) {
		return nil, model.NewDuplicateItemError(productID)
	}

	records, err := g.backend.UpsertCart(ctx, sess.Token, model.UpsertRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		g.logger.Warn("cart mutation failed",
			slog.String("product_id", productID),
			slog.Int("quantity", quantity),
			slog.String("error", err.Error()))

		if errors.Is(err, model.ErrNotFound) {
			return g.refresh(ctx, sess, idx), err
		}
		return nil, classify(err)
	}

	g.logOrphans(records, idx)
	items := reconcile.Reconcile(records, idx)
	if current != nil {
		g.logDrift(productID, reconcile.Reconcile(current, idx), items)
	}
	return items, nil
}

// AddToCart adds one unit of a product that is not yet in the cart.
func (g *Gateway) AddToCart(ctx context.Context, sess session.Session, current []model.CartRecord, idx *catalog.Index, productID string) ([]model.LineItem, error) {
	return g.Mutate(ctx, sess, current, idx, productID, 1, MutateOptions{PreventDuplicate: true})
}

// SetQuantity sets the quantity of a cart line, adding it if absent.
func (g *Gateway) SetQuantity(ctx context.Context, sess session.Session, current []model.CartRecord, idx *catalog.Index, productID string, quantity int) ([]model.LineItem, error) {
	return g.Mutate(ctx, sess, current, idx, productID, quantity, MutateOptions{})
}

// Load fetches the cart and reconciles it. An anonymous session has no
// cart and yields an empty slice without a request.
func (g *Gateway) Load(ctx context.Context, sess session.Session, idx *catalog.Index) ([]model.LineItem, error) {
	if !sess.Authenticated() {
		return []model.LineItem{}, nil
	}

	records, err := g.backend.FetchCart(ctx, sess.Token)
	if err != nil {
		return nil, classify(err)
	}

	g.logOrphans(records, idx)
	return reconcile.Reconcile(records, idx), nil
}

// refresh re-reads the cart after a NotFound. Returns nil if that fails too.
func (g *Gateway) refresh(ctx context.Context, sess session.Session, idx *catalog.Index) []model.LineItem {
	items, err := g.Load(ctx, sess, idx)
	if err != nil {
		g.logger.Warn("cart refresh after not-found failed",
			slog.String("error", err.Error()))
		return nil
	}
	return items
}

func (g *Gateway) logOrphans(records []model.CartRecord, idx *catalog.Index) {
	if orphans := reconcile.Orphans(records, idx); len(orphans) > 0 {
		g.logger.Warn("cart references products missing from catalog",
			slog.Any("product_ids", orphans))
	}
}

// logDrift reports lines the server changed besides productID, which means
// the cart was edited elsewhere since current was read.
func (g *Gateway) logDrift(productID string, before, after []model.LineItem) {
	diff := reconcile.DiffItems(before, after)
	added := without(diff.Added, productID)
	removed := without(diff.Removed, productID)
	var changed []string
	for _, c := range diff.Changed {
		if c.ProductID != productID {
			changed = append(changed, c.ProductID)
		}
	}
	if len(added)+len(removed)+len(changed) == 0 {
		return
	}
	g.logger.Info("server cart differs from local copy",
		slog.Any("added", added),
		slog.Any("removed", removed),
		slog.Any("changed", changed))
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// classify guarantees the caller an APIError.
func classify(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.NewNetworkError(err)
	}
	return model.NewInternalError(fmt.Errorf("cart backend: %w", err))
}
