// Package storefront holds the state of the products page: the catalog, the
// search-filtered view of it, and the shopper's reconciled cart.
//
// A Page is driven by the presentation layer (the CLI's browse mode, or any
// other front end). Every failure is turned into a Notification; no method
// panics and none returns an error the caller has to act on.
package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/adapter"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/search"
	"storefront/internal/session"
)

// User-facing messages not carried by a classified error.
const (
	MsgNoProducts  = "No Products Found"
	MsgAddFailed   = "Error adding to cart"
	MsgCartRefresh = "Cart refreshed from server"
)

// Options configures a Page. Zero values pick sensible defaults.
type Options struct {
	// Debounce is the search quiet period. Zero means search.DefaultDelay.
	Debounce time.Duration
	// Clock drives the debounce timer. Nil means the system clock.
	Clock search.Clock
	// Notify receives every notification. Nil discards them.
	Notify Notifier
	// OnSearch is called after a search result has been applied to the view,
	// with the query text and the new view. Stale responses never reach it.
	OnSearch func(text string, view []model.Product)
	Logger   *slog.Logger
}

// Page is the products-page state holder.
//
// State is guarded by mu, which is never held across a backend call. Search
// responses are applied only if their query is still the latest issued;
// mutation responses are applied as they arrive, each carrying the full
// server cart.
type Page struct {
	backend   adapter.Backend
	gateway   *cart.Gateway
	debouncer *search.Debouncer
	seq       *search.Sequencer
	notify    Notifier
	onSearch  func(text string, view []model.Product)
	logger    *slog.Logger

	// ctx scopes debounced searches; canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	sess    session.Session
	idx     *catalog.Index
	view    []model.Product
	records []model.CartRecord
	items   []model.LineItem
	query   string
	loading bool
	pending *search.Handle
}

// NewPage creates a Page for sess over backend. Call Load to populate it and
// Close when done.
func NewPage(backend adapter.Backend, sess session.Session, opts Options) *Page {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := opts.Notify
	if notify == nil {
		notify = func(Notification) {}
	}

	onSearch := opts.OnSearch
	if onSearch == nil {
		onSearch = func(string, []model.Product) {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Page{
		backend:  backend,
		gateway:  cart.NewGateway(backend, logger),
		seq:      search.NewSequencer(opts.Clock),
		notify:   notify,
		onSearch: onSearch,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sess:     sess,
		idx:      catalog.NewIndex(nil),
		view:     []model.Product{},
		items:    []model.LineItem{},
	}
	p.debouncer = search.NewDebouncer(opts.Debounce, opts.Clock, p.dispatchSearch)
	return p
}

// Debounce returns the search quiet period in effect.
func (p *Page) Debounce() time.Duration {
	return p.debouncer.Delay()
}

// Load fetches the catalog and, for an authenticated session, the cart.
// Both requests run concurrently; the cart is reconciled once both return.
// A failed catalog fetch leaves the catalog empty; a failed cart fetch
// leaves the cart empty. Each failure is notified separately.
func (p *Page) Load(ctx context.Context) {
	p.mu.Lock()
	p.loading = true
	sess := p.sess
	p.mu.Unlock()

	var (
		products   []model.Product
		records    []model.CartRecord
		catalogErr error
		cartErr    error
		g          errgroup.Group
	)
	g.Go(func() error {
		products, catalogErr = p.backend.ListProducts(ctx)
		return nil
	})
	if sess.Authenticated() {
		g.Go(func() error {
			records, cartErr = p.backend.FetchCart(ctx, sess.Token)
			return nil
		})
	}
	_ = g.Wait()

	if catalogErr != nil {
		p.logger.Warn("catalog fetch failed", slog.String("error", catalogErr.Error()))
		products = nil
	}
	if cartErr != nil {
		p.logger.Warn("cart fetch failed", slog.String("error", cartErr.Error()))
		records = nil
	}

	idx := catalog.NewIndex(products)
	if orphans := reconcile.Orphans(records, idx); len(orphans) > 0 {
		p.logger.Warn("cart references products missing from catalog",
			slog.Any("product_ids", orphans))
	}
	items := reconcile.Reconcile(records, idx)

	p.mu.Lock()
	p.idx = idx
	p.view = idx.Products()
	p.records = model.RecordsFrom(items)
	p.items = items
	p.loading = false
	p.mu.Unlock()

	if catalogErr != nil {
		p.notify(Notification{Variant: VariantError, Message: catalogMessage(catalogErr)})
	}
	if cartErr != nil {
		p.notify(Notification{Variant: VariantError, Message: cartMessage(cartErr)})
	}
}

// SetSession replaces the session, e.g. after login or logout. Logging out
// clears the cart; logging in takes effect on the next Load.
func (p *Page) SetSession(sess session.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sess = sess
	if !sess.Authenticated() {
		p.records = nil
		p.items = []model.LineItem{}
	}
}

// Input records the search box's current text. The search itself is sent
// once input has been quiet for the debounce delay.
func (p *Page) Input(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.query = text
	p.pending = p.debouncer.OnInput(text, p.pending)
}

// dispatchSearch runs on the debounce timer.
func (p *Page) dispatchSearch(text string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	p.Search(p.ctx, text)
}

// Search filters the view by text immediately, bypassing the debouncer.
// Empty text restores the full catalog without a request.
//
// A 404 empties the view; any other failure keeps the full catalog in view.
// A response that arrives after a newer search was issued is discarded.
func (p *Page) Search(ctx context.Context, text string) {
	q := p.seq.Issue(text)

	if text == "" {
		if view, ok := p.applyView(q, p.showCatalog); ok {
			p.onSearch(text, view)
		}
		return
	}

	products, err := p.backend.SearchProducts(ctx, text)

	view, ok := p.applyView(q, func() {
		switch {
		case err == nil:
			p.view = products
		case errors.Is(err, model.ErrNotFound):
			p.view = []model.Product{}
		default:
			p.showCatalog()
		}
	})
	if !ok {
		p.logger.Debug("discarding stale search response",
			slog.String("query", text),
			slog.Time("issued_at", q.IssuedAt))
		return
	}

	p.onSearch(text, view)
	if err == nil {
		return
	}
	if errors.Is(err, model.ErrNotFound) {
		p.notify(Notification{Variant: VariantError, Message: MsgNoProducts})
		return
	}
	p.logger.Warn("search failed", slog.String("query", text), slog.String("error", err.Error()))
	p.notify(Notification{Variant: VariantError, Message: model.UserMessage(err, model.GenericBackendMessage)})
}

// applyView runs set under mu if q is still the latest query, and returns a
// copy of the resulting view. The check and the write share one critical
// section so a newer query cannot land in between.
func (p *Page) applyView(q search.Query, set func()) ([]model.Product, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seq.Current(q) {
		return nil, false
	}
	set()
	return append([]model.Product(nil), p.view...), true
}

// showCatalog puts the full catalog in view. Callers hold mu.
func (p *Page) showCatalog() {
	p.view = p.idx.Products()
}

// AddToCart adds one unit of productID from the catalog's "Add to Cart"
// button. Refused if the product is already in the cart.
func (p *Page) AddToCart(ctx context.Context, productID string) {
	p.mutate(productID, func(sess session.Session, records []model.CartRecord, idx *catalog.Index) ([]model.LineItem, error) {
		return p.gateway.AddToCart(ctx, sess, records, idx, productID)
	})
}

// Increment raises the quantity of a cart line by one.
func (p *Page) Increment(ctx context.Context, productID string) {
	p.step(ctx, productID, +1)
}

// Decrement lowers the quantity of a cart line by one. At quantity one this
// removes the line.
func (p *Page) Decrement(ctx context.Context, productID string) {
	p.step(ctx, productID, -1)
}

func (p *Page) step(ctx context.Context, productID string, delta int) {
	p.mutate(productID, func(sess session.Session, records []model.CartRecord, idx *catalog.Index) ([]model.LineItem, error) {
		qty := delta
		for _, r := range records {
			if r.ProductID == productID {
				qty = r.Quantity + delta
				break
			}
		}
		return p.gateway.SetQuantity(ctx, sess, records, idx, productID, qty)
	})
}

type mutation func(sess session.Session, records []model.CartRecord, idx *catalog.Index) ([]model.LineItem, error)

// mutate snapshots the inputs under the lock, sends the mutation without it,
// and applies whatever cart the gateway hands back, provided the session it
// was sent for is still current.
func (p *Page) mutate(productID string, fn mutation) {
	p.mu.Lock()
	sess, records, idx := p.sess, p.records, p.idx
	p.mu.Unlock()

	items, err := fn(sess, records, idx)

	if items != nil {
		p.mu.Lock()
		// A logout or re-login while the request was in flight makes this
		// cart someone else's.
		if p.sess.Token == sess.Token {
			p.items = items
			p.records = model.RecordsFrom(items)
		} else {
			items = nil
		}
		p.mu.Unlock()
	}

	if err == nil {
		return
	}
	p.logger.Warn("cart action failed",
		slog.String("product_id", productID),
		slog.String("error", err.Error()))
	p.notify(mutationNotification(err, items != nil))
}

// Snapshot returns a copy of the page state.
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := append([]model.LineItem(nil), p.items...)
	if items == nil {
		items = []model.LineItem{}
	}
	view := append([]model.Product(nil), p.view...)
	if view == nil {
		view = []model.Product{}
	}
	total := reconcile.TotalValue(items)
	return Snapshot{
		Catalog:    p.idx.Products(),
		View:       view,
		Items:      items,
		Query:      p.query,
		Loading:    p.loading,
		TotalValue: total,
		TotalCount: reconcile.TotalCount(items),
		Summary:    newSummary(items),
	}
}

// Close cancels any pending search, aborts in-flight ones, and waits for
// them to return. Later Input calls are ignored.
func (p *Page) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.pending != nil {
		p.pending.Cancel()
	}
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// catalogMessage picks the notification text for a failed catalog fetch.
func catalogMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusInternalServerError {
		return apiErr.Message
	}
	return model.GenericBackendMessage
}

// cartMessage picks the notification text for a failed cart fetch. Only a
// 400 carries a message worth showing.
func cartMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return apiErr.Message
	}
	return model.GenericBackendMessage
}

// mutationNotification maps a failed cart action to what the shopper sees.
// Refused preconditions are warnings with their own text. A vanished product
// reports the server's message; refreshed says whether the cart was re-read.
// Anything else is a generic failure.
func mutationNotification(err error, refreshed bool) Notification {
	switch {
	case errors.Is(err, model.ErrUnauthenticated), errors.Is(err, model.ErrDuplicateItem):
		return Notification{Variant: VariantWarning, Message: model.UserMessage(err, MsgAddFailed)}
	case errors.Is(err, model.ErrNotFound):
		msg := model.UserMessage(err, MsgAddFailed)
		if refreshed {
			msg += ". " + MsgCartRefresh
		}
		return Notification{Variant: VariantError, Message: msg}
	default:
		return Notification{Variant: VariantError, Message: MsgAddFailed}
	}
}
