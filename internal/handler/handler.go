// Package handler provides the storefront's backend-for-frontend HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/adapter"
	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/search"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	backend  adapter.Backend
	gateway  *cart.Gateway
	logger   *slog.Logger
	debounce time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithSearchDebounce sets the search delay advertised to front ends.
func WithSearchDebounce(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.debounce = d
		}
	}
}

// New creates a new Handler over the given backend.
func New(backend adapter.Backend, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		backend:  backend,
		gateway:  cart.NewGateway(backend, logger),
		logger:   logger,
		debounce: search.DefaultDelay,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns. Cart routes expect the session
// to have been resolved by session.Middleware.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Catalog
	mux.HandleFunc("GET /products", h.handleListProducts)
	mux.HandleFunc("GET /products/search", h.handleSearchProducts)

	// Cart
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("POST /cart", h.handleAddToCart)
	mux.HandleFunc("PUT /cart/{productId}", h.handleSetQuantity)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Client settings
	mux.HandleFunc("GET /settings", h.handleSettings)

	// Liveness and readiness
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleReady)
}

// settingsResponse tells front ends how to drive the products page.
type settingsResponse struct {
	SearchDebounceMs int64 `json:"searchDebounceMs"`
}

// handleSettings returns client-side settings.
// GET /settings
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, settingsResponse{SearchDebounceMs: h.debounce.Milliseconds()})
}

// handleHealth reports that the process is serving.
// GET /health
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// readyTimeout bounds the backend probe behind /healthz.
const readyTimeout = 2 * time.Second

// handleReady reports whether the backend answers a catalog fetch.
// GET /healthz
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if _, err := h.backend.ListProducts(ctx); err != nil {
		h.logger.Warn("backend not ready", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unavailable",
			Detail: model.UserMessage(err, model.GenericBackendMessage),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if !errors.As(err, &apiErr) {
		apiErr = model.NewInternalError(err)
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 64KB. Cart mutations are tiny.
const MaxRequestBodySize = 64 << 10

// decodeJSON reads JSON from request body into v.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose decoder details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}
