// Package backend implements adapter.Backend over the storefront REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/adapter"
	"storefront/internal/model"
	"storefront/internal/transport"
)

// userAgent identifies this client to the backend.
const userAgent = "storefront-client/1.0"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

// Config holds backend client configuration.
type Config struct {
	// BaseURL includes the API version prefix, e.g. http://host:8082/api/v1.
	BaseURL string

	Timeout        time.Duration // Default: 30s
	FingerprintTLS bool          // Present a Chrome TLS fingerprint (see internal/transport)

	// HTTPClient overrides the client built from the fields above. Tests use it.
	HTTPClient *http.Client
}

// Client talks to the storefront backend.
// It is stateless: the bearer token is passed per call, never stored.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a backend client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: transport.New(transport.Options{
				Timeout:     timeout,
				Fingerprint: cfg.FingerprintTLS,
			}),
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// ListProducts fetches the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.do(ctx, http.MethodGet, "/products", "", "products", nil, &products); err != nil {
		return nil, err
	}
	return nonNilProducts(products), nil
}

// SearchProducts queries the search endpoint.
// The backend answers 404 when nothing matches; that surfaces as a NotFound error.
func (c *Client) SearchProducts(ctx context.Context, text string) ([]model.Product, error) {
	path := "/products/search?" + url.Values{"value": {text}}.Encode()

	var products []model.Product
	if err := c.do(ctx, http.MethodGet, path, "", "products", nil, &products); err != nil {
		return nil, err
	}
	return nonNilProducts(products), nil
}

// FetchCart fetches the cart of the shopper owning token.
func (c *Client) FetchCart(ctx context.Context, token string) ([]model.CartRecord, error) {
	var records []model.CartRecord
	if err := c.do(ctx, http.MethodGet, "/cart", token, "cart", nil, &records); err != nil {
		return nil, err
	}
	return nonNilRecords(records), nil
}

// UpsertCart sets one line's quantity and returns the server's full cart.
func (c *Client) UpsertCart(ctx context.Context, token string, req model.UpsertRequest) ([]model.CartRecord, error) {
	var records []model.CartRecord
	if err := c.do(ctx, http.MethodPost, "/cart", token, "product", req, &records); err != nil {
		return nil, err
	}
	return nonNilRecords(records), nil
}

// do performs one JSON request. resource names the thing a 404 refers to.
func (c *Client) do(ctx context.Context, method, path, token, resource string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", path, err)
		}
		reader = bytes.NewReader(bodyJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", path, err)
	}
	c.setHeaders(req, token, body != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return model.NewNetworkError(fmt.Errorf("reading %s response: %w", path, err))
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, respBody, resource)
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		apiErr := model.NewServerError(resp.StatusCode, "")
		apiErr.Err = fmt.Errorf("%w: parsing %s response: %v", model.ErrServer, path, err)
		return apiErr
	}
	return nil
}

// setHeaders sets JSON and auth headers on a backend request.
func (c *Client) setHeaders(req *http.Request, token string, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// parseErrorResponse converts a backend error to APIError.
// The backend's own message is kept when it sent one.
func parseErrorResponse(statusCode int, body []byte, resource string) error {
	var errResp ErrorResponse
	json.Unmarshal(body, &errResp) // Best effort parse
	msg := strings.TrimSpace(errResp.Message)

	switch {
	case statusCode == http.StatusNotFound:
		return model.NewNotFoundError(resource, msg)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return model.NewUnauthorizedError(msg)
	case statusCode >= 500:
		return model.NewServerError(statusCode, msg)
	default:
		return model.NewUpstreamError(statusCode, msg)
	}
}

func nonNilProducts(p []model.Product) []model.Product {
	if p == nil {
		return []model.Product{}
	}
	return p
}

func nonNilRecords(r []model.CartRecord) []model.CartRecord {
	if r == nil {
		return []model.CartRecord{}
	}
	return r
}

// Verify Client implements Backend interface at compile time.
var _ adapter.Backend = (*Client)(nil)
