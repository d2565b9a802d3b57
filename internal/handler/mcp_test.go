package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/adapter"
	"storefront/internal/model"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

func (r *callToolResult) text() string {
	var parts []string
	for _, c := range r.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

func TestMCPServerCreation(t *testing.T) {
	h, _ := testHandler(&adapter.Mock{})
	if h.NewMCPServer() == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if h.NewMCPHandler() == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPInitialize(t *testing.T) {
	_, mux := testHandler(&adapter.Mock{})

	sessionID := initMCPSession(t, mux)
	if sessionID == "" {
		t.Error("expected Mcp-Session-Id header on initialize")
	}
}

func TestMCPToolsList(t *testing.T) {
	_, mux := testHandler(&adapter.Mock{})
	sessionID := initMCPSession(t, mux)

	resp := postMCP(t, mux, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/list",
	})
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}

	var toolsResult struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expectedTools := map[string]bool{
		"list_products":   false,
		"search_products": false,
		"get_cart":        false,
		"add_to_cart":     false,
		"set_quantity":    false,
	}
	for _, tool := range toolsResult.Tools {
		if _, ok := expectedTools[tool.Name]; ok {
			expectedTools[tool.Name] = true
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPListProducts(t *testing.T) {
	mock := &adapter.Mock{
		ListProductsFunc: func(ctx context.Context) ([]model.Product, error) {
			return testProducts(), nil
		},
	}
	_, mux := testHandler(mock)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "list_products", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.text())
	}

	var out ProductsOutput
	if err := json.Unmarshal(result.StructuredContent, &out); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
	if len(out.Products) != 2 || out.Products[0].ID != "p1" {
		t.Errorf("products = %+v, want p1, p2", out.Products)
	}
}

func TestMCPSearchProducts(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantSearch  int
		wantList    int
		searchErr   error
		wantIsError bool
	}{
		{name: "query goes to search", query: "lamp", wantSearch: 1},
		{name: "empty query lists catalog", query: "", wantList: 1},
		{
			name:        "no matches is a tool error",
			query:       "zzz",
			wantSearch:  1,
			searchErr:   model.NewNotFoundError("product", "No products found"),
			wantIsError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &adapter.Mock{
				ListProductsFunc: func(ctx context.Context) ([]model.Product, error) {
					return testProducts(), nil
				},
				SearchProductsFunc: func(ctx context.Context, text string) ([]model.Product, error) {
					if tt.searchErr != nil {
						return nil, tt.searchErr
					}
					return testProducts()[1:], nil
				},
			}
			_, mux := testHandler(mock)
			sessionID := initMCPSession(t, mux)

			result := callTool(t, mux, sessionID, "search_products", map[string]interface{}{"query": tt.query})

			if result.IsError != tt.wantIsError {
				t.Errorf("IsError = %v, want %v (%s)", result.IsError, tt.wantIsError, result.text())
			}
			if tt.wantIsError && !strings.Contains(result.text(), "NOT_FOUND") {
				t.Errorf("error text = %q, want NOT_FOUND code", result.text())
			}
			if got := mock.Calls("SearchProducts"); got != tt.wantSearch {
				t.Errorf("SearchProducts calls = %d, want %d", got, tt.wantSearch)
			}
			if got := mock.Calls("ListProducts"); got != tt.wantList {
				t.Errorf("ListProducts calls = %d, want %d", got, tt.wantList)
			}
		})
	}
}

func TestMCPGetCart(t *testing.T) {
	var gotToken string
	mock := &adapter.Mock{
		ListProductsFunc: func(ctx context.Context) ([]model.Product, error) {
			return testProducts(), nil
		},
		FetchCartFunc: func(ctx context.Context, token string) ([]model.CartRecord, error) {
			gotToken = token
			return []model.CartRecord{{ProductID: "p1", Quantity: 3}}, nil
		},
	}
	_, mux := testHandler(mock)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "get_cart", map[string]interface{}{"token": "tok-1"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.text())
	}
	if gotToken != "tok-1" {
		t.Errorf("token = %q, want tok-1", gotToken)
	}

	var out cartResponse
	if err := json.Unmarshal(result.StructuredContent, &out); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
	if out.TotalCount != 1 || out.TotalValue != 30 {
		t.Errorf("totals = (%d, %v), want (1, 30)", out.TotalCount, out.TotalValue)
	}
}

func TestMCPAddToCart(t *testing.T) {
	tests := []struct {
		name        string
		args        map[string]interface{}
		wantUpserts int
		wantText    string
	}{
		{
			name:        "adds with token",
			args:        map[string]interface{}{"token": "tok", "product_id": "p2"},
			wantUpserts: 1,
		},
		{
			name:     "no token",
			args:     map[string]interface{}{"product_id": "p2"},
			wantText: "UNAUTHENTICATED: Login to add an item to the Cart",
		},
		{
			name:     "already in cart",
			args:     map[string]interface{}{"token": "tok", "product_id": "p1"},
			wantText: "DUPLICATE_ITEM",
		},
		{
			name:     "missing product",
			args:     map[string]interface{}{"token": "tok", "product_id": ""},
			wantText: "product_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &adapter.Mock{
				ListProductsFunc: func(ctx context.Context) ([]model.Product, error) {
					return testProducts(), nil
				},
				FetchCartFunc: func(ctx context.Context, token string) ([]model.CartRecord, error) {
					return []model.CartRecord{{ProductID: "p1", Quantity: 1}}, nil
				},
				UpsertCartFunc: func(ctx context.Context, token string, req model.UpsertRequest) ([]model.CartRecord, error) {
					return []model.CartRecord{{ProductID: "p1", Quantity: 1}, {ProductID: req.ProductID, Quantity: req.Quantity}}, nil
				},
			}
			_, mux := testHandler(mock)
			sessionID := initMCPSession(t, mux)

			result := callTool(t, mux, sessionID, "add_to_cart", tt.args)

			if tt.wantText == "" && result.IsError {
				t.Fatalf("unexpected tool error: %s", result.text())
			}
			if tt.wantText != "" {
				if !result.IsError {
					t.Fatal("expected tool error")
				}
				if !strings.Contains(result.text(), tt.wantText) {
					t.Errorf("error text = %q, want to contain %q", result.text(), tt.wantText)
				}
			}
			if got := mock.Calls("UpsertCart"); got != tt.wantUpserts {
				t.Errorf("UpsertCart calls = %d, want %d", got, tt.wantUpserts)
			}
		})
	}
}

func TestMCPSetQuantity(t *testing.T) {
	var sent model.UpsertRequest
	mock := &adapter.Mock{
		ListProductsFunc: func(ctx context.Context) ([]model.Product, error) {
			return testProducts(), nil
		},
		UpsertCartFunc: func(ctx context.Context, token string, req model.UpsertRequest) ([]model.CartRecord, error) {
			sent = req
			return []model.CartRecord{}, nil
		},
	}
	_, mux := testHandler(mock)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "set_quantity", map[string]interface{}{
		"token":      "tok",
		"product_id": "p1",
		"quantity":   0,
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.text())
	}
	if sent != (model.UpsertRequest{ProductID: "p1", Quantity: 0}) {
		t.Errorf("sent %+v, want removal of p1", sent)
	}
}

// === Helpers ===

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// postMCP sends one JSON-RPC request and decodes the response.
func postMCP(t *testing.T, mux *http.ServeMux, sessionID string, req jsonrpcRequest) jsonrpcResponse {
	t.Helper()

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	// MCP returns 200 OK even for tool errors, error is in the result
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	return resp
}

// callTool invokes a tool and returns its result. Tool errors are returned
// in the result, not as JSON-RPC errors.
func callTool(t *testing.T, mux *http.ServeMux, sessionID, name string, args map[string]interface{}) *callToolResult {
	t.Helper()

	rawArgs, _ := json.Marshal(args)
	resp := postMCP(t, mux, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params: toolCallParams{
			Name:      name,
			Arguments: rawArgs,
		},
	})
	if resp.Error != nil {
		t.Fatalf("Unexpected JSON-RPC error: %+v", resp.Error)
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse tool result: %v", err)
	}
	return &result
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	return w.Header().Get("Mcp-Session-Id")
}
