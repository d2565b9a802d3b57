// MCP transport handler for the storefront using the official MCP Go SDK.
// Exposes catalog and cart operations as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/model"
	"storefront/internal/session"
)

// === MCP Tool Input/Output Types ===

// ListProductsInput is the input schema for list_products tool.
type ListProductsInput struct{}

// SearchProductsInput is the input schema for search_products tool.
type SearchProductsInput struct {
	Query string `json:"query" jsonschema:"free text matched against product name and category"`
}

// ProductsOutput wraps a product list; tool output must be an object.
type ProductsOutput struct {
	Products []model.Product `json:"products"`
}

// GetCartInput is the input schema for get_cart tool.
// Cart tools take the shopper's bearer token; when it is empty the session
// resolved from the HTTP request is used.
type GetCartInput struct {
	Token string `json:"token,omitempty" jsonschema:"bearer token returned on login"`
}

// AddToCartInput is the input schema for add_to_cart tool.
type AddToCartInput struct {
	Token     string `json:"token,omitempty" jsonschema:"bearer token returned on login"`
	ProductID string `json:"product_id" jsonschema:"product ID,required"`
}

// SetQuantityInput is the input schema for set_quantity tool.
type SetQuantityInput struct {
	Token     string `json:"token,omitempty" jsonschema:"bearer token returned on login"`
	ProductID string `json:"product_id" jsonschema:"product ID,required"`
	Quantity  int    `json:"quantity" jsonschema:"new quantity; zero removes the line,required"`
}

// NewMCPServer creates an MCP server with catalog and cart tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront - browse the product catalog and manage a shopping cart. " +
				"Cart tools need the shopper's bearer token.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_products",
		Description: "List every product in the catalog.",
	}, h.mcpListProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_products",
		Description: "Search the catalog. An empty query returns every product.",
	}, h.mcpSearchProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the shopper's cart with product details and totals.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add one unit of a product that is not already in the cart.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_quantity",
		Description: "Set the quantity of a product in the cart. Zero removes it.",
	}, h.mcpSetQuantity)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpListProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListProductsInput,
) (*mcp.CallToolResult, *ProductsOutput, error) {
	products, err := h.backend.ListProducts(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &ProductsOutput{Products: products}, nil
}

func (h *Handler) mcpSearchProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchProductsInput,
) (*mcp.CallToolResult, *ProductsOutput, error) {
	products, err := h.searchProducts(ctx, input.Query)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &ProductsOutput{Products: products}, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetCartInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	resp, err := h.getCart(ctx, mcpSession(ctx, input.Token))
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, resp, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if input.ProductID == "" {
		return nil, nil, fmt.Errorf("product_id is required")
	}

	resp, err := h.addToCart(ctx, mcpSession(ctx, input.Token), input.ProductID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, resp, nil
}

func (h *Handler) mcpSetQuantity(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SetQuantityInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if input.ProductID == "" {
		return nil, nil, fmt.Errorf("product_id is required")
	}

	resp, err := h.setQuantity(ctx, mcpSession(ctx, input.Token), input.ProductID, input.Quantity)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, resp, nil
}

// mcpSession prefers an explicit token argument over the session resolved
// from the HTTP request, if any.
func mcpSession(ctx context.Context, token string) session.Session {
	if token != "" {
		return session.Session{Token: token}
	}
	return session.FromContext(ctx)
}

// mcpError converts backend errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
