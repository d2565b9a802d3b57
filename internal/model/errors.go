package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure class.
// Use errors.Is() to check against these.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrDuplicateItem   = errors.New("duplicate item")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpstream        = errors.New("upstream error")
	ErrServer          = errors.New("server error")
	ErrNetwork         = errors.New("network failure")
	ErrInvalidRequest  = errors.New("invalid request")
)

// GenericBackendMessage is shown when the backend gave no usable message.
const GenericBackendMessage = "Could not fetch cart details. Check that the backend is running, reachable and returns valid JSON."

// APIError represents a classified failure with a user-facing message.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewUnauthenticatedError is returned before any request when no session is present.
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:       "UNAUTHENTICATED",
		Message:    "Login to add an item to the Cart",
		StatusCode: 401,
		Err:        ErrUnauthenticated,
	}
}

// NewDuplicateItemError is returned when "Add to Cart" targets a product already in the cart.
func NewDuplicateItemError(productID string) *APIError {
	return &APIError{
		Code:       "DUPLICATE_ITEM",
		Message:    "Item already in cart. Use the cart sidebar to update quantity or remove item.",
		StatusCode: 409,
		Err:        fmt.Errorf("%w: %s", ErrDuplicateItem, productID),
	}
}

// NewNotFoundError creates a 404 error. message is the server's text, if any.
func NewNotFoundError(resource, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    message,
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for a malformed client request.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError creates a 401 error for a rejected credential.
func NewUnauthorizedError(message string) *APIError {
	if message == "" {
		message = GenericBackendMessage
	}
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: 401,
		Err:        ErrUnauthorized,
	}
}

// NewUpstreamError creates an error for any other 4xx from the backend.
func NewUpstreamError(status int, message string) *APIError {
	if message == "" {
		message = GenericBackendMessage
	}
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    message,
		StatusCode: status,
		Err:        ErrUpstream,
	}
}

// NewServerError creates an error for a 5xx from the backend.
func NewServerError(status int, message string) *APIError {
	if message == "" {
		message = GenericBackendMessage
	}
	return &APIError{
		Code:       "SERVER_ERROR",
		Message:    message,
		StatusCode: status,
		Err:        ErrServer,
	}
}

// NewNetworkError creates an error for a request that got no response.
func NewNetworkError(err error) *APIError {
	return &APIError{
		Code:       "NETWORK_FAILURE",
		Message:    GenericBackendMessage,
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrNetwork, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}

// UserMessage extracts the user-facing message from err, or returns fallback
// when err carries no APIError.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
