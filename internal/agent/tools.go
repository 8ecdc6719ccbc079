package agent

import (
	"encoding/json"

	"github.com/xenking/shopagent/internal/llm"
)

// ToolResult is the uniform contract every tool handler returns. Tools never
// propagate Go errors across the tool boundary; failures are folded into
// Error/Message so the orchestrator can always continue the conversation.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func resultOK(data any, message string) ToolResult {
	return ToolResult{Success: true, Data: data, Message: message}
}

func resultErr(reason, message string) ToolResult {
	return ToolResult{Success: false, Error: reason, Message: message}
}

// Tool names.
const (
	toolSearchProducts   = "search_products"
	toolAddToCart        = "add_to_cart"
	toolRemoveFromCart   = "remove_from_cart"
	toolViewCart         = "view_cart"
	toolPreviewOrder     = "preview_order"
	toolCompleteCheckout = "complete_checkout"
)

// Definitions returns the tool schema exposed verbatim to the completion
// service.
func Definitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        toolSearchProducts,
			Description: "Search the product catalog by keyword. Read-only.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search keywords"},
					"limit": {"type": "integer", "description": "Maximum number of results, default 10"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        toolAddToCart,
			Description: "Add products to the shopper's cart. Every product is validated before anything is added; quantities for products already in the cart are incremented.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"items": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"product_id": {"type": "string"},
								"quantity": {"type": "integer", "minimum": 1}
							},
							"required": ["product_id", "quantity"]
						}
					}
				},
				"required": ["items"]
			}`),
		},
		{
			Name:        toolRemoveFromCart,
			Description: "Remove products from the cart. Set remove_all to drop a line entirely, or give a quantity to decrement it.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"items": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"product_id": {"type": "string"},
								"quantity": {"type": "integer", "minimum": 1},
								"remove_all": {"type": "boolean"}
							},
							"required": ["product_id"]
						}
					}
				},
				"required": ["items"]
			}`),
		},
		{
			Name:        toolViewCart,
			Description: "Show the current cart items and subtotal. Read-only; no tax or shipping.",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        toolPreviewOrder,
			Description: "Preview the order: full totals with tax and shipping, shipping address, and payment readiness. Must be called, and its totals shown to the shopper, before complete_checkout.",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        toolCompleteCheckout,
			Description: "Charge the shopper's payment method and place the order. Only call after preview_order in this conversation and after the shopper has confirmed the totals.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"order_note": {"type": "string", "description": "Optional note to attach to the order"}
				}
			}`),
		},
	}
}
