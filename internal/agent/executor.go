package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/checkout"
	"github.com/xenking/shopagent/internal/domain/payment"
	"github.com/xenking/shopagent/internal/domain/product"
)

const defaultSearchLimit = 10

// CheckoutService is the slice of the checkout finalizer the executor needs.
type CheckoutService interface {
	Preview(ctx context.Context, ownerID string) (*checkout.PreviewResult, error)
	Complete(ctx context.Context, ownerID, note string) (*checkout.CompleteResult, error)
}

// Executor maps a tool name plus arguments to a provider-backed side effect
// and returns a structured ToolResult.
type Executor struct {
	products product.Repository
	carts    cart.Repository
	checkout CheckoutService
	log      *zap.Logger
}

// NewExecutor constructs an Executor with the required collaborators.
func NewExecutor(products product.Repository, carts cart.Repository, co CheckoutService, log *zap.Logger) *Executor {
	return &Executor{
		products: products,
		carts:    carts,
		checkout: co,
		log:      log,
	}
}

// Execute dispatches one tool call on behalf of the identity. All failures
// come back inside the ToolResult, never as a Go error.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage, ownerID string) ToolResult {
	switch name {
	case toolSearchProducts:
		return e.searchProducts(ctx, args)
	case toolAddToCart:
		return e.addToCart(ctx, args, ownerID)
	case toolRemoveFromCart:
		return e.removeFromCart(ctx, args, ownerID)
	case toolViewCart:
		return e.viewCart(ctx, ownerID)
	case toolPreviewOrder:
		return e.previewOrder(ctx, ownerID)
	case toolCompleteCheckout:
		return e.completeCheckout(ctx, args, ownerID)
	default:
		return resultErr("unknown_tool", fmt.Sprintf("tool %q is not available", name))
	}
}

// --- search_products ---

type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type productView struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
}

func (e *Executor) searchProducts(ctx context.Context, args json.RawMessage) ToolResult {
	var p searchParams
	if err := json.Unmarshal(args, &p); err != nil {
		return resultErr("validation", "invalid search_products arguments: "+err.Error())
	}
	if strings.TrimSpace(p.Query) == "" {
		return resultErr("validation", "query is required")
	}
	if p.Limit <= 0 {
		p.Limit = defaultSearchLimit
	}

	found, err := e.products.Search(ctx, p.Query, p.Limit)
	if err != nil {
		e.log.Error("product search failed", zap.String("query", p.Query), zap.Error(err))
		return resultErr("upstream_failure", "product search is unavailable right now")
	}

	views := make([]productView, len(found))
	for i, pr := range found {
		views[i] = productView{
			ProductID:   pr.ID,
			Name:        pr.Name,
			Description: pr.Description,
			Price:       pr.Price,
			Category:    pr.Category,
		}
	}
	return resultOK(views, fmt.Sprintf("%d products matched %q", len(views), p.Query))
}

// --- add_to_cart ---

type addParams struct {
	Items []addItem `json:"items"`
}

type addItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (e *Executor) addToCart(ctx context.Context, args json.RawMessage, ownerID string) ToolResult {
	var p addParams
	if err := json.Unmarshal(args, &p); err != nil {
		return resultErr("validation", "invalid add_to_cart arguments: "+err.Error())
	}
	if len(p.Items) == 0 {
		return resultErr("validation", "items is required")
	}
	ids := make([]string, len(p.Items))
	for i, it := range p.Items {
		if it.Quantity <= 0 {
			return resultErr("validation", fmt.Sprintf("quantity must be greater than 0 for product %s", it.ProductID))
		}
		ids[i] = it.ProductID
	}

	// Validate every product before mutating anything: the add is
	// all-or-nothing.
	fetched, err := e.products.GetByIDs(ctx, ids)
	if err != nil {
		e.log.Error("product lookup failed", zap.Error(err))
		return resultErr("upstream_failure", "the catalog is unavailable right now")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, pr := range fetched {
		byID[pr.ID] = pr
	}
	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return resultErr("not_found",
			fmt.Sprintf("products not found: %s; nothing was added", strings.Join(missing, ", ")))
	}

	c, err := e.carts.Get(ctx, ownerID)
	if err != nil {
		e.log.Error("cart load failed", zap.String("owner_id", ownerID), zap.Error(err))
		return resultErr("upstream_failure", "the cart is unavailable right now")
	}

	lines := make([]cart.Item, len(p.Items))
	for i, it := range p.Items {
		lines[i] = cart.Item{
			ProductID: it.ProductID,
			UnitPrice: byID[it.ProductID].Price,
			Quantity:  it.Quantity,
		}
	}
	c.Merge(lines)

	if err := e.carts.Save(ctx, c); err != nil {
		e.log.Error("cart save failed", zap.String("owner_id", ownerID), zap.Error(err))
		return resultErr("upstream_failure", "the cart could not be updated")
	}

	return resultOK(newCartView(c), addSummary(p.Items, byID))
}

func addSummary(items []addItem, byID map[string]product.Product) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%d x %s", it.Quantity, byID[it.ProductID].Name)
	}
	return "Added " + strings.Join(parts, ", ")
}

// --- remove_from_cart ---

type removeParams struct {
	Items []removeItem `json:"items"`
}

type removeItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	RemoveAll bool   `json:"remove_all"`
}

type removeView struct {
	Cart     cartView `json:"cart"`
	Removed  []string `json:"removed"`
	NotFound []string `json:"not_found,omitempty"`
}

func (e *Executor) removeFromCart(ctx context.Context, args json.RawMessage, ownerID string) ToolResult {
	var p removeParams
	if err := json.Unmarshal(args, &p); err != nil {
		return resultErr("validation", "invalid remove_from_cart arguments: "+err.Error())
	}
	if len(p.Items) == 0 {
		return resultErr("validation", "items is required")
	}
	// A removal must either drop the whole line or carry a positive
	// quantity; anything else would be a no-op or grow the line.
	for _, it := range p.Items {
		if !it.RemoveAll && it.Quantity <= 0 {
			return resultErr("validation",
				fmt.Sprintf("quantity must be greater than 0 for product %s unless remove_all is set", it.ProductID))
		}
	}

	c, err := e.carts.Get(ctx, ownerID)
	if err != nil {
		e.log.Error("cart load failed", zap.String("owner_id", ownerID), zap.Error(err))
		return resultErr("upstream_failure", "the cart is unavailable right now")
	}

	removals := make([]cart.Removal, len(p.Items))
	for i, it := range p.Items {
		removals[i] = cart.Removal{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			RemoveAll: it.RemoveAll,
		}
	}
	report := c.Remove(removals)

	if len(report.Removed) > 0 {
		if err := e.carts.Save(ctx, c); err != nil {
			e.log.Error("cart save failed", zap.String("owner_id", ownerID), zap.Error(err))
			return resultErr("upstream_failure", "the cart could not be updated")
		}
	}

	msg := fmt.Sprintf("Updated %d line(s)", len(report.Removed))
	if len(report.NotFound) > 0 {
		msg += fmt.Sprintf("; not in cart: %s", strings.Join(report.NotFound, ", "))
	}
	return resultOK(removeView{
		Cart:     newCartView(c),
		Removed:  report.Removed,
		NotFound: report.NotFound,
	}, msg)
}

// --- view_cart ---

type cartView struct {
	Items    []cart.Item     `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func newCartView(c *cart.Cart) cartView {
	return cartView{Items: c.Items, Subtotal: c.Subtotal()}
}

func (e *Executor) viewCart(ctx context.Context, ownerID string) ToolResult {
	c, err := e.carts.Get(ctx, ownerID)
	if err != nil {
		e.log.Error("cart load failed", zap.String("owner_id", ownerID), zap.Error(err))
		return resultErr("upstream_failure", "the cart is unavailable right now")
	}
	if c.IsEmpty() {
		return resultOK(newCartView(c), "The cart is empty")
	}
	return resultOK(newCartView(c), fmt.Sprintf("%d line(s) in the cart", len(c.Items)))
}

// --- preview_order ---

func (e *Executor) previewOrder(ctx context.Context, ownerID string) ToolResult {
	preview, err := e.checkout.Preview(ctx, ownerID)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			return resultErr("empty_cart", "the cart is empty; add items before previewing")
		}
		e.log.Error("order preview failed", zap.String("owner_id", ownerID), zap.Error(err))
		return resultErr("upstream_failure", "the order could not be previewed right now")
	}

	msg := "Order previewed"
	switch {
	case preview.ReadyForCheckout:
		msg = "Order previewed; ready for checkout"
	case preview.ShippingAddress == nil:
		msg = "Order previewed; a shipping address is needed before checkout"
	case !preview.HasPaymentMethod:
		msg = "Order previewed; a payment method is needed before checkout"
	}
	return resultOK(preview, msg)
}

// --- complete_checkout ---

type completeParams struct {
	OrderNote string `json:"order_note"`
}

func (e *Executor) completeCheckout(ctx context.Context, args json.RawMessage, ownerID string) ToolResult {
	var p completeParams
	if len(args) > 0 {
		if err := json.Unmarshal(args, &p); err != nil {
			return resultErr("validation", "invalid complete_checkout arguments: "+err.Error())
		}
	}

	result, err := e.checkout.Complete(ctx, ownerID, p.OrderNote)
	if err != nil {
		return checkoutFailure(e.log, ownerID, err)
	}

	return resultOK(result, fmt.Sprintf("Order %s placed; charged %s %s",
		result.OrderID, result.Amount.StringFixed(2), result.Currency))
}

// checkoutFailure maps finalizer errors to tool results the agent can
// explain to the shopper.
func checkoutFailure(log *zap.Logger, ownerID string, err error) ToolResult {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return resultErr("empty_cart", "the cart is empty; nothing to check out")
	case errors.Is(err, checkout.ErrIncompleteProfile):
		return resultErr("incomplete_profile", "a shipping address is required; ask the shopper to complete their profile")
	case errors.Is(err, checkout.ErrPreviewRequired):
		return resultErr("preview_required", "preview the order and confirm totals with the shopper before checking out")
	case errors.Is(err, payment.ErrNoPaymentMethod):
		return resultErr("no_payment_method", "no payment method is on file; ask the shopper to add one")
	case errors.Is(err, payment.ErrExpired):
		return resultErr("hold_expired", "the payment authorization expired; preview and try again")
	case errors.Is(err, payment.ErrCartChanged):
		return resultErr("cart_changed", "the cart changed since authorization; preview the order again")
	default:
		var captureErr *payment.CaptureError
		if errors.As(err, &captureErr) {
			return resultErr("capture_failed", "the payment was declined: "+captureErr.Reason)
		}
		log.Error("checkout failed", zap.String("owner_id", ownerID), zap.Error(err))
		return resultErr("upstream_failure", "checkout is unavailable right now; the cart was not changed")
	}
}
