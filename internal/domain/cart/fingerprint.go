package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint computes a short deterministic digest of the cart contents.
// It encodes productID:quantity:unitPrice per line, sorted by product ID,
// so two carts with the same item set produce the same value regardless of
// insertion order. Any change to membership, quantity, or price changes it.
//
// Payment holds embed this digest so that capture can be refused when the
// cart no longer matches the state that was authorized.
func Fingerprint(c *Cart) string {
	items := c.sortedItems()

	var b strings.Builder
	for _, it := range items {
		// StringFixed normalizes price rendering: 10 and 10.00 are the
		// same money and must fingerprint identically.
		fmt.Fprintf(&b, "%s:%d:%s\n", it.ProductID, it.Quantity, it.UnitPrice.StringFixed(2))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}
