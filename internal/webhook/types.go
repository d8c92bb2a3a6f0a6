package webhook

import (
	"context"

	"github.com/phanesguild/licensegw/internal/fulfill"
	"github.com/phanesguild/licensegw/internal/order"
)

// Fulfiller defines the interface for processing a verified order's matched
// line items.
type Fulfiller interface {
	Process(ctx context.Context, o *order.Order, items []order.LineItem) fulfill.Result
}

// Config holds webhook server configuration.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string

	// Path is the URL path order notifications are posted to.
	Path string

	// Secret is the shared HMAC secret for signature verification.
	Secret string

	// SignatureHeader is the HTTP header carrying the base64 HMAC-SHA256
	// signature (e.g. "X-Shopify-Hmac-Sha256").
	SignatureHeader string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64

	// ProductMatch is the case-insensitive substring identifying line items
	// the pipeline must fulfill.
	ProductMatch string
}

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultSignatureHeader = "X-Shopify-Hmac-Sha256"
)
