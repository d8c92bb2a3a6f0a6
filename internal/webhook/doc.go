// Package webhook implements the inbound order-notification endpoint with
// HMAC-SHA256 verification.
//
// The commerce platform posts a signed JSON order to the configured path.
// The gateway authenticates the payload, classifies its line items, and runs
// license fulfillment synchronously for the matched ones.
//
// # Security Model
//
// - Base64 HMAC-SHA256 signatures verified with a constant-time comparison
// - Body size limits enforced to prevent DoS attacks
// - No signature details leaked in error responses (always a bare 401)
// - Request logging excludes payload content
// - The shared secret can be supplied via environment instead of config
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured path (anything else: 405)
//  2. Body size checked (reject with 413 if too large)
//  3. Signature header extracted, HMAC-SHA256 computed over the raw body
//  4. Constant-time comparison (reject with 401 if mismatch)
//  5. Payload parsed and classified; non-matching orders answered 200
//  6. Each matched line item fulfilled in sequence; failures are isolated
//  7. 200 with a success count if anything was delivered, 500 if nothing was
//
// # Responses
//
// Responses are short plain-text bodies the commerce platform displays in
// its webhook delivery log:
//
//   - 200 "Licenses delivered successfully (N items)"
//   - 200 "Not a HakPak order" (non-error no-op)
//   - 400 "Invalid JSON" / "No customer email"
//   - 401 "Unauthorized"
//   - 405 "Method not allowed - POST required"
//   - 413 "Payload too large"
//   - 500 "License delivery failed"
package webhook
