// Package webhook implements the inbound webhook gate with HMAC-SHA256 verification.
//
// Senders sign every delivery with a pre-shared secret. The gate checks the
// signature before the body is parsed or handed to anything else.
//
// # Signed Message
//
// In the default mode the signature covers the raw request body. With
// timestamp binding enabled the sender also sends a decimal timestamp header
// and signs "<timestamp>.<body>", using the header value verbatim.
//
// The signature header carries the lowercase hex HMAC-SHA256 digest
// (64 characters). Comparison is constant time; a length mismatch is
// rejected up front since lengths are not secret.
//
// Timestamps are not compared with the clock, so a captured delivery can be
// replayed for as long as the secret is valid.
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured path
//  2. Body size checked (413 if too large)
//  3. Signature header present (400 missing_signature)
//  4. Timestamp header present and numeric when bound (400 missing_timestamp / invalid_timestamp)
//  5. HMAC-SHA256 computed and compared (401 signature_mismatch)
//  6. Body parsed as JSON, empty body allowed (400 invalid_json)
//  7. Delivery handed to the Receiver, 200 {"received": true}
//
// # Example Usage
//
//	gate := webhook.NewGate(webhook.GateConfig{
//		Secret:          config.LoadWebhookSecret("ONEGUARD_WEBHOOK_SECRET", os.LookupEnv),
//		SignatureHeader: "x-oneguard-signature",
//	}, logger)
//
//	outcome, err := gate.Handle(r.Header, body)
package webhook
