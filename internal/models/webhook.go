package models

// Run upload signing. The signature is the hex HMAC-SHA256 of the raw body
// keyed with the ingest secret, sent as "sha256=<hex>".
const (
	SignatureHeader = "X-PerfBudget-Signature-256"
	SignaturePrefix = "sha256="
)
