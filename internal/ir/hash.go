package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed keys.
// Version suffix enables future algorithm migration.
const (
	DomainScope = "replicon/scope/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ScopeHash returns a stable key for a reconciliation scope. Queue
// partitioners use it so that all requests for one scope land together.
func ScopeHash(scopeKey string) string {
	return hashWithDomain(DomainScope, []byte(scopeKey))
}
