package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainCatalog separates catalog fingerprints from other hashes.
// Version suffix enables future algorithm migration.
const DomainCatalog = "atomgen/catalog/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the content hash of a catalog. Identical schemas
// collated with the same module filter produce identical fingerprints.
func Fingerprint(c *Catalog) (string, error) {
	canonical, err := MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCatalog, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests.
func MustFingerprint(c *Catalog) string {
	fp, err := Fingerprint(c)
	if err != nil {
		panic(err)
	}
	return fp
}
