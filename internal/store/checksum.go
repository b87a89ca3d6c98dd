package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefix for package checksums.
// Version suffix enables future algorithm migration.
const domainPackage = "zapgen/package/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Checksum computes the content checksum of a package file.
// Identical bytes always produce the same checksum, which is what lets a
// reload of an unchanged file reuse the existing package row.
func Checksum(data []byte) string {
	return hashWithDomain(domainPackage, data)
}
