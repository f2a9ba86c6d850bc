// Package drift detects dataset changes between training runs via exact
// content fingerprints. This is deliberately change detection, not
// statistical drift analysis; a replacement detector only needs to keep the
// Fingerprint/HasDrifted contract.
package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// #region fingerprint

// Fingerprint streams the dataset through sha256 and returns the lowercase
// hex digest. Identical content always yields an identical fingerprint.
func Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint dataset: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintBytes fingerprints an in-memory dataset.
func FingerprintBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// #endregion fingerprint

// #region has-drifted

// HasDrifted reports whether the current fingerprint differs from the one
// recorded at the last successful training. An empty stored fingerprint
// counts as drift: with no previous hash the data is considered changed.
func HasDrifted(current, stored string) bool {
	if stored == "" {
		return true
	}
	return current != stored
}

// #endregion has-drifted
