// Package hash computes the SHA-256 content digests the pull transfer
// protocol uses to verify a downloaded child file byte-for-byte against
// the descriptor the Pull Service issued. Digests are lowercase-hex
// encoded to match the descriptor format used on the wire.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Sum returns the lowercase-hex SHA-256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SumReader returns the lowercase-hex SHA-256 digest of everything read
// from r.
func SumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile opens path and returns its lowercase-hex SHA-256 digest.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return SumReader(f)
}
