// Package content derives stable identifiers for uploaded gallery
// files. Identical bytes always produce the same key, so re-uploads
// dedupe at the object layer for free.
package content

import (
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the digest length in bytes. 256-bit is plenty for
// dedupe keys and keeps object names short.
const HashSize = 32

// Hash streams r through BLAKE2b-256 and returns the hex digest.
func Hash(r io.Reader) (string, int64, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// HashBytes is the in-memory variant for already-buffered uploads.
func HashBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ObjectKey builds the canonical object name for an order's asset:
// orders/<order-id>/<digest><ext>. The original filename only
// contributes its extension; everything else is untrusted input.
func ObjectKey(orderID, digest, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("orders/%s/%s%s", orderID, digest, ext)
}
