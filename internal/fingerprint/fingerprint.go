// Package fingerprint computes content digests of subtitle files and
// persists the path→digest mapping used for incremental-skip decisions.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a hex-encoded BLAKE3-256 digest of a file's bytes.
type Digest string

// File computes the digest of the file at path, reading it in bounded
// chunks rather than loading it whole.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}

	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}
