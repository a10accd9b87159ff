package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// copyBufferSize bounds memory per checksum computation regardless of file size.
const copyBufferSize = 256 * 1024

// File computes the SHA-256 checksum of the file's contents, streaming in
// bounded chunks. Any open or read error aborts the computation; a partial
// digest is never returned.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for checksum: %w", path, err)
	}
	defer f.Close()

	sum, _, err := Sum(f)
	if err != nil {
		return "", fmt.Errorf("reading %s for checksum: %w", path, err)
	}
	return sum, nil
}

// Sum computes the SHA-256 checksum of everything readable from r and returns
// it as a lowercase hex string along with the number of bytes consumed.
func Sum(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, copyBufferSize)
	n, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
