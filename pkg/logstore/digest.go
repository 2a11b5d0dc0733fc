package logstore

import (
	"bytes"
	"errors"

	"github.com/zeebo/blake3"
)

// errDigestMismatch means a chunk's text no longer matches the digest
// recorded when it was written.
var errDigestMismatch = errors.New("chunk digest mismatch")

// chunkDigest is the BLAKE3 digest of a chunk's uncompressed text.
func chunkDigest(text []byte) []byte {
	sum := blake3.Sum256(text)
	return sum[:]
}

// verifyDigest checks text against want. Rows written without a digest
// are accepted.
func verifyDigest(text, want []byte) error {
	if len(want) == 0 {
		return nil
	}
	if !bytes.Equal(chunkDigest(text), want) {
		return errDigestMismatch
	}
	return nil
}
