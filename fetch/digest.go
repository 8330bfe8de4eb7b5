package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Digester is the stream-hashing collaborator: it supplies the hash
// the terminal body is folded into. The resulting hex digest augments
// the final HopRecord after the consumer finishes.
type Digester interface {
	New() hash.Hash
}

// SHA256Digester is the default Digester.
type SHA256Digester struct{}

func (SHA256Digester) New() hash.Hash { return sha256.New() }

// digestReader tees the bytes a consumer reads through the hash.
type digestReader struct {
	r io.Reader
	h hash.Hash
}

func newDigestReader(r io.Reader, d Digester) *digestReader {
	h := d.New()
	return &digestReader{r: io.TeeReader(r, h), h: h}
}

func (d *digestReader) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

// drain folds the unread remainder into the hash so the digest covers
// the full representation even when the consumer stopped early.
func (d *digestReader) drain() error {
	_, err := io.Copy(io.Discard, d.r)
	return err
}

// sum returns the hex digest of everything read so far.
func (d *digestReader) sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
