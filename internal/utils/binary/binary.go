// internal/utils/binary/binary.go
package binary

import (
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrShortBuffer is reported when a read runs past the end of the data.
var ErrShortBuffer = errors.New("binary: short buffer")

// Reader walks a fixed little-endian layout. The first out-of-range read
// latches ErrShortBuffer and every later read returns zero values, so callers
// check Err once at the end.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader starts reading data at offset.
func NewReader(data []byte, offset int) *Reader {
	r := &Reader{data: data, off: offset}
	if offset > len(data) {
		r.err = ErrShortBuffer
	}
	return r
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.off < n {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.err != nil {
		return 0
	}
	return len(r.data) - r.off
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64() int64 {
	return int64(r.Uint64())
}

// Bool reads one byte (0 = false, non-zero = true).
func (r *Reader) Bool() bool {
	b := r.take(1)
	return b != nil && b[0] != 0
}

// PubKey reads a 32-byte public key.
func (r *Reader) PubKey() solana.PublicKey {
	b := r.take(32)
	if b == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}
