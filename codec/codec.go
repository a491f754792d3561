// Package codec splits raw binary payloads out of a JSON-like data object and
// puts them back.
//
// Extract replaces every buffer field with its byte length and returns the
// buffers in path order; the transport concatenates them into one blob that
// travels next to the length-encoded envelope. Reinsert walks the same paths
// on the receiving side and slices the blob back into the fields. Both sides
// must use the Codec built from the same schema fragment.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrShortBlob is returned by Reinsert when the recorded lengths do not fit
// the blob that was received.
var ErrShortBlob = errors.New("codec: blob shorter than recorded buffer lengths")

// Codec is the immutable extraction/reinsertion pair for one fragment. The
// zero value (and a Codec with no paths) is a valid no-op codec.
type Codec struct {
	paths []Path
}

// New returns a Codec over the given paths. The order of paths is the wire
// order of the buffers in the blob.
func New(paths []Path) *Codec {
	cp := make([]Path, len(paths))
	for i, p := range paths {
		cp[i] = append(Path(nil), p...)
	}
	return &Codec{paths: cp}
}

// Paths returns a copy of the buffer paths in wire order.
func (c *Codec) Paths() []Path {
	if c == nil {
		return nil
	}
	out := make([]Path, len(c.paths))
	for i, p := range c.paths {
		out[i] = append(Path(nil), p...)
	}
	return out
}

// Empty reports whether the codec has no buffer fields at all.
func (c *Codec) Empty() bool { return c == nil || len(c.paths) == 0 }

// Extract moves the buffers out of obj. Every []byte found on a path is
// appended to the result and replaced in obj by its length. Fields that are
// absent, nil or not a []byte are left untouched and contribute nothing; a
// non-nil empty []byte is a real zero-length payload and is extracted.
// Typed containers on a buffer path, such as [][]byte or map[string][]byte,
// are rewritten in obj as []any and map[string]any.
func (c *Codec) Extract(obj map[string]any) [][]byte {
	if c.Empty() || obj == nil {
		return nil
	}
	var bufs [][]byte
	for _, p := range c.paths {
		_ = visit(obj, p, func(s slot) error {
			v, ok := s.get()
			if !ok {
				return nil
			}
			b, ok := v.([]byte)
			if !ok || b == nil {
				return nil
			}
			bufs = append(bufs, b)
			s.set(len(b))
			return nil
		})
	}
	return bufs
}

// Reinsert is the inverse of Extract. It walks the paths in the same order
// with a running offset into blob; every field holding an integer length
// receives the next length bytes of blob. Fields without an integer are
// skipped and do not advance the offset. The returned slices alias blob.
//
// A length that is negative or runs past the end of blob yields an error
// wrapping ErrShortBlob; fields visited before the failure keep their
// reinserted values.
func (c *Codec) Reinsert(obj map[string]any, blob []byte) error {
	if c.Empty() || obj == nil {
		return nil
	}
	off := 0
	for _, p := range c.paths {
		err := visit(obj, p, func(s slot) error {
			v, ok := s.get()
			if !ok {
				return nil
			}
			n, ok := lengthOf(v)
			if !ok {
				return nil
			}
			if n < 0 || n > len(blob)-off {
				return fmt.Errorf("%w: %s wants %d bytes at offset %d of %d", ErrShortBlob, p, n, off, len(blob))
			}
			s.set(blob[off : off+n : off+n])
			off += n
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Concat joins extracted buffers into the blob sent on the wire.
func Concat(bufs [][]byte) []byte {
	out := make([]byte, 0, Len(bufs))
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

// Len returns the total size of bufs once concatenated.
func Len(bufs [][]byte) int {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n
}

// lengthOf accepts the integer forms a length can take after the envelope
// went through a JSON or YAML round trip.
func lengthOf(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case float32:
		f := float64(n)
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
