package rpcschema

import (
	"github.com/reoring/rpcschema/codec"
)

// Fragment is a prepared and compiled schema tree with a stable id. It is
// immutable once built and shared by every call that uses it.
type Fragment struct {
	id        string
	schema    *Schema
	validator *Validator
	codec     *codec.Codec
}

// NewFragment prepares and compiles a standalone fragment outside of any
// registry. s is copied first; $ref keywords cannot be resolved.
func NewFragment(id string, s *Schema, opts ...Option) (*Fragment, error) {
	r := NewRegistry(opts...)
	return r.buildFragment(id, s.Clone())
}

// ID returns the fragment id, e.g. /object_api/methods/upload_part/params.
func (f *Fragment) ID() string { return f.id }

// Schema returns the prepared schema. Callers must treat it as read-only.
func (f *Fragment) Schema() *Schema { return f.schema }

// BufferPaths returns the buffer paths in wire order.
func (f *Fragment) BufferPaths() []codec.Path { return f.codec.Paths() }

// Codec returns the buffer extraction/reinsertion pair of the fragment.
func (f *Fragment) Codec() *codec.Codec { return f.codec }

// Validator returns the compiled validator.
func (f *Fragment) Validator() *Validator { return f.validator }

// Validate checks v against the fragment and returns Issues on failure.
func (f *Fragment) Validate(v any) error { return f.validator.Validate(v) }

// Extract moves the buffers out of obj; see codec.Codec.Extract.
func (f *Fragment) Extract(obj map[string]any) [][]byte { return f.codec.Extract(obj) }

// Reinsert restores the buffers from blob; see codec.Codec.Reinsert.
func (f *Fragment) Reinsert(obj map[string]any, blob []byte) error {
	return f.codec.Reinsert(obj, blob)
}
