package codec_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/rpcschema/codec"
)

func TestExtractReinsert_NestedFields(t *testing.T) {
	c := codec.New([]codec.Path{{"a"}, {"b", "c"}})
	a := []byte("hello")
	bc := []byte("abc")
	obj := map[string]any{"a": a, "b": map[string]any{"c": bc}}

	bufs := c.Extract(obj)
	require.Len(t, bufs, 2)
	assert.Equal(t, a, bufs[0])
	assert.Equal(t, bc, bufs[1])
	assert.Equal(t, map[string]any{"a": 5, "b": map[string]any{"c": 3}}, obj)

	blob := codec.Concat(bufs)
	require.Equal(t, []byte("helloabc"), blob)
	require.NoError(t, c.Reinsert(obj, blob))
	assert.Equal(t, []byte("hello"), obj["a"])
	assert.Equal(t, []byte("abc"), obj["b"].(map[string]any)["c"])
}

func TestExtract_AbsentFieldIsSkipped(t *testing.T) {
	c := codec.New([]codec.Path{{"a"}, {"b", "c"}})
	obj := map[string]any{"a": []byte("hello")}

	bufs := c.Extract(obj)
	require.Len(t, bufs, 1)
	assert.Equal(t, map[string]any{"a": 5}, obj)

	require.NoError(t, c.Reinsert(obj, codec.Concat(bufs)))
	_, hasB := obj["b"]
	assert.False(t, hasB, "reinsert must not introduce b")
	assert.Equal(t, []byte("hello"), obj["a"])
}

func TestExtract_NilAndNonBytesAreSkipped(t *testing.T) {
	c := codec.New([]codec.Path{{"a"}, {"b"}, {"c"}})
	obj := map[string]any{"a": nil, "b": []byte(nil), "c": "text"}
	assert.Empty(t, c.Extract(obj))
	assert.Equal(t, map[string]any{"a": nil, "b": []byte(nil), "c": "text"}, obj)
}

func TestExtractReinsert_ZeroLengthPayload(t *testing.T) {
	c := codec.New([]codec.Path{{"empty"}, {"data"}})
	obj := map[string]any{"empty": []byte{}, "data": []byte("xy")}

	bufs := c.Extract(obj)
	require.Len(t, bufs, 2)
	assert.Equal(t, 0, obj["empty"])
	assert.Equal(t, 2, obj["data"])

	require.NoError(t, c.Reinsert(obj, codec.Concat(bufs)))
	got, ok := obj["empty"].([]byte)
	require.True(t, ok, "zero-length payload must come back as []byte, got %T", obj["empty"])
	assert.Len(t, got, 0)
	assert.Equal(t, []byte("xy"), obj["data"])
}

func TestExtractReinsert_ArrayWildcard(t *testing.T) {
	c := codec.New([]codec.Path{
		{"parts", codec.Wildcard, "data"},
		{"chunks", codec.Wildcard},
		{"tail"},
	})
	obj := map[string]any{
		"parts": []any{
			map[string]any{"data": []byte("one")},
			map[string]any{"num": 2},
			map[string]any{"data": []byte("three")},
		},
		"chunks": []any{[]byte("c1"), []byte("c22")},
		"tail":   []byte("t"),
	}

	bufs := c.Extract(obj)
	require.Len(t, bufs, 5)
	assert.Equal(t, "onethreec1c22t", string(codec.Concat(bufs)))
	assert.Equal(t, 3, obj["parts"].([]any)[0].(map[string]any)["data"])
	_, introduced := obj["parts"].([]any)[1].(map[string]any)["data"]
	assert.False(t, introduced)
	assert.Equal(t, []any{2, 3}, obj["chunks"])

	require.NoError(t, c.Reinsert(obj, codec.Concat(bufs)))
	parts := obj["parts"].([]any)
	assert.Equal(t, []byte("one"), parts[0].(map[string]any)["data"])
	assert.Equal(t, []byte("three"), parts[2].(map[string]any)["data"])
	assert.Equal(t, []any{[]byte("c1"), []byte("c22")}, obj["chunks"])
	assert.Equal(t, []byte("t"), obj["tail"])
}

func TestReinsert_AfterJSONRoundTrip(t *testing.T) {
	c := codec.New([]codec.Path{{"meta", "key"}, {"body"}})
	obj := map[string]any{"meta": map[string]any{"key": []byte("k1")}, "body": []byte("payload")}
	blob := codec.Concat(c.Extract(obj))

	wire, err := json.Marshal(obj)
	require.NoError(t, err)
	dec := json.NewDecoder(bytes.NewReader(wire))
	dec.UseNumber()
	var got map[string]any
	require.NoError(t, dec.Decode(&got))

	require.NoError(t, c.Reinsert(got, blob))
	assert.Equal(t, []byte("k1"), got["meta"].(map[string]any)["key"])
	assert.Equal(t, []byte("payload"), got["body"])
}

func TestReinsert_ShortBlob(t *testing.T) {
	c := codec.New([]codec.Path{{"a"}, {"b"}})
	obj := map[string]any{"a": 2, "b": 10}
	err := c.Reinsert(obj, []byte("abcd"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrShortBlob))
	assert.Equal(t, []byte("ab"), obj["a"])
	assert.Equal(t, 10, obj["b"])

	err = c.Reinsert(map[string]any{"a": -1}, []byte("abcd"))
	assert.ErrorIs(t, err, codec.ErrShortBlob)
}

func TestReinsert_NonIntegerLengthIsSkipped(t *testing.T) {
	c := codec.New([]codec.Path{{"a"}, {"b"}})
	obj := map[string]any{"a": 1.5, "b": 2}
	require.NoError(t, c.Reinsert(obj, []byte("xy")))
	assert.Equal(t, 1.5, obj["a"])
	assert.Equal(t, []byte("xy"), obj["b"])
}

func TestEmptyCodecIsNoop(t *testing.T) {
	var zero codec.Codec
	obj := map[string]any{"a": []byte("x")}
	assert.Nil(t, zero.Extract(obj))
	assert.NoError(t, zero.Reinsert(obj, nil))
	assert.True(t, codec.New(nil).Empty())
	assert.Equal(t, []byte("x"), obj["a"])
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "/", codec.Path{}.String())
	assert.Equal(t, "/parts/[]/data", codec.Path{"parts", codec.Wildcard, "data"}.String())
	assert.Equal(t, "/a~1b", codec.Path{"a/b"}.String())
	assert.True(t, codec.Path{"x", codec.Wildcard}.HasWildcard())

	base := codec.Path{"a"}
	left := base.Child("l")
	right := base.Child("r")
	assert.Equal(t, codec.Path{"a", "l"}, left)
	assert.Equal(t, codec.Path{"a", "r"}, right)
}

func TestExtractReinsert_NestedWildcards(t *testing.T) {
	c := codec.New([]codec.Path{{"m", codec.Wildcard, codec.Wildcard, "d"}})
	obj := map[string]any{
		"m": []any{
			[]any{map[string]any{"d": []byte("ab")}, map[string]any{}},
			[]any{},
			[]any{map[string]any{"d": []byte("c")}},
		},
	}

	bufs := c.Extract(obj)
	require.Equal(t, [][]byte{[]byte("ab"), []byte("c")}, bufs)
	m := obj["m"].([]any)
	assert.Equal(t, 2, m[0].([]any)[0].(map[string]any)["d"])
	assert.Equal(t, 1, m[2].([]any)[0].(map[string]any)["d"])

	require.NoError(t, c.Reinsert(obj, codec.Concat(bufs)))
	assert.Equal(t, []byte("ab"), m[0].([]any)[0].(map[string]any)["d"])
	assert.Equal(t, []byte("c"), m[2].([]any)[0].(map[string]any)["d"])
	_, introduced := m[0].([]any)[1].(map[string]any)["d"]
	assert.False(t, introduced)
}

func TestExtractReinsert_TypedContainers(t *testing.T) {
	c := codec.New([]codec.Path{
		{"chunks", codec.Wildcard},
		{"b", "c"},
		{"parts", codec.Wildcard, "data"},
	})
	obj := map[string]any{
		"chunks": [][]byte{[]byte("abc"), []byte("de")},
		"b":      map[string][]byte{"c": []byte("xyz")},
		"parts":  []map[string]any{{"data": []byte("p")}},
	}

	bufs := c.Extract(obj)
	require.Equal(t, [][]byte{[]byte("abc"), []byte("de"), []byte("xyz"), []byte("p")}, bufs)
	assert.Equal(t, []any{3, 2}, obj["chunks"])
	assert.Equal(t, map[string]any{"c": 3}, obj["b"])
	assert.Equal(t, []any{map[string]any{"data": 1}}, obj["parts"])

	require.NoError(t, c.Reinsert(obj, codec.Concat(bufs)))
	assert.Equal(t, []any{[]byte("abc"), []byte("de")}, obj["chunks"])
	assert.Equal(t, map[string]any{"c": []byte("xyz")}, obj["b"])
	assert.Equal(t, []any{map[string]any{"data": []byte("p")}}, obj["parts"])
}
