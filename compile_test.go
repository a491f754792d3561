package rpcschema_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/rpcschema"
)

func mustFragment(t *testing.T, s *rpcschema.Schema, opts ...rpcschema.Option) *rpcschema.Fragment {
	t.Helper()
	f, err := rpcschema.NewFragment("/test_api/definitions/subject", s, opts...)
	require.NoError(t, err)
	return f
}

func codes(iss rpcschema.Issues) []string {
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Code + "@" + it.Path
	}
	return out
}

func TestValidate_DateLike(t *testing.T) {
	f := mustFragment(t, rpcschema.Object(rpcschema.Prop("x", rpcschema.TypeOf(rpcschema.TypeDateLike))))

	err := f.Validate(map[string]any{"x": "not-a-date"})
	require.Error(t, err)
	iss, ok := rpcschema.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, []string{"invalid_format@/x"}, codes(iss))

	for _, good := range []any{
		"2024-01-01T00:00:00Z",
		"2024-01-01",
		"2024-01-01T10:20:30.123456789+02:00",
		float64(1704067200000),
		json.Number("1704067200000"),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		assert.NoError(t, f.Validate(map[string]any{"x": good}), "value %v", good)
	}
	assert.Error(t, f.Validate(map[string]any{"x": 1.5}))
	assert.Error(t, f.Validate(map[string]any{"x": true}))
}

func TestValidate_UnknownPropertyRejectedUntilRemoved(t *testing.T) {
	f := mustFragment(t, rpcschema.Object(
		rpcschema.Prop("name", rpcschema.TypeOf(rpcschema.TypeString)),
		rpcschema.Prop("inner", rpcschema.Object(rpcschema.Prop("n", rpcschema.TypeOf(rpcschema.TypeInteger)))),
	))

	candidate := map[string]any{"name": "a", "inner": map[string]any{"n": 1, "extra": true}, "zzz": 1}
	iss, _ := rpcschema.AsIssues(f.Validate(candidate))
	assert.Equal(t, []string{"unknown_key@/inner/extra", "unknown_key@/zzz"}, codes(iss))

	delete(candidate, "zzz")
	delete(candidate["inner"].(map[string]any), "extra")
	assert.NoError(t, f.Validate(candidate))
}

func TestValidate_PermissiveAndTypedAdditional(t *testing.T) {
	open := rpcschema.Object(rpcschema.Prop("a", rpcschema.TypeOf(rpcschema.TypeString)))
	open.AdditionalProperties = &rpcschema.Additional{Allowed: true}
	f := mustFragment(t, open)
	assert.NoError(t, f.Validate(map[string]any{"a": "x", "anything": []any{1}}))

	typed := rpcschema.Object()
	typed.AdditionalProperties = &rpcschema.Additional{Allowed: true, Schema: rpcschema.TypeOf(rpcschema.TypeInteger)}
	f = mustFragment(t, typed)
	assert.NoError(t, f.Validate(map[string]any{"a": 1, "b": 2}))
	iss, _ := rpcschema.AsIssues(f.Validate(map[string]any{"a": 1, "b": "two"}))
	assert.Equal(t, []string{"invalid_type@/b"}, codes(iss))
}

func TestValidate_StructuralKeywords(t *testing.T) {
	minLen, maxItems := 2, 2
	lo, hi := 1.0, 10.0
	s := rpcschema.Object(
		rpcschema.Prop("name", &rpcschema.Schema{Type: rpcschema.TypeString, MinLength: &minLen, Pattern: "^[a-z]+$"}),
		rpcschema.Prop("mode", &rpcschema.Schema{Type: rpcschema.TypeString, Enum: []any{"ro", "rw"}}),
		rpcschema.Prop("size", &rpcschema.Schema{Type: rpcschema.TypeInteger, Minimum: &lo, Maximum: &hi}),
		rpcschema.Prop("tags", &rpcschema.Schema{Type: rpcschema.TypeArray, MaxItems: &maxItems, Items: rpcschema.TypeOf(rpcschema.TypeString)}),
	)
	s.Required = []string{"name", "mode"}
	f := mustFragment(t, s)

	assert.NoError(t, f.Validate(map[string]any{"name": "ab", "mode": "rw", "size": 3, "tags": []any{"x"}}))
	assert.NoError(t, f.Validate(map[string]any{"name": "ab", "mode": "ro", "size": json.Number("10"), "tags": []string{"x", "y"}}))

	iss, _ := rpcschema.AsIssues(f.Validate(map[string]any{
		"name": "A",
		"mode": "x",
		"size": 11,
		"tags": []any{"a", 2, "c"},
	}))
	assert.Equal(t, []string{
		"pattern@/name",
		"too_short@/name",
		"invalid_enum@/mode",
		"too_big@/size",
		"too_long@/tags",
		"invalid_type@/tags/1",
	}, codes(iss))

	iss, _ = rpcschema.AsIssues(f.Validate(map[string]any{"size": 2.5}))
	assert.Equal(t, []string{"required@/name", "required@/mode", "invalid_type@/size"}, codes(iss))

	iss, _ = rpcschema.AsIssues(f.Validate("not an object"))
	assert.Equal(t, []string{"invalid_type@/"}, codes(iss))
	assert.Equal(t, "#/type", iss[0].SchemaPath)
}

func TestValidate_BufferFieldAcceptsPayloadOrLength(t *testing.T) {
	f := mustFragment(t, rpcschema.Object(rpcschema.Prop("data", rpcschema.Buffer())))
	assert.NoError(t, f.Validate(map[string]any{"data": []byte("abc")}))
	assert.NoError(t, f.Validate(map[string]any{"data": 3}))
	assert.NoError(t, f.Validate(map[string]any{"data": json.Number("3")}))
	assert.NoError(t, f.Validate(map[string]any{}))
	assert.Error(t, f.Validate(map[string]any{"data": "abc"}))
	assert.Error(t, f.Validate(map[string]any{"data": -1}))

	obj := map[string]any{"data": []byte("abc")}
	f.Extract(obj)
	assert.NoError(t, f.Validate(obj), "length-encoded form must validate")
}

func TestValidate_Composition(t *testing.T) {
	s := rpcschema.Object(
		rpcschema.Prop("id", &rpcschema.Schema{OneOf: []*rpcschema.Schema{
			rpcschema.TypeOf(rpcschema.TypeString),
			rpcschema.TypeOf(rpcschema.TypeInteger),
		}}),
		rpcschema.Prop("num", &rpcschema.Schema{OneOf: []*rpcschema.Schema{
			rpcschema.TypeOf(rpcschema.TypeNumber),
			rpcschema.TypeOf(rpcschema.TypeInteger),
		}}),
		rpcschema.Prop("opt", &rpcschema.Schema{AnyOf: []*rpcschema.Schema{
			rpcschema.TypeOf(rpcschema.TypeNull),
			rpcschema.TypeOf(rpcschema.TypeString),
		}}),
	)
	f := mustFragment(t, s)
	assert.NoError(t, f.Validate(map[string]any{"id": "x", "num": 1.5, "opt": nil}))

	iss, _ := rpcschema.AsIssues(f.Validate(map[string]any{"id": true, "num": 2, "opt": 3}))
	assert.Equal(t, []string{"no_match@/id", "union_ambiguous@/num", "no_match@/opt"}, codes(iss))
}

func TestValidate_CustomFormat(t *testing.T) {
	isBucket := func(v any) bool {
		s, ok := v.(string)
		return ok && len(s) >= 3 && strings.ToLower(s) == s
	}
	s := rpcschema.Object(rpcschema.Prop("bucket", &rpcschema.Schema{Type: rpcschema.TypeString, Format: "bucket_name"}))
	f := mustFragment(t, s, rpcschema.WithFormat("bucket_name", isBucket))
	assert.NoError(t, f.Validate(map[string]any{"bucket": "photos"}))
	assert.Error(t, f.Validate(map[string]any{"bucket": "Ph"}))

	// unknown formats are annotations only
	g := mustFragment(t, s)
	assert.NoError(t, g.Validate(map[string]any{"bucket": "Ph"}))
}

func TestNewFragment_InvalidPattern(t *testing.T) {
	_, err := rpcschema.NewFragment("/x/definitions/y", rpcschema.Object(
		rpcschema.Prop("p", &rpcschema.Schema{Type: rpcschema.TypeString, Pattern: "("}),
	))
	assert.ErrorIs(t, err, rpcschema.ErrInvalidSchema)
}

func TestValidate_UnresolvedRefOutsideRegistry(t *testing.T) {
	f := mustFragment(t, rpcschema.Object(rpcschema.Prop("info", &rpcschema.Schema{Ref: "#/definitions/missing"})))
	iss, _ := rpcschema.AsIssues(f.Validate(map[string]any{"info": 1}))
	require.Len(t, iss, 1)
	assert.Equal(t, rpcschema.CodeUnresolvedRef, iss[0].Code)
	assert.Equal(t, "/test_api/definitions/missing", iss[0].Params["ref"])
}

func TestNewFragment_DoesNotMutateInput(t *testing.T) {
	in := rpcschema.Object(rpcschema.Prop("data", rpcschema.Buffer()))
	_ = mustFragment(t, in)
	data, _ := in.Properties.Get("data")
	assert.Equal(t, rpcschema.TypeBuffer, data.Type)
	assert.Nil(t, in.AdditionalProperties)
}
