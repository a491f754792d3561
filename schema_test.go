package rpcschema_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/rpcschema"
)

func TestSchema_JSONKeepsPropertyOrder(t *testing.T) {
	src := []byte(`{
		"type": "object",
		"required": ["c"],
		"properties": {
			"c": {"type": "string"},
			"a": {"type": "buffer"},
			"b": {"type": "array", "items": {"type": "integer"}, "minItems": 1},
			"n": null
		},
		"additionalProperties": {"type": "string"}
	}`)
	var s rpcschema.Schema
	if err := json.Unmarshal(src, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	names := s.Properties.Names()
	if len(names) != 4 || names[0] != "c" || names[1] != "a" || names[2] != "b" || names[3] != "n" {
		t.Fatalf("order lost: %v", names)
	}
	if n, _ := s.Properties.Get("n"); n != nil {
		t.Fatalf("null property should decode to nil schema")
	}
	if s.AdditionalProperties == nil || s.AdditionalProperties.Schema == nil || s.AdditionalProperties.Schema.Type != "string" {
		t.Fatalf("additionalProperties schema not decoded: %+v", s.AdditionalProperties)
	}
	b, _ := s.Properties.Get("b")
	if b.MinItems == nil || *b.MinItems != 1 || b.Items.Type != "integer" {
		t.Fatalf("array keywords not decoded: %+v", b)
	}
}

func TestSchema_JSONRoundTripKeepsOrder(t *testing.T) {
	s := rpcschema.Object(
		rpcschema.Prop("z", rpcschema.TypeOf("string")),
		rpcschema.Prop("a", rpcschema.Buffer()),
	)
	s.AdditionalProperties = &rpcschema.Additional{}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"object","properties":{"z":{"type":"string"},"a":{"type":"buffer"}},"additionalProperties":false}`
	if string(out) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", out, want)
	}
}

func TestSchema_YAMLKeepsPropertyOrder(t *testing.T) {
	src := []byte(`
type: object
properties:
  zz: {type: buffer}
  aa:
    type: object
    additionalProperties: true
    properties:
      when: {type: idate}
  mm: {type: string, enum: [x, y]}
additionalProperties: false
`)
	var s rpcschema.Schema
	if err := yaml.Unmarshal(src, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	names := s.Properties.Names()
	if len(names) != 3 || names[0] != "zz" || names[1] != "aa" || names[2] != "mm" {
		t.Fatalf("order lost: %v", names)
	}
	if s.AdditionalProperties == nil || s.AdditionalProperties.Permissive() {
		t.Fatalf("additionalProperties false not decoded: %+v", s.AdditionalProperties)
	}
	aa, _ := s.Properties.Get("aa")
	if !aa.AdditionalProperties.Allowed {
		t.Fatalf("additionalProperties true not decoded")
	}
	mm, _ := s.Properties.Get("mm")
	if len(mm.Enum) != 2 {
		t.Fatalf("enum not decoded: %v", mm.Enum)
	}
}

func TestSchema_CloneIsDeep(t *testing.T) {
	min := 1
	orig := rpcschema.Object(rpcschema.Prop("a", &rpcschema.Schema{Type: "string", MinLength: &min}))
	cp := orig.Clone()
	a, _ := cp.Properties.Get("a")
	a.Type = "integer"
	*a.MinLength = 5
	oa, _ := orig.Properties.Get("a")
	if oa.Type != "string" || *oa.MinLength != 1 {
		t.Fatalf("clone shares state with original: %+v", oa)
	}
}
