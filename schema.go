package rpcschema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/rpcschema/codec"
)

// Type tags understood by the preparer and the validator compiler.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeBuffer  = "buffer"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeNull    = "null"
	// TypeIDate and TypeDateLike are shorthands for {format: idate}.
	TypeIDate    = "idate"
	TypeDateLike = "date-like"
)

// Formats with built-in predicates.
const (
	FormatBuffer   = "buffer"
	FormatIDate    = "idate"
	FormatDateTime = "date-time"
)

// Schema is a node of a JSON-Schema-like tree. A tree with an assigned id is a
// fragment: the params or reply of a method, or a shared definition.
type Schema struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Ref         string `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty" yaml:"enum,omitempty"`

	// Object
	Properties           Properties  `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string    `json:"required,omitempty" yaml:"required,omitempty"`
	AdditionalProperties *Additional `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`

	// Array
	Items    *Schema `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems *int    `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems *int    `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`

	// String / number
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`

	// Composition
	OneOf []*Schema `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`
	AllOf []*Schema `json:"allOf,omitempty" yaml:"allOf,omitempty"`

	// buffers is filled on a fragment root by prepare.
	buffers []codec.Path
}

// Property is one named entry of an object schema.
type Property struct {
	Name   string
	Schema *Schema
}

// Properties keeps object properties in declaration order. The order is the
// traversal order of the preparer and therefore the wire order of buffers.
type Properties []Property

// Get returns the schema declared for name.
func (ps Properties) Get(name string) (*Schema, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// Names returns property names in declaration order.
func (ps Properties) Names() []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

// UnmarshalJSON decodes a JSON object while remembering key order.
func (ps *Properties) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*ps = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}
	out := Properties{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := kt.(string)
		if !ok {
			return fmt.Errorf("properties: expected key, got %v", kt)
		}
		var s *Schema
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("properties.%s: %w", name, err)
		}
		out = append(out, Property{Name: name, Schema: s})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*ps = out
	return nil
}

// MarshalJSON encodes properties as a JSON object in declaration order.
func (ps Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range ps {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(p.Schema)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping while remembering key order.
func (ps *Properties) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*ps = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("properties: line %d: expected mapping", value.Line)
	}
	out := make(Properties, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		var s *Schema
		if err := v.Decode(&s); err != nil {
			return fmt.Errorf("properties.%s: %w", k.Value, err)
		}
		out = append(out, Property{Name: k.Value, Schema: s})
	}
	*ps = out
	return nil
}

// Additional is the additionalProperties keyword: either a boolean or a
// schema every undeclared property must satisfy.
type Additional struct {
	Allowed bool
	Schema  *Schema
}

// Permissive reports whether undeclared properties are accepted at all.
func (a *Additional) Permissive() bool { return a != nil && (a.Allowed || a.Schema != nil) }

func (a *Additional) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	switch string(trimmed) {
	case "true":
		*a = Additional{Allowed: true}
		return nil
	case "false", "null":
		*a = Additional{}
		return nil
	}
	var s Schema
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return fmt.Errorf("additionalProperties: %w", err)
	}
	*a = Additional{Allowed: true, Schema: &s}
	return nil
}

func (a Additional) MarshalJSON() ([]byte, error) {
	if a.Schema != nil {
		return json.Marshal(a.Schema)
	}
	return json.Marshal(a.Allowed)
}

func (a *Additional) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var allowed bool
		if err := value.Decode(&allowed); err != nil {
			return fmt.Errorf("additionalProperties: line %d: %w", value.Line, err)
		}
		*a = Additional{Allowed: allowed}
		return nil
	}
	var s Schema
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("additionalProperties: %w", err)
	}
	*a = Additional{Allowed: true, Schema: &s}
	return nil
}

// Clone returns a deep copy of s. Enum values are copied shallowly.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	c.Enum = append([]any(nil), s.Enum...)
	c.Required = append([]string(nil), s.Required...)
	if s.Properties != nil {
		c.Properties = make(Properties, len(s.Properties))
		for i, p := range s.Properties {
			c.Properties[i] = Property{Name: p.Name, Schema: p.Schema.Clone()}
		}
	}
	if s.AdditionalProperties != nil {
		c.AdditionalProperties = &Additional{Allowed: s.AdditionalProperties.Allowed, Schema: s.AdditionalProperties.Schema.Clone()}
	}
	c.Items = s.Items.Clone()
	c.MinItems = cloneInt(s.MinItems)
	c.MaxItems = cloneInt(s.MaxItems)
	c.MinLength = cloneInt(s.MinLength)
	c.MaxLength = cloneInt(s.MaxLength)
	c.Minimum = cloneFloat(s.Minimum)
	c.Maximum = cloneFloat(s.Maximum)
	c.OneOf = cloneAll(s.OneOf)
	c.AnyOf = cloneAll(s.AnyOf)
	c.AllOf = cloneAll(s.AllOf)
	c.buffers = nil
	for _, p := range s.buffers {
		c.buffers = append(c.buffers, append(codec.Path(nil), p...))
	}
	return &c
}

func cloneAll(in []*Schema) []*Schema {
	if in == nil {
		return nil
	}
	out := make([]*Schema, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ---- construction helpers ----

// Object builds an object schema with the given properties in order.
func Object(props ...Property) *Schema {
	return &Schema{Type: TypeObject, Properties: Properties(props)}
}

// Prop pairs a property name with its schema.
func Prop(name string, s *Schema) Property { return Property{Name: name, Schema: s} }

// ArrayOf builds an array schema with the given item schema.
func ArrayOf(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

// Buffer builds a raw binary field.
func Buffer() *Schema { return &Schema{Type: TypeBuffer} }

// TypeOf builds a schema with only a type tag.
func TypeOf(t string) *Schema { return &Schema{Type: t} }
