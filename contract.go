package rpcschema

import (
	"fmt"

	"github.com/rs/zerolog"
)

// HTTP verbs a method may declare.
const (
	VerbGet    = "GET"
	VerbPut    = "PUT"
	VerbPost   = "POST"
	VerbDelete = "DELETE"
)

var validVerbs = map[string]struct{}{
	VerbGet:    {},
	VerbPut:    {},
	VerbPost:   {},
	VerbDelete: {},
}

// ValidVerb reports whether verb is one of GET, PUT, POST and DELETE.
func ValidVerb(verb string) bool {
	_, ok := validVerbs[verb]
	return ok
}

// MethodContract is the compiled contract of one RPC method.
type MethodContract struct {
	Name     string // method name inside its API group
	API      string // owning API group
	Verb     string // GET, PUT, POST or DELETE
	FullName string // /<api>/methods/<name>
	Doc      string
	Auth     any

	Params *Fragment
	Reply  *Fragment

	log     zerolog.Logger
	metrics *contractMetrics
}

// ParamsProperties returns the declared top level params properties.
func (m *MethodContract) ParamsProperties() Properties { return m.Params.schema.Properties }

// ValidateParams checks params against the method contract. label names the
// calling side in errors and logs.
func (m *MethodContract) ValidateParams(params any, label string) error {
	return m.validate(m.Params, KindParams, params, label)
}

// ValidateReply checks reply against the method contract.
func (m *MethodContract) ValidateReply(reply any, label string) error {
	return m.validate(m.Reply, KindReply, reply, label)
}

func (m *MethodContract) validate(f *Fragment, kind ContractKind, v any, label string) error {
	iss := f.validator.Issues(v)
	m.metrics.observe(m.FullName, kind, len(iss) == 0)
	if len(iss) == 0 {
		return nil
	}
	err := &ContractError{MethodID: m.FullName, Label: label, Kind: kind, Issues: iss}
	m.log.Error().
		Str("method", m.FullName).
		Str("kind", string(kind)).
		Str("label", label).
		Interface("issues", iss).
		Msg("invalid " + string(kind) + " schema")
	if ev := m.log.Debug(); ev.Enabled() {
		ev.Str("method", m.FullName).
			Str("kind", string(kind)).
			Interface("value", withoutPayloads(v)).
			Msg("rejected value")
	}
	return err
}

// withoutPayloads copies v with every []byte replaced by a short size note,
// so raw buffers never reach the log.
func withoutPayloads(v any) any {
	switch t := v.(type) {
	case []byte:
		return fmt.Sprintf("[%d bytes]", len(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = withoutPayloads(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = withoutPayloads(e)
		}
		return out
	case [][]byte:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = withoutPayloads(e)
		}
		return out
	case map[string][]byte:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = withoutPayloads(e)
		}
		return out
	}
	return v
}
