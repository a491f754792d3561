package codec

import (
	"reflect"
	"strings"
)

// Wildcard is the path segment standing for "every element of this array".
const Wildcard = "[]"

// Path locates buffer fields inside a data object. Each segment is a property
// name or Wildcard. A path holding a Wildcard may match several fields.
type Path []string

// Child returns a copy of p extended with seg. p itself is left untouched so
// sibling branches of a schema walk never share a backing array.
func (p Path) Child(seg string) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, seg)
}

// HasWildcard reports whether the path iterates over array elements.
func (p Path) HasWildcard() bool {
	for _, seg := range p {
		if seg == Wildcard {
			return true
		}
	}
	return false
}

// String renders the path as a JSON Pointer like string, keeping "[]" for
// wildcard segments, e.g. /parts/[]/data.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		if seg == Wildcard {
			b.WriteString(seg)
			continue
		}
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(seg, "~", "~0"), "/", "~1"))
	}
	return b.String()
}

// slot is an addressable location holding one buffer field: either a map key
// or an array element.
type slot struct {
	m   map[string]any
	key string
	arr []any
	idx int
}

func (s slot) get() (any, bool) {
	if s.m != nil {
		v, ok := s.m[s.key]
		return v, ok
	}
	return s.arr[s.idx], true
}

func (s slot) set(v any) {
	if s.m != nil {
		s.m[s.key] = v
		return
	}
	s.arr[s.idx] = v
}

// visit calls fn for every slot matched by path under node, in document
// order: wildcard segments expand to array elements by ascending index.
// Missing intermediate keys or mismatched container types end the walk
// silently; they mean "no payload here". Typed containers met on the way
// ([][]byte, map[string][]byte, []map[string]any, ...) are replaced in their
// parent by their []any / map[string]any form so the slots can hold lengths.
func visit(node any, path Path, fn func(slot) error) error {
	return walk(node, nil, path, fn)
}

// walk applies path to node. replace stores a converted container back where
// node came from; it is nil for the root.
func walk(node any, replace func(any), path Path, fn func(slot) error) error {
	if len(path) == 0 {
		return nil
	}
	seg, rest := path[0], path[1:]
	if seg == Wildcard {
		list, converted, ok := asList(node)
		if !ok {
			return nil
		}
		if converted {
			if replace == nil {
				return nil
			}
			replace(list)
		}
		for i := range list {
			if err := descend(slot{arr: list, idx: i}, rest, fn); err != nil {
				return err
			}
		}
		return nil
	}
	m, converted, ok := asMap(node)
	if !ok {
		return nil
	}
	if converted {
		if replace == nil {
			return nil
		}
		replace(m)
	}
	return descend(slot{m: m, key: seg}, rest, fn)
}

func descend(s slot, rest Path, fn func(slot) error) error {
	if len(rest) == 0 {
		return fn(s)
	}
	child, ok := s.get()
	if !ok {
		return nil
	}
	return walk(child, s.set, rest, fn)
}

// asList returns v as []any. converted is set when v had to be copied out of a
// typed slice. []byte is a payload, never a list.
func asList(v any) (list []any, converted, ok bool) {
	switch a := v.(type) {
	case []any:
		return a, false, true
	case []byte, string, nil:
		return nil, false, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, false
	}
	list = make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true, true
}

// asMap returns v as map[string]any, copying typed maps with string keys.
func asMap(v any) (m map[string]any, converted, ok bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, false, t != nil
	case nil:
		return nil, false, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, false, false
	}
	m = make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true, true
}
