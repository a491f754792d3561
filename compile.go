package rpcschema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/reoring/rpcschema/i18n"
)

// checkFn validates one value located at `at` and appends what it finds.
type checkFn func(v any, at pathRef, iss *Issues)

// Validator is the compiled form of a prepared fragment. The schema is
// interpreted once at compile time; Validate only runs closures. A Validator
// is immutable and safe for concurrent use.
type Validator struct {
	id    string
	check checkFn
}

// Validate returns nil when v conforms, or the Issues found otherwise.
func (val *Validator) Validate(v any) error {
	if iss := val.Issues(v); len(iss) > 0 {
		return iss
	}
	return nil
}

// Issues returns every issue found in v (nil when v conforms).
func (val *Validator) Issues(v any) Issues {
	var iss Issues
	val.check(v, pathRef{}, &iss)
	return iss
}

// compiler carries what a fragment needs beyond its own tree: the format
// table and the lookup used for $ref targets.
type compiler struct {
	formats map[string]FormatFunc
	resolve func(id string) (*Validator, bool)
	base    string
}

func compile(root *Schema, c *compiler) (*Validator, error) {
	c.base = root.ID
	fn, err := c.node(root, "#")
	if err != nil {
		return nil, err
	}
	return &Validator{id: root.ID, check: fn}, nil
}

func (c *compiler) node(s *Schema, sp string) (checkFn, error) {
	if s == nil {
		return func(any, pathRef, *Issues) {}, nil
	}
	if s.Ref != "" {
		return c.ref(normalizeRef(s.Ref, c.base), sp+"/$ref"), nil
	}

	var checks []checkFn
	if s.Type != "" {
		checks = append(checks, typeCheck(s.Type, sp+"/type"))
	}
	if len(s.Enum) > 0 {
		checks = append(checks, enumCheck(s.Enum, sp+"/enum"))
	}
	if s.Format != "" {
		if f, ok := c.formats[s.Format]; ok {
			checks = append(checks, formatCheck(s.Format, f, sp+"/format"))
		}
	}
	sc, err := stringChecks(s, sp)
	if err != nil {
		return nil, err
	}
	checks = append(checks, sc...)
	if s.Minimum != nil || s.Maximum != nil {
		checks = append(checks, rangeCheck(s.Minimum, s.Maximum, sp))
	}
	if len(s.Properties) > 0 || len(s.Required) > 0 || s.AdditionalProperties != nil {
		oc, err := c.objectCheck(s, sp)
		if err != nil {
			return nil, err
		}
		checks = append(checks, oc)
	}
	if s.Items != nil || s.MinItems != nil || s.MaxItems != nil {
		ac, err := c.arrayCheck(s, sp)
		if err != nil {
			return nil, err
		}
		checks = append(checks, ac)
	}
	for _, comp := range []struct {
		kw       string
		branches []*Schema
	}{{"oneOf", s.OneOf}, {"anyOf", s.AnyOf}, {"allOf", s.AllOf}} {
		if len(comp.branches) == 0 {
			continue
		}
		cc, err := c.composite(comp.kw, comp.branches, sp)
		if err != nil {
			return nil, err
		}
		checks = append(checks, cc)
	}

	hasType := s.Type != ""
	return func(v any, at pathRef, iss *Issues) {
		for i, ch := range checks {
			before := len(*iss)
			ch(v, at, iss)
			// a wrong type makes the remaining keywords meaningless
			if i == 0 && hasType && len(*iss) > before {
				return
			}
		}
	}, nil
}

func typeCheck(t, sp string) checkFn {
	return func(v any, at pathRef, iss *Issues) {
		if !matchesType(t, v) {
			*iss = append(*iss, at.Issue(CodeInvalidType, sp, map[string]any{"expected": t, "got": typeName(v)}))
		}
	}
}

func enumCheck(values []any, sp string) checkFn {
	return func(v any, at pathRef, iss *Issues) {
		for _, e := range values {
			if equalValues(e, v) {
				return
			}
		}
		*iss = append(*iss, at.Issue(CodeInvalidEnum, sp, map[string]any{"allowed": values}))
	}
}

func formatCheck(name string, f FormatFunc, sp string) checkFn {
	return func(v any, at pathRef, iss *Issues) {
		if !f(v) {
			*iss = append(*iss, at.Issue(CodeInvalidFormat, sp, map[string]any{"format": name}))
		}
	}
}

func stringChecks(s *Schema, sp string) ([]checkFn, error) {
	var checks []checkFn
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/pattern: %v", ErrInvalidSchema, sp, err)
		}
		psp := sp + "/pattern"
		checks = append(checks, func(v any, at pathRef, iss *Issues) {
			if str, ok := v.(string); ok && !re.MatchString(str) {
				*iss = append(*iss, at.Issue(CodePattern, psp, map[string]any{"pattern": re.String()}))
			}
		})
	}
	if s.MinLength != nil || s.MaxLength != nil {
		minL, maxL := s.MinLength, s.MaxLength
		checks = append(checks, func(v any, at pathRef, iss *Issues) {
			str, ok := v.(string)
			if !ok {
				return
			}
			n := utf8.RuneCountInString(str)
			if minL != nil && n < *minL {
				*iss = append(*iss, at.Issue(CodeTooShort, sp+"/minLength", map[string]any{"min": *minL, "got": n}))
			}
			if maxL != nil && n > *maxL {
				*iss = append(*iss, at.Issue(CodeTooLong, sp+"/maxLength", map[string]any{"max": *maxL, "got": n}))
			}
		})
	}
	return checks, nil
}

func rangeCheck(minV, maxV *float64, sp string) checkFn {
	return func(v any, at pathRef, iss *Issues) {
		f, ok := toFloat(v)
		if !ok {
			return
		}
		if minV != nil && f < *minV {
			*iss = append(*iss, at.Issue(CodeTooSmall, sp+"/minimum", map[string]any{"min": *minV, "got": f}))
		}
		if maxV != nil && f > *maxV {
			*iss = append(*iss, at.Issue(CodeTooBig, sp+"/maximum", map[string]any{"max": *maxV, "got": f}))
		}
	}
}

type propCheck struct {
	name  string
	check checkFn
}

func (c *compiler) objectCheck(s *Schema, sp string) (checkFn, error) {
	props := make([]propCheck, 0, len(s.Properties))
	declared := make(map[string]struct{}, len(s.Properties))
	for _, p := range s.Properties {
		declared[p.Name] = struct{}{}
		if p.Schema == nil {
			continue
		}
		fn, err := c.node(p.Schema, sp+"/properties/"+p.Name)
		if err != nil {
			return nil, err
		}
		props = append(props, propCheck{name: p.Name, check: fn})
	}
	required := append([]string(nil), s.Required...)

	// nil additionalProperties (an unprepared schema) stays permissive as in
	// plain JSON Schema; prepare closes objects explicitly.
	var (
		rejectUnknown bool
		extra         checkFn
	)
	if a := s.AdditionalProperties; a != nil {
		switch {
		case a.Schema != nil:
			fn, err := c.node(a.Schema, sp+"/additionalProperties")
			if err != nil {
				return nil, err
			}
			extra = fn
		case !a.Allowed:
			rejectUnknown = true
		}
	}
	addSP := sp + "/additionalProperties"
	reqSP := sp + "/required"

	return func(v any, at pathRef, iss *Issues) {
		m, ok := asObject(v)
		if !ok {
			return
		}
		for _, name := range required {
			if _, ok := m[name]; !ok {
				*iss = append(*iss, at.Field(name).Issue(CodeRequired, reqSP, map[string]any{"property": name}))
			}
		}
		for _, p := range props {
			if pv, ok := m[p.name]; ok {
				p.check(pv, at.Field(p.name), iss)
			}
		}
		if !rejectUnknown && extra == nil {
			return
		}
		var unknown []string
		for k := range m {
			if _, ok := declared[k]; !ok {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		for _, k := range unknown {
			if rejectUnknown {
				*iss = append(*iss, at.Field(k).Issue(CodeUnknownKey, addSP, map[string]any{"key": k}))
				continue
			}
			extra(m[k], at.Field(k), iss)
		}
	}, nil
}

func (c *compiler) arrayCheck(s *Schema, sp string) (checkFn, error) {
	var item checkFn
	if s.Items != nil {
		fn, err := c.node(s.Items, sp+"/items")
		if err != nil {
			return nil, err
		}
		item = fn
	}
	minI, maxI := s.MinItems, s.MaxItems
	return func(v any, at pathRef, iss *Issues) {
		arr, ok := asArray(v)
		if !ok {
			return
		}
		if minI != nil && len(arr) < *minI {
			*iss = append(*iss, at.Issue(CodeTooShort, sp+"/minItems", map[string]any{"min": *minI, "got": len(arr)}))
		}
		if maxI != nil && len(arr) > *maxI {
			*iss = append(*iss, at.Issue(CodeTooLong, sp+"/maxItems", map[string]any{"max": *maxI, "got": len(arr)}))
		}
		if item == nil {
			return
		}
		for i, el := range arr {
			item(el, at.Index(i), iss)
		}
	}, nil
}

func (c *compiler) composite(kw string, branches []*Schema, sp string) (checkFn, error) {
	fns := make([]checkFn, len(branches))
	for i, b := range branches {
		fn, err := c.node(b, fmt.Sprintf("%s/%s/%d", sp, kw, i))
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	ksp := sp + "/" + kw
	if kw == "allOf" {
		return func(v any, at pathRef, iss *Issues) {
			for _, fn := range fns {
				fn(v, at, iss)
			}
		}, nil
	}
	oneOf := kw == "oneOf"
	return func(v any, at pathRef, iss *Issues) {
		matches := 0
		for _, fn := range fns {
			var sub Issues
			fn(v, at, &sub)
			if len(sub) == 0 {
				matches++
				if !oneOf {
					return
				}
			}
		}
		switch {
		case matches == 0:
			*iss = append(*iss, at.Issue(CodeNoMatch, ksp, map[string]any{"branches": len(fns)}))
		case oneOf && matches > 1:
			*iss = append(*iss, at.Issue(CodeUnionAmbiguous, ksp, map[string]any{"matches": matches}))
		}
	}, nil
}

// ref resolves its target lazily so fragments may point at definitions of
// API groups registered later, and at themselves. The first successful
// lookup is cached.
func (c *compiler) ref(id, sp string) checkFn {
	var cached atomic.Pointer[Validator]
	resolve := c.resolve
	return func(v any, at pathRef, iss *Issues) {
		target := cached.Load()
		if target == nil {
			var ok bool
			if resolve != nil {
				target, ok = resolve(id)
			}
			if !ok {
				*iss = append(*iss, at.Issue(CodeUnresolvedRef, sp, map[string]any{"ref": id}))
				return
			}
			cached.Store(target)
		}
		target.check(v, at, iss)
	}
}

// normalizeRef maps the accepted reference spellings onto fragment ids:
//
//	/common_api/definitions/bucket_info   (an id, used as is)
//	common_api#/definitions/bucket_info   (api qualified pointer)
//	#/definitions/bucket_info             (same api as the referring fragment)
func normalizeRef(ref, base string) string {
	i := strings.Index(ref, "#")
	if i < 0 {
		return ref
	}
	api := strings.Trim(ref[:i], "/")
	if api == "" {
		api = apiOf(base)
	}
	return "/" + api + ref[i+1:]
}

func apiOf(id string) string {
	id = strings.TrimPrefix(id, "/")
	if i := strings.Index(id, "/"); i >= 0 {
		return id[:i]
	}
	return id
}

func message(code string, params map[string]any) string {
	var data map[string]string
	if len(params) > 0 {
		data = make(map[string]string, len(params))
		for k, v := range params {
			data[k] = fmt.Sprint(v)
		}
	}
	return i18n.T(code, data)
}
