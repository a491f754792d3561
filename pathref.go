package rpcschema

import (
	"strconv"
	"strings"
)

// pathRef builds JSON Pointer paths in a chain-safe way. Values are never
// mutated so a pathRef can be shared by sibling branches of the validator.
type pathRef struct {
	parts []string
}

func (p pathRef) Field(name string) pathRef {
	// escape '~' -> '~0', '/' -> '~1' per RFC6901
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return pathRef{parts: append(append(make([]string, 0, len(p.parts)+1), p.parts...), esc)}
}

func (p pathRef) Index(i int) pathRef {
	return pathRef{parts: append(append(make([]string, 0, len(p.parts)+1), p.parts...), strconv.Itoa(i))}
}

func (p pathRef) Pointer() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

func (p pathRef) Issue(code, schemaPath string, params map[string]any) Issue {
	return Issue{Path: p.Pointer(), Code: code, Message: message(code, params), SchemaPath: schemaPath, Params: params}
}
