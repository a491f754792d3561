package rpcschema

import (
	"fmt"

	"github.com/reoring/rpcschema/codec"
)

// prepare rewrites the fragment rooted at root in place and records its
// buffer paths on the root:
//   - buffer fields lose their type tag and additionalProperties and get
//     format=buffer, so their wire value (a length) validates generically;
//   - object nodes reject unknown properties unless additionalProperties is
//     set explicitly;
//   - date-like type shorthands become format=idate.
//
// Paths are recorded depth first, properties in declaration order, array
// items under a Wildcard segment. $ref targets are not followed: a buffer must
// be declared in the fragment that carries it.
func prepare(root *Schema) error {
	var paths []codec.Path
	if err := prepareNode(root, nil, &paths); err != nil {
		return err
	}
	root.buffers = paths
	return nil
}

func prepareNode(s *Schema, path codec.Path, out *[]codec.Path) error {
	switch s.Type {
	case TypeBuffer:
		if len(path) == 0 {
			return ErrRootBuffer
		}
		s.Type = ""
		s.AdditionalProperties = nil
		s.Format = FormatBuffer
		*out = append(*out, path)
	case TypeArray:
		if s.Items != nil {
			return prepareNode(s.Items, path.Child(codec.Wildcard), out)
		}
	case TypeObject:
		if s.AdditionalProperties == nil {
			s.AdditionalProperties = &Additional{}
		}
		seen := make(map[string]struct{}, len(s.Properties))
		for _, p := range s.Properties {
			if _, dup := seen[p.Name]; dup {
				return fmt.Errorf("%w: property %q declared twice at %s", ErrInvalidSchema, p.Name, path)
			}
			seen[p.Name] = struct{}{}
			if p.Schema == nil {
				continue
			}
			if err := prepareNode(p.Schema, path.Child(p.Name), out); err != nil {
				return err
			}
		}
	case TypeIDate, TypeDateLike:
		s.Type = ""
		s.Format = FormatIDate
	}
	return nil
}
