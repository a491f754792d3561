// Package apifile loads API group descriptions from JSON and YAML files.
//
// A file holds one API group (JSON) or one or more YAML documents, each an
// API group:
//
//	name: object_api
//	definitions:
//	  part_info:
//	    type: object
//	    properties: {...}
//	methods:
//	  upload_part:
//	    method: PUT
//	    params: {...}
//	    reply: {...}
//
// Property order is kept as written; it decides the wire order of buffers.
package apifile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/rpcschema"
)

// ErrUnknownExtension is returned for files that are neither JSON nor YAML.
var ErrUnknownExtension = errors.New("apifile: unknown file extension")

// ParseJSON decodes a single API group from JSON. Duplicate keys anywhere
// in the document are rejected.
func ParseJSON(data []byte) (*rpcschema.API, error) {
	if err := CheckDuplicateKeys(data); err != nil {
		return nil, fmt.Errorf("apifile: invalid JSON: %w", err)
	}
	var api rpcschema.API
	if err := json.Unmarshal(data, &api); err != nil {
		return nil, fmt.Errorf("apifile: invalid JSON: %w", err)
	}
	return &api, nil
}

// ParseYAML decodes every document of a (multi-document) YAML stream.
// Empty documents are skipped.
func ParseYAML(data []byte) ([]*rpcschema.API, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []*rpcschema.API
	for {
		var api rpcschema.API
		if err := dec.Decode(&api); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("apifile: invalid YAML: %w", err)
		}
		if api.Name == "" && len(api.Methods) == 0 && len(api.Definitions) == 0 {
			continue
		}
		out = append(out, &api)
	}
	return out, nil
}

// LoadFile reads path and decodes it according to its extension
// (.json, .yaml, .yml).
func LoadFile(path string) ([]*rpcschema.API, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		api, err := ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []*rpcschema.API{api}, nil
	case ".yaml", ".yml":
		apis, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return apis, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, path)
	}
}

// LoadDir loads every JSON/YAML file directly under dir, in file name order.
func LoadDir(dir string) ([]*rpcschema.API, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	var out []*rpcschema.API
	for _, n := range names {
		apis, err := LoadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		out = append(out, apis...)
	}
	return out, nil
}

// RegisterFiles loads every file (or directory) in paths and registers the
// API groups in load order. It stops at the first error.
func RegisterFiles(r *rpcschema.Registry, paths ...string) ([]*rpcschema.APIGroup, error) {
	var groups []*rpcschema.APIGroup
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return groups, err
		}
		var apis []*rpcschema.API
		if st.IsDir() {
			apis, err = LoadDir(p)
		} else {
			apis, err = LoadFile(p)
		}
		if err != nil {
			return groups, err
		}
		for _, api := range apis {
			g, err := r.Register(api)
			if err != nil {
				return groups, fmt.Errorf("%s: %w", p, err)
			}
			groups = append(groups, g)
		}
	}
	return groups, nil
}
