package rpcschema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reoring/rpcschema/codec"
)

// API describes one API group as supplied by the owning service at startup.
type API struct {
	Name        string             `json:"name" yaml:"name"`
	Definitions map[string]*Schema `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	Methods     map[string]*Method `json:"methods" yaml:"methods"`
}

// Method describes one method of an API group.
type Method struct {
	Method string  `json:"method" yaml:"method"` // HTTP verb
	Params *Schema `json:"params,omitempty" yaml:"params,omitempty"`
	Reply  *Schema `json:"reply,omitempty" yaml:"reply,omitempty"`
	Doc    string  `json:"doc,omitempty" yaml:"doc,omitempty"`
	Auth   any     `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// APIGroup is a registered API group: its compiled definitions and methods.
type APIGroup struct {
	Name        string
	Definitions map[string]*Fragment
	Methods     map[string]*MethodContract
}

// MethodNames returns the method names sorted.
func (g *APIGroup) MethodNames() []string {
	names := make([]string, 0, len(g.Methods))
	for n := range g.Methods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Registry holds registered API groups and every fragment by id. Register is
// serialized internally but is meant to run during startup; the artifacts it
// returns are immutable and safe to use from any goroutine.
type Registry struct {
	mu        sync.RWMutex
	apis      map[string]*APIGroup
	fragments map[string]*Fragment
	methods   map[string]*MethodContract

	formats map[string]FormatFunc
	log     zerolog.Logger
	metrics *contractMetrics
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		apis:      map[string]*APIGroup{},
		fragments: map[string]*Fragment{},
		methods:   map[string]*MethodContract{},
		formats:   builtinFormats(),
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register prepares and compiles every definition and method of api and
// records the group under its name. Nothing is recorded when an error is
// returned. api is copied; the caller's schemas are not modified.
func (r *Registry) Register(api *API) (*APIGroup, error) {
	if api == nil || api.Name == "" {
		return nil, &RegistrationError{Err: fmt.Errorf("%w: api without a name", ErrInvalidSchema)}
	}
	if err := checkName("api", api.Name); err != nil {
		return nil, &RegistrationError{API: api.Name, Err: err}
	}
	for name := range api.Definitions {
		if err := checkName("definition", name); err != nil {
			return nil, &RegistrationError{API: api.Name, Err: err}
		}
	}
	for name := range api.Methods {
		if err := checkName("method", name); err != nil {
			return nil, &RegistrationError{API: api.Name, Err: err}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apis[api.Name]; ok {
		return nil, &RegistrationError{API: api.Name, Err: ErrAlreadyRegistered}
	}

	group := &APIGroup{
		Name:        api.Name,
		Definitions: make(map[string]*Fragment, len(api.Definitions)),
		Methods:     make(map[string]*MethodContract, len(api.Methods)),
	}
	staged := map[string]*Fragment{}
	stage := func(f *Fragment) error {
		if _, dup := staged[f.id]; dup {
			return ErrDuplicateID
		}
		if _, dup := r.fragments[f.id]; dup {
			return ErrDuplicateID
		}
		staged[f.id] = f
		return nil
	}

	for _, name := range sortedKeys(api.Definitions) {
		id := "/" + api.Name + "/definitions/" + name
		f, err := r.buildFragment(id, api.Definitions[name].Clone())
		if err == nil {
			err = stage(f)
		}
		if err != nil {
			return nil, &RegistrationError{API: api.Name, ID: id, Err: err}
		}
		group.Definitions[name] = f
	}

	for _, name := range sortedKeys(api.Methods) {
		desc := api.Methods[name]
		if desc == nil {
			desc = &Method{}
		}
		fullname := "/" + api.Name + "/methods/" + name
		m := &MethodContract{
			Name:     name,
			API:      api.Name,
			Verb:     desc.Method,
			FullName: fullname,
			Doc:      desc.Doc,
			Auth:     desc.Auth,
			log:      r.log,
			metrics:  r.metrics,
		}
		var err error
		if m.Params, err = r.buildMethodFragment(fullname+"/params", desc.Params); err == nil {
			err = stage(m.Params)
		}
		if err != nil {
			return nil, &RegistrationError{API: api.Name, ID: fullname + "/params", Err: err}
		}
		if m.Reply, err = r.buildMethodFragment(fullname+"/reply", desc.Reply); err == nil {
			err = stage(m.Reply)
		}
		if err != nil {
			return nil, &RegistrationError{API: api.Name, ID: fullname + "/reply", Err: err}
		}
		if !ValidVerb(m.Verb) {
			return nil, &RegistrationError{API: api.Name, ID: fullname, Err: fmt.Errorf("%w: %q", ErrInvalidVerb, m.Verb)}
		}
		if _, dup := r.methods[fullname]; dup {
			return nil, &RegistrationError{API: api.Name, ID: fullname, Err: ErrDuplicateID}
		}
		group.Methods[name] = m
	}

	for id, f := range staged {
		r.fragments[id] = f
	}
	for _, m := range group.Methods {
		r.methods[m.FullName] = m
	}
	r.apis[api.Name] = group
	r.metrics.setMethods(len(r.methods))

	r.log.Debug().
		Str("api", api.Name).
		Int("definitions", len(group.Definitions)).
		Int("methods", len(group.Methods)).
		Msg("rpc api registered")
	return group, nil
}

// MustRegister is like Register but panics on error. Registration errors are
// programming errors, so startup code may prefer to crash early.
func (r *Registry) MustRegister(api *API) *APIGroup {
	g, err := r.Register(api)
	if err != nil {
		panic(err)
	}
	return g
}

// API returns the registered group with the given name.
func (r *Registry) API(name string) (*APIGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.apis[name]
	return g, ok
}

// APIs returns the registered group names sorted.
func (r *Registry) APIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.apis)
}

// Method returns a method contract by its full name (/<api>/methods/<name>).
func (r *Registry) Method(fullname string) (*MethodContract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[fullname]
	return m, ok
}

// Fragment returns any registered fragment by id: a definition, or the
// params/reply of a method.
func (r *Registry) Fragment(id string) (*Fragment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fragments[id]
	return f, ok
}

func (r *Registry) buildMethodFragment(id string, s *Schema) (*Fragment, error) {
	if s == nil {
		s = &Schema{}
	} else {
		s = s.Clone()
	}
	return r.buildFragment(id, s)
}

// buildFragment prepares s in place and compiles it. s must be owned by the
// caller (a clone of the user supplied schema).
func (r *Registry) buildFragment(id string, s *Schema) (*Fragment, error) {
	if s == nil {
		s = &Schema{}
	}
	s.ID = id
	if err := prepare(s); err != nil {
		return nil, err
	}
	v, err := compile(s, &compiler{formats: r.formats, resolve: r.resolve})
	if err != nil {
		return nil, err
	}
	f := &Fragment{id: id, schema: s, validator: v, codec: codec.New(s.buffers)}
	if !f.codec.Empty() {
		r.log.Debug().Str("id", id).Stringer("buffers", pathList(s.buffers)).Msg("schema buffers")
	}
	return f, nil
}

// resolve is the $ref lookup handed to compiled validators. It runs at
// validation time, after registration committed its fragments.
func (r *Registry) resolve(id string) (*Validator, bool) {
	r.mu.RLock()
	f, ok := r.fragments[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return f.validator, true
}

// checkName rejects names that would make fragment ids or $ref targets
// ambiguous.
func checkName(kind, name string) error {
	if name == "" || strings.ContainsAny(name, "/#") {
		return fmt.Errorf("%w: %s name %q must be non-empty without '/' or '#'", ErrInvalidSchema, kind, name)
	}
	return nil
}

type pathList []codec.Path

func (pl pathList) String() string {
	out := "["
	for i, p := range pl {
		if i > 0 {
			out += " "
		}
		out += p.String()
	}
	return out + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
