package binding

import (
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero/api"
)

// Version is the semantic version suffix of a namespace like
// "wasi:io/poll@0.2.0".
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// ParseVersion parses "0.2.0" or "0.2".
func ParseVersion(s string) (Version, bool) {
	if s == "" {
		return Version{}, false
	}

	var v Version
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, false
	}

	for i, p := range parts {
		if p == "" {
			return Version{}, false
		}
		var n uint32
		for _, c := range p {
			if c < '0' || c > '9' {
				return Version{}, false
			}
			if n > 429496729 || (n == 429496729 && c > '5') {
				return Version{}, false
			}
			n = n*10 + uint32(c-'0')
		}
		switch i {
		case 0:
			v.Major = n
		case 1:
			v.Minor = n
		case 2:
			v.Patch = n
		}
	}
	return v, true
}

// Compatible reports whether a provider at v can serve an import of want:
// same major, and not older.
func (v Version) Compatible(want Version) bool {
	if v.Major != want.Major {
		return false
	}
	if v.Minor != want.Minor {
		return v.Minor > want.Minor
	}
	return v.Patch >= want.Patch
}

func splitVersion(namespace string) (string, *Version) {
	i := strings.LastIndexByte(namespace, '@')
	if i < 0 {
		return namespace, nil
	}
	v, ok := ParseVersion(namespace[i+1:])
	if !ok {
		return namespace, nil
	}
	return namespace[:i], &v
}

// FuncDef is one lowered host function.
type FuncDef struct {
	Handler     api.GoModuleFunc
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// Registry holds the host functions of every import namespace.
type Registry struct {
	funcs map[string]map[string]*FuncDef
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]map[string]*FuncDef)}
}

// Define registers fn under namespace, replacing any earlier definition.
func (r *Registry) Define(namespace string, fn *FuncDef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.funcs[namespace]
	if !ok {
		ns = make(map[string]*FuncDef)
		r.funcs[namespace] = ns
	}
	ns[fn.Name] = fn
}

// Namespaces returns the registered namespaces, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.funcs))
	for ns := range r.funcs {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Funcs returns the functions of namespace, sorted by name.
func (r *Registry) Funcs(namespace string) []*FuncDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns := r.funcs[namespace]
	out := make([]*FuncDef, 0, len(ns))
	for _, f := range ns {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve finds the function a guest imports as module.name. An exact
// namespace match wins; otherwise a semver-compatible version of the same
// package is used, so a guest built against wasi:io/poll@0.2.0 links
// against a 0.2.x provider.
func (r *Registry) Resolve(module, name string) (*FuncDef, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ns, ok := r.funcs[module]; ok {
		f, ok := ns[name]
		return f, module, ok
	}

	base, want := splitVersion(module)
	if want == nil {
		return nil, "", false
	}
	for provided, ns := range r.funcs {
		pbase, have := splitVersion(provided)
		if pbase != base || have == nil || !have.Compatible(*want) {
			continue
		}
		if f, ok := ns[name]; ok {
			return f, provided, true
		}
	}
	return nil, "", false
}
