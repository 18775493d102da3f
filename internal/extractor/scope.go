package extractor

import (
	"strings"

	"bindgen/internal/frontend"
)

// scope is a namespace, record, enum or template parameter list. Template
// parameter scopes are transparent: declarations land in their parent.
type scope struct {
	prefix      string
	parent      *scope
	transparent bool

	record *frontend.RecordDecl
	bases  []*scope
	access frontend.Access

	externC bool

	types   map[string]frontend.QualType
	values  map[string]frontend.Decl
	funcs   map[string][]*frontend.FunctionDecl
	methods map[string][]*frontend.MethodDecl
	nested  map[string]*scope
}

func newScope(prefix string, parent *scope) *scope {
	s := &scope{
		prefix:  prefix,
		parent:  parent,
		types:   make(map[string]frontend.QualType),
		values:  make(map[string]frontend.Decl),
		funcs:   make(map[string][]*frontend.FunctionDecl),
		methods: make(map[string][]*frontend.MethodDecl),
		nested:  make(map[string]*scope),
	}
	if parent != nil {
		s.externC = parent.externC
	}
	return s
}

// decl is the scope that receives declarations made in s.
func (s *scope) decl() *scope {
	for s.transparent && s.parent != nil {
		s = s.parent
	}
	return s
}

func (s *scope) qualify(name string) string {
	d := s.decl()
	if d.prefix == "" {
		return name
	}
	return d.prefix + "::" + name
}

// child returns the nested scope name, creating it if needed.
func (s *scope) child(name string) *scope {
	d := s.decl()
	if c, ok := d.nested[name]; ok {
		return c
	}
	c := newScope(d.qualify(name), d)
	d.nested[name] = c
	return c
}

// transparentChild opens a scope for template parameters.
func (s *scope) transparentChild() *scope {
	c := newScope(s.decl().prefix, s)
	c.transparent = true
	return c
}

func (s *scope) global() *scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

func splitQualified(name string) (parts []string, rooted bool) {
	name = strings.ReplaceAll(name, " ", "")
	if strings.HasPrefix(name, "::") {
		rooted = true
		name = name[2:]
	}
	return strings.Split(name, "::"), rooted
}

// member finds a directly nested scope, looking through base classes.
func (s *scope) member(name string) *scope {
	seen := make(map[*scope]bool)
	var find func(*scope) *scope
	find = func(sc *scope) *scope {
		if sc == nil || seen[sc] {
			return nil
		}
		seen[sc] = true
		if c, ok := sc.nested[name]; ok {
			return c
		}
		for _, b := range sc.bases {
			if c := find(b); c != nil {
				return c
			}
		}
		return nil
	}
	return find(s)
}

func (s *scope) descend(path []string) *scope {
	cur := s
	for _, p := range path {
		if cur = cur.member(p); cur == nil {
			return nil
		}
	}
	return cur
}

// resolve walks outward from s looking for the scope that holds the last
// component of name, then applies find to it.
func resolve[T any](s *scope, name string, find func(*scope, string) (T, bool)) (T, bool) {
	parts, rooted := splitQualified(name)
	last, path := parts[len(parts)-1], parts[:len(parts)-1]

	start := s
	if rooted {
		start = s.global()
	}
	for sc := start; sc != nil; sc = sc.parent {
		target := sc.descend(path)
		if target != nil {
			if v, ok := find(target, last); ok {
				return v, true
			}
		}
		if rooted {
			break
		}
	}
	var zero T
	return zero, false
}

// withBases applies find to s and then to its bases, depth first.
func withBases[T any](s *scope, name string, get func(*scope, string) (T, bool)) (T, bool) {
	if v, ok := get(s, name); ok {
		return v, true
	}
	for _, b := range s.bases {
		if v, ok := withBases(b, name, get); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (s *scope) lookupType(name string) (frontend.QualType, bool) {
	return resolve(s, name, func(sc *scope, n string) (frontend.QualType, bool) {
		return withBases(sc, n, func(x *scope, n string) (frontend.QualType, bool) {
			t, ok := x.types[n]
			return t, ok
		})
	})
}

func (s *scope) lookupValue(name string) (frontend.Decl, bool) {
	return resolve(s, name, func(sc *scope, n string) (frontend.Decl, bool) {
		return withBases(sc, n, func(x *scope, n string) (frontend.Decl, bool) {
			d, ok := x.values[n]
			return d, ok
		})
	})
}

func (s *scope) lookupFunction(name string) (*frontend.FunctionDecl, bool) {
	return resolve(s, name, func(sc *scope, n string) (*frontend.FunctionDecl, bool) {
		fs := sc.funcs[n]
		if len(fs) == 0 {
			return nil, false
		}
		return fs[0], true
	})
}

func (s *scope) lookupMethod(name string) (*frontend.MethodDecl, bool) {
	return resolve(s, name, func(sc *scope, n string) (*frontend.MethodDecl, bool) {
		return withBases(sc, n, func(x *scope, n string) (*frontend.MethodDecl, bool) {
			ms := x.methods[n]
			if len(ms) == 0 {
				return nil, false
			}
			return ms[0], true
		})
	})
}
