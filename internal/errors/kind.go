package errors

import (
	"fmt"
	"net/http"
	"sort"
)

// Kind is a node in the exception hierarchy. Kinds are compared by identity;
// a kind "is" every kind on its parent chain.
type Kind struct {
	name   string
	parent *Kind
	code   int
	status int
}

// Built-in kinds. Throwable is the root and is carried by every error that
// is not an application exception.
var (
	KindThrowable              = newKind("Throwable", nil, -500, http.StatusInternalServerError)
	KindException              = newKind("Exception", KindThrowable, -500, http.StatusInternalServerError)
	KindRuntime                = newKind("Runtime", KindException, -500, http.StatusInternalServerError)
	KindClient                 = newKind("Client", KindException, -400, http.StatusBadRequest)
	KindClientRouteNotFound    = newKind("ClientRouteNotFound", KindClient, -404, http.StatusNotFound)
	KindClientMethodNotAllowed = newKind("ClientMethodNotAllowed", KindClient, -405, http.StatusMethodNotAllowed)
)

func newKind(name string, parent *Kind, code, status int) *Kind {
	return &Kind{name: name, parent: parent, code: code, status: status}
}

// Name returns the kind name used in configuration
func (k *Kind) Name() string {
	return k.name
}

// String implements fmt.Stringer
func (k *Kind) String() string {
	return k.name
}

// Parent returns the direct ancestor, nil for the root
func (k *Kind) Parent() *Kind {
	return k.parent
}

// Code returns the default application code, inherited from the nearest
// ancestor that defines one.
func (k *Kind) Code() int {
	for c := k; c != nil; c = c.parent {
		if c.code != 0 {
			return c.code
		}
	}
	return 0
}

// Status returns the HTTP status, inherited like Code
func (k *Kind) Status() int {
	for c := k; c != nil; c = c.parent {
		if c.status != 0 {
			return c.status
		}
	}
	return http.StatusInternalServerError
}

// Is reports whether k is target or descends from it
func (k *Kind) Is(target *Kind) bool {
	if target == nil {
		return false
	}
	for c := k; c != nil; c = c.parent {
		if c == target {
			return true
		}
	}
	return false
}

// Taxonomy resolves kind names from configuration to kinds.
// Define is meant for startup; lookups afterwards need no locking.
type Taxonomy struct {
	kinds map[string]*Kind
}

// NewTaxonomy returns a taxonomy holding the built-in kinds
func NewTaxonomy() *Taxonomy {
	t := &Taxonomy{kinds: make(map[string]*Kind)}
	for _, k := range []*Kind{
		KindThrowable,
		KindException,
		KindRuntime,
		KindClient,
		KindClientRouteNotFound,
		KindClientMethodNotAllowed,
	} {
		t.kinds[k.name] = k
	}
	return t
}

// Define adds an application kind below parent. A zero code or status is
// inherited from the parent.
func (t *Taxonomy) Define(name string, parent *Kind, code, status int) (*Kind, error) {
	if name == "" {
		return nil, fmt.Errorf("kind name must not be empty")
	}
	if parent == nil {
		return nil, fmt.Errorf("kind %q: parent must not be nil", name)
	}
	if _, exists := t.kinds[name]; exists {
		return nil, fmt.Errorf("kind %q already defined", name)
	}
	if t.kinds[parent.name] != parent {
		return nil, fmt.Errorf("kind %q: parent %q is not part of this taxonomy", name, parent.name)
	}

	k := newKind(name, parent, code, status)
	t.kinds[name] = k
	return k, nil
}

// MustDefine is like Define but panics on error
func (t *Taxonomy) MustDefine(name string, parent *Kind, code, status int) *Kind {
	k, err := t.Define(name, parent, code, status)
	if err != nil {
		panic(err)
	}
	return k
}

// Lookup returns the kind registered under name
func (t *Taxonomy) Lookup(name string) (*Kind, bool) {
	k, ok := t.kinds[name]
	return k, ok
}

// Names returns all kind names in sorted order
func (t *Taxonomy) Names() []string {
	names := make([]string, 0, len(t.kinds))
	for name := range t.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
