package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/emirpasic/gods/lists/arraylist"
)

var (
	// ErrUnbound is returned when a name is not bound in any enclosing scope.
	ErrUnbound = errors.New("undefined variable")
	// ErrRebind is returned when a scope binds the same name twice.
	ErrRebind = errors.New("variable is already defined")
)

// NoParent is the parent index of the primitive environment.
const NoParent = -1

// PrimitiveEnv is the index of the primitive environment in every Pool.
const PrimitiveEnv = 0

// PrimitiveNames lists the built-in functions bound in the primitive scope.
var PrimitiveNames = []string{
	"Print", "Isstring", "Isinteger", "Istruthvalue", "Istuple", "Isfunction",
	"Null", "Order", "Stern", "Stem", "ItoS", "neg", "not", "Conc",
}

// Environment is one scope of name bindings. Scopes refer to their parent
// by pool index.
type Environment struct {
	bindings map[string]Element
	parent   int
}

func newEnvironment(parent int) *Environment {
	return &Environment{
		bindings: make(map[string]Element),
		parent:   parent,
	}
}

// Parent is the index of the enclosing scope (NoParent for the primitive one).
func (e *Environment) Parent() int {
	return e.parent
}

// Define binds name in this scope; binding a name twice is an error.
func (e *Environment) Define(name string, value Element) error {
	if _, ok := e.bindings[name]; ok {
		return fmt.Errorf("%w: %s", ErrRebind, name)
	}
	e.bindings[name] = value
	return nil
}

// Get looks name up in this scope only.
func (e *Environment) Get(name string) (Element, bool) {
	v, ok := e.bindings[name]
	return v, ok
}

// Snapshot returns a copy of the current bindings.
func (e *Environment) Snapshot() map[string]Element {
	out := make(map[string]Element, len(e.bindings))
	for k, v := range e.bindings {
		out[k] = v
	}
	return out
}

// Keys returns the bound names in sorted order.
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.bindings))
	for k := range e.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Environment) String() string {
	var b strings.Builder
	for _, k := range e.Keys() {
		fmt.Fprintf(&b, "[%s/%s]", e.bindings[k], k)
	}
	return b.String()
}

// Pool is the append-only arena of environments for one evaluation.
// Index 0 is always the primitive environment.
type Pool struct {
	envs *arraylist.List
}

// NewPool creates a pool holding only the primitive environment.
func NewPool() *Pool {
	primitive := newEnvironment(NoParent)
	for _, name := range PrimitiveNames {
		primitive.bindings[name] = Builtin(name)
	}
	return &Pool{envs: arraylist.New(primitive)}
}

// Len is the number of environments created so far.
func (p *Pool) Len() int {
	return p.envs.Size()
}

// At returns the environment stored at index.
func (p *Pool) At(index int) (*Environment, error) {
	v, ok := p.envs.Get(index)
	if !ok {
		return nil, fmt.Errorf("runtime: no environment %d (pool has %d)", index, p.envs.Size())
	}
	return v.(*Environment), nil
}

// Extend appends a child of parent and returns its index.
func (p *Pool) Extend(parent int) (int, *Environment, error) {
	if _, err := p.At(parent); err != nil {
		return 0, nil, err
	}
	env := newEnvironment(parent)
	p.envs.Add(env)
	return p.envs.Size() - 1, env, nil
}

// Lookup resolves name starting at scope index and walking outward.
// Built-in names resolve to their Builtin value.
func (p *Pool) Lookup(index int, name string) (Element, error) {
	for index != NoParent {
		env, err := p.At(index)
		if err != nil {
			return nil, err
		}
		if v, ok := env.bindings[name]; ok {
			return v, nil
		}
		index = env.parent
	}
	return nil, fmt.Errorf("%w: %s", ErrUnbound, name)
}

// Chain renders the scope chain from the primitive environment down to
// index, e.g. "PE > [int(7)/x]".
func (p *Pool) Chain(index int) string {
	var scopes []string
	for index != NoParent {
		env, err := p.At(index)
		if err != nil {
			scopes = append(scopes, fmt.Sprintf("?%d", index))
			break
		}
		if env.parent == NoParent {
			scopes = append(scopes, "PE")
		} else {
			scopes = append(scopes, env.String())
		}
		index = env.parent
	}
	for i, j := 0, len(scopes)-1; i < j; i, j = i+1, j-1 {
		scopes[i], scopes[j] = scopes[j], scopes[i]
	}
	return strings.Join(scopes, " > ")
}
