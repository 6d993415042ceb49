package wasmhost

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/vmihailenco/msgpack/v5"
)

// Kinds maps attribute kind names, as written in type tables, to the Go types
// they decode into. It is safe for concurrent use.
type Kinds struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
}

// NewKinds creates an empty kind registry.
func NewKinds() *Kinds {
	return &Kinds{byName: make(map[string]reflect.Type)}
}

// RegisterKind makes attributes named name decode into T. Registering a name
// twice replaces the earlier type.
func RegisterKind[T any](k *Kinds, name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.byName[name] = reflect.TypeFor[T]()
}

// Lookup returns the Go type registered for name.
func (k *Kinds) Lookup(name string) (reflect.Type, bool) {
	if k == nil {
		return nil, false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	rt, ok := k.byName[name]
	return rt, ok
}

// Len returns the number of registered kinds.
func (k *Kinds) Len() int {
	if k == nil {
		return 0
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.byName)
}

// decode turns an attribute spec into a value of its registered kind, or an
// introspect.RawAttribute when the kind is unknown.
func (k *Kinds) decode(spec AttributeSpec) (any, error) {
	rt, ok := k.Lookup(spec.Kind)
	if !ok {
		return introspect.RawAttribute{Kind: spec.Kind, Data: spec.Data}, nil
	}
	v := reflect.New(rt)
	if len(spec.Data) > 0 {
		if err := msgpack.Unmarshal(spec.Data, v.Interface()); err != nil {
			return nil, fmt.Errorf("attribute %s: %w", spec.Kind, err)
		}
	}
	return v.Elem().Interface(), nil
}

func (k *Kinds) decodeAll(specs []AttributeSpec) ([]any, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	attrs := make([]any, 0, len(specs))
	for _, s := range specs {
		a, err := k.decode(s)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}
