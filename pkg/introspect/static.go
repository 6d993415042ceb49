package introspect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// StaticModule groups in-process Go types into a module, the rich-surface
// counterpart of a loaded binary. It also holds what reflect cannot express:
// type attributes, field attributes and static functions.
//
// A StaticModule is configured once, typically in a package-level var, and is
// read-only afterwards. The builder methods are not safe for concurrent use.
type StaticModule struct {
	name     string
	entries  []*staticEntry
	byType   map[reflect.Type]*staticEntry
	location string
}

type staticEntry struct {
	rt      reflect.Type
	resolve func() (reflect.Type, error)
	attrs   []any
	fields  map[string][]any
	methods []*staticFunc
}

type staticFunc struct {
	name   string
	fn     reflect.Value
	params []Param
}

// NewStaticModule creates an empty module with the given logical name.
func NewStaticModule(name string) *StaticModule {
	return &StaticModule{
		name:   name,
		byType: make(map[reflect.Type]*staticEntry),
	}
}

// WithLocation records where the module's code lives, for diagnostics.
func (m *StaticModule) WithLocation(location string) *StaticModule {
	m.location = location
	return m
}

// Type exports rt with the given attributes. Calling Type again for the same
// type appends attributes.
func (m *StaticModule) Type(rt reflect.Type, attrs ...any) *StaticModule {
	e := m.ensure(rt)
	e.attrs = append(e.attrs, attrs...)
	return m
}

// Lazy exports a type that is resolved on every enumeration. A resolver
// error makes that type fail to load without affecting the others. Only the
// handles returned by ExportedTypes carry the lazy attributes.
func (m *StaticModule) Lazy(resolve func() (reflect.Type, error), attrs ...any) *StaticModule {
	m.entries = append(m.entries, &staticEntry{resolve: resolve, attrs: attrs})
	return m
}

// Field attaches attributes to a struct field of rt. Like Func, it exports rt
// if it was not exported yet.
func (m *StaticModule) Field(rt reflect.Type, field string, attrs ...any) *StaticModule {
	e := m.ensure(rt)
	if e.fields == nil {
		e.fields = make(map[string][]any)
	}
	e.fields[field] = append(e.fields[field], attrs...)
	return m
}

// Func declares fn as a static method of rt. params describe the leading
// parameters; undescribed parameters are required. Func panics if fn is not
// a function or params outnumber its parameters.
func (m *StaticModule) Func(rt reflect.Type, name string, fn any, params ...Param) *StaticModule {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		panic(fmt.Sprintf("introspect: Func %s: %T is not a function", name, fn))
	}
	ft := fv.Type()
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
	}
	if len(params) > fixed {
		panic(fmt.Sprintf("introspect: Func %s: %d params described, function takes %d", name, len(params), fixed))
	}

	described := make([]Param, fixed)
	for i := range described {
		if i < len(params) {
			described[i] = params[i]
		}
		if described[i].Name == "" {
			described[i].Name = fmt.Sprintf("arg%d", i)
		}
		described[i].Type = ft.In(i).String()
	}

	e := m.ensure(rt)
	e.methods = append(e.methods, &staticFunc{name: name, fn: fv, params: described})
	return m
}

// TypeOf returns the module-bound handle for rt. Attributes, fields and static
// methods are only visible through module-bound handles.
func (m *StaticModule) TypeOf(rt reflect.Type) Type {
	if rt == nil {
		return nil
	}
	return reflectType{rt: rt, mod: m}
}

// Name returns the logical module name.
func (m *StaticModule) Name() string {
	return m.name
}

// Assembly describes the module as an in-process binary.
func (m *StaticModule) Assembly() Assembly {
	return Assembly{Name: m.name, Location: m.location}
}

// ExportedTypes enumerates the exported types in declaration order. Lazy
// types that fail to resolve are reported through a *TypeLoadError.
func (m *StaticModule) ExportedTypes() ([]Type, error) {
	types := make([]Type, 0, len(m.entries))
	var loadErrs []error
	for i, e := range m.entries {
		if e.resolve == nil {
			types = append(types, reflectType{rt: e.rt, mod: m})
			continue
		}
		rt, err := e.resolve()
		if err == nil && rt == nil {
			err = errors.New("resolver returned no type")
		}
		if err != nil {
			types = append(types, nil)
			loadErrs = append(loadErrs, fmt.Errorf("%s: exported type #%d: %w", m.name, i, err))
			continue
		}
		types = append(types, reflectType{rt: rt, mod: m, lazy: e})
	}

	if len(loadErrs) > 0 {
		return types, &TypeLoadError{Module: m.name, Types: types, LoaderErrors: loadErrs}
	}
	return types, nil
}

func (m *StaticModule) ensure(rt reflect.Type) *staticEntry {
	if e, ok := m.byType[rt]; ok {
		return e
	}
	e := &staticEntry{rt: rt}
	m.byType[rt] = e
	m.entries = append(m.entries, e)
	return e
}

// funcMethod adapts a static function to Method.
type funcMethod struct {
	owner reflectType
	fn    *staticFunc
}

func (f funcMethod) Name() string        { return f.fn.name }
func (f funcMethod) DeclaringType() Type { return f.owner }
func (f funcMethod) Params() []Param     { return f.fn.params }
func (f funcMethod) Variadic() bool      { return f.fn.fn.Type().IsVariadic() }

// Call converts args to the function's parameter types and calls it. A
// trailing error result is returned as the call error.
func (f funcMethod) Call(_ context.Context, args []any) (any, error) {
	ft := f.fn.fn.Type()
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= ft.NumIn()-1 {
			pt = ft.In(ft.NumIn() - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		v, err := convertArg(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}

	out := f.fn.fn.Call(in)

	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if errv := out[n-1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		results := make([]any, len(out))
		for i, v := range out {
			results[i] = v.Interface()
		}
		return results, nil
	}
}

func convertArg(arg any, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(pt), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v, nil
	}
	if isNumericKind(v.Kind()) && isNumericKind(pt.Kind()) {
		if !representable(v, pt) {
			return reflect.Value{}, fmt.Errorf("%w: %v does not fit %s", ErrArgumentType, arg, pt)
		}
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot use %T as %s", ErrArgumentType, arg, pt)
}

// representable reports whether the numeric value v converts to pt without
// wrapping, truncation or loss of a fraction.
func representable(v reflect.Value, pt reflect.Type) bool {
	target := reflect.Zero(pt)
	switch {
	case v.CanInt():
		n := v.Int()
		switch {
		case target.CanInt():
			return !target.OverflowInt(n)
		case target.CanUint():
			return n >= 0 && !target.OverflowUint(uint64(n))
		}
	case v.CanUint():
		u := v.Uint()
		switch {
		case target.CanInt():
			return u <= math.MaxInt64 && !target.OverflowInt(int64(u))
		case target.CanUint():
			return !target.OverflowUint(u)
		}
	case v.CanFloat():
		f := v.Float()
		if target.CanFloat() {
			return !target.OverflowFloat(f)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return false
		}
		switch {
		case target.CanInt():
			return f >= math.MinInt64 && f < math.MaxInt64 && !target.OverflowInt(int64(f))
		case target.CanUint():
			return f >= 0 && f < math.MaxUint64 && !target.OverflowUint(uint64(f))
		}
	}
	return true
}

func isNumericKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
