package introspect

import (
	"context"
	"errors"
	"fmt"
)

// ErrBaseTypeNotFound is reported for descriptors whose base type is not
// declared in the same module.
var ErrBaseTypeNotFound = errors.New("base type not found")

var errDuplicateType = errors.New("duplicate type name")

// Descriptor is everything the restricted surface knows about a type.
type Descriptor struct {
	// Name is the qualified type name, unique within the module.
	Name string

	// Flags are the capability flags reported by the host.
	Flags Flags

	// Base names the supertype. Empty for a root type.
	Base string

	// Attributes are the attributes declared on the type.
	Attributes []any

	// Fields are the declared members.
	Fields []FieldDescriptor

	// Methods are the declared static methods.
	Methods []MethodDescriptor

	// Err marks a descriptor the host already failed to materialize.
	Err error
}

// FieldDescriptor describes a declared member.
type FieldDescriptor struct {
	Name       string
	Attributes []any
}

// MethodDescriptor describes a static method and how to call it.
type MethodDescriptor struct {
	Name     string
	Params   []Param
	Variadic bool
	Invoke   func(ctx context.Context, args []any) (any, error)
}

// DescriptorModule is a module of the restricted surface. Descriptors are
// resolved once, when the module is built.
type DescriptorModule struct {
	name     string
	assembly Assembly
	types    []Type
	errs     []error
}

type resolveState int

const (
	unresolved resolveState = iota
	resolving
	resolved
)

// NewDescriptorModule resolves descs into a module. A descriptor fails to
// load if it carries an error, duplicates an earlier name, names a base type
// that is missing, or derives from a type that failed.
func NewDescriptorModule(name string, assembly Assembly, descs []Descriptor) *DescriptorModule {
	m := &DescriptorModule{
		name:     name,
		assembly: assembly,
		types:    make([]Type, len(descs)),
	}

	byName := make(map[string]int, len(descs))
	dupErrs := make(map[int]error)
	for i, d := range descs {
		if _, dup := byName[d.Name]; dup {
			dupErrs[i] = errDuplicateType
			continue
		}
		byName[d.Name] = i
	}

	state := make([]resolveState, len(descs))
	built := make([]*descriptorType, len(descs))
	failures := make([]error, len(descs))

	var resolve func(i int) (*descriptorType, error)
	resolve = func(i int) (*descriptorType, error) {
		switch state[i] {
		case resolved:
			return built[i], failures[i]
		case resolving:
			return nil, fmt.Errorf("inheritance cycle through %s", descs[i].Name)
		}
		state[i] = resolving
		t, err := m.build(descs[i], dupErrs[i], byName, resolve)
		state[i] = resolved
		built[i], failures[i] = t, err
		return t, err
	}

	for i := range descs {
		t, err := resolve(i)
		if err != nil {
			m.errs = append(m.errs, fmt.Errorf("type %s: %w", descs[i].Name, err))
			continue
		}
		m.types[i] = t
	}
	return m
}

func (m *DescriptorModule) build(d Descriptor, dupErr error, byName map[string]int, resolve func(int) (*descriptorType, error)) (*descriptorType, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	if dupErr != nil {
		return nil, dupErr
	}

	t := &descriptorType{
		name:  d.Name,
		flags: d.Flags,
		mod:   m,
		attrs: d.Attributes,
	}

	if d.Base != "" {
		idx, ok := byName[d.Base]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBaseTypeNotFound, d.Base)
		}
		base, err := resolve(idx)
		if err != nil {
			return nil, fmt.Errorf("base type %s: %w", d.Base, err)
		}
		t.base = base
	}

	for _, f := range d.Fields {
		t.members = append(t.members, descriptorMember{name: f.Name, owner: t, attrs: f.Attributes})
	}
	for _, md := range d.Methods {
		t.methods = append(t.methods, descriptorMethod{desc: md, owner: t})
	}
	return t, nil
}

// Name returns the logical module name.
func (m *DescriptorModule) Name() string { return m.name }

// Assembly describes the binary that owns the module.
func (m *DescriptorModule) Assembly() Assembly { return m.assembly }

// ExportedTypes returns the resolved types in declaration order, or a
// *TypeLoadError if any descriptor failed.
func (m *DescriptorModule) ExportedTypes() ([]Type, error) {
	types := make([]Type, len(m.types))
	copy(types, m.types)
	if len(m.errs) == 0 {
		return types, nil
	}
	errs := make([]error, len(m.errs))
	copy(errs, m.errs)
	return types, &TypeLoadError{Module: m.name, Types: types, LoaderErrors: errs}
}

type descriptorType struct {
	name    string
	flags   Flags
	base    *descriptorType
	mod     *DescriptorModule
	attrs   []any
	members []Member
	methods []Method
}

func (t *descriptorType) Name() string           { return t.name }
func (t *descriptorType) Flags() Flags            { return t.flags }
func (t *descriptorType) Module() Module          { return t.mod }
func (t *descriptorType) Attributes() []any       { return t.attrs }
func (t *descriptorType) Members() []Member       { return t.members }
func (t *descriptorType) StaticMethods() []Method { return t.methods }
func (t *descriptorType) String() string          { return t.name }

func (t *descriptorType) Base() Type {
	if t.base == nil {
		return nil
	}
	return t.base
}

type descriptorMember struct {
	name  string
	owner *descriptorType
	attrs []any
}

func (m descriptorMember) Name() string        { return m.name }
func (m descriptorMember) DeclaringType() Type { return m.owner }
func (m descriptorMember) Attributes() []any   { return m.attrs }

type descriptorMethod struct {
	desc  MethodDescriptor
	owner *descriptorType
}

func (m descriptorMethod) Name() string        { return m.desc.Name }
func (m descriptorMethod) DeclaringType() Type { return m.owner }
func (m descriptorMethod) Params() []Param     { return m.desc.Params }
func (m descriptorMethod) Variadic() bool      { return m.desc.Variadic }

func (m descriptorMethod) Call(ctx context.Context, args []any) (any, error) {
	if m.desc.Invoke == nil {
		return nil, fmt.Errorf("method %s has no implementation", m.desc.Name)
	}
	return m.desc.Invoke(ctx, args)
}
