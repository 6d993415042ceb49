package introspect

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
)

// Type is an opaque handle to a loaded type descriptor.
//
// Handles are immutable and comparable with ==. They are borrowed from the
// surface that produced them and stay valid for the life of their module.
type Type interface {
	// Name returns the qualified type name.
	Name() string

	// Flags returns the capability flags of the type.
	Flags() Flags

	// Base returns the direct supertype, or nil for a root type.
	Base() Type

	// Module returns the module that declares the type.
	Module() Module

	// Attributes returns the attributes declared directly on the type.
	Attributes() []any

	// Members returns the declared members of the type.
	Members() []Member

	// StaticMethods returns the static methods declared on the type.
	StaticMethods() []Method
}

// Member is a named member of a type (a struct field for in-process types).
type Member interface {
	// Name returns the member name.
	Name() string

	// DeclaringType returns the type that declares the member.
	DeclaringType() Type

	// Attributes returns the attributes declared on this member only.
	Attributes() []any
}

// Method is a static method declared on a type.
type Method interface {
	// Name returns the method name.
	Name() string

	// DeclaringType returns the type that declares the method.
	DeclaringType() Type

	// Params describes the fixed parameters in declaration order.
	Params() []Param

	// Variadic reports whether arguments beyond Params are accepted.
	Variadic() bool

	// Call invokes the method with fully bound arguments. Callers should go
	// through InvokeMethod, which pads and validates arguments first.
	Call(ctx context.Context, args []any) (any, error)
}

// Param describes a single method parameter.
type Param struct {
	// Name is the parameter name.
	Name string

	// Type is the surface-specific type name of the parameter.
	Type string

	// Optional marks parameters that may be omitted.
	Optional bool

	// Default is used when an optional parameter is omitted.
	Default any
}

// Module is a loaded binary's module, the unit TypeScanner enumerates.
type Module interface {
	// Name returns the logical module name.
	Name() string

	// Assembly describes the binary that owns the module.
	Assembly() Assembly

	// ExportedTypes enumerates the exported types. When only some types could
	// be loaded the error is a *TypeLoadError carrying the partial list.
	ExportedTypes() ([]Type, error)
}

// Assembly describes a loaded binary.
type Assembly struct {
	// Name is the logical name of the binary.
	Name string `json:"name"`

	// Location is where the binary was loaded from. Empty for binaries
	// linked into the process.
	Location string `json:"location,omitempty"`
}

// CodeBase returns the location as a URI.
func (a Assembly) CodeBase() string {
	if a.Location == "" {
		return ""
	}
	if strings.Contains(a.Location, "://") {
		return a.Location
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(a.Location)}
	return u.String()
}

// Flags is the set of capability flags of a type.
type Flags uint16

const (
	// FlagEnum marks enumeration types.
	FlagEnum Flags = 1 << iota
	// FlagInterface marks interface types.
	FlagInterface
	// FlagAbstract marks types that cannot be instantiated.
	FlagAbstract
	// FlagPublic marks exported types.
	FlagPublic
	// FlagPrimitive marks built-in scalar types.
	FlagPrimitive
	// FlagNestedPrivate marks types only visible inside their declaring scope.
	FlagNestedPrivate
	// FlagGenericDefinition marks uninstantiated generic types.
	FlagGenericDefinition
	// FlagGeneric marks generic types, instantiated or not.
	FlagGeneric
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagEnum, "enum"},
	{FlagInterface, "interface"},
	{FlagAbstract, "abstract"},
	{FlagPublic, "public"},
	{FlagPrimitive, "primitive"},
	{FlagNestedPrivate, "nested-private"},
	{FlagGenericDefinition, "generic-definition"},
	{FlagGeneric, "generic"},
}

// Has reports whether all flags in x are set.
func (f Flags) Has(x Flags) bool {
	return f&x == x
}

// String returns the set flags joined by '|'.
func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Names returns the names of the set flags.
func (f Flags) Names() []string {
	names := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}
