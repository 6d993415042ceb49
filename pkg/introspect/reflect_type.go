package introspect

import (
	"fmt"
	"go/token"
	"os"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"
)

var stringerType = reflect.TypeFor[fmt.Stringer]()

// reflectType is the rich-surface handle. It is a value type so that two
// handles for the same reflect.Type and module compare equal.
type reflectType struct {
	rt   reflect.Type
	mod  *StaticModule
	lazy *staticEntry
}

// Of returns the handle for rt. The handle carries no attributes unless rt
// is obtained through a StaticModule.
func Of(rt reflect.Type) Type {
	if rt == nil {
		return nil
	}
	return reflectType{rt: rt}
}

// TypeOf returns the handle for T.
func TypeOf[T any]() Type {
	return Of(reflect.TypeFor[T]())
}

// Reflect returns the reflect.Type behind t, if t comes from the rich surface.
func Reflect(t Type) (reflect.Type, bool) {
	if rt, ok := t.(reflectType); ok {
		return rt.rt, true
	}
	return nil, false
}

func (t reflectType) Name() string {
	if t.rt.Name() == "" || t.rt.PkgPath() == "" {
		return t.rt.String()
	}
	return t.rt.PkgPath() + "." + t.rt.Name()
}

func (t reflectType) Flags() Flags {
	return reflectFlags(t.rt)
}

// Base returns the first embedded named struct, the closest Go analogue of a
// supertype.
func (t reflectType) Base() Type {
	rt := t.rt
	if rt.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct || ft.Name() == "" || ft == rt {
			continue
		}
		return reflectType{rt: ft, mod: t.mod}
	}
	return nil
}

func (t reflectType) Module() Module {
	if t.mod != nil {
		return t.mod
	}
	return processModule{pkg: t.rt.PkgPath()}
}

func (t reflectType) Attributes() []any {
	if e := t.entry(); e != nil {
		return e.attrs
	}
	return nil
}

func (t reflectType) Members() []Member {
	if t.rt.Kind() != reflect.Struct {
		return nil
	}
	e := t.entry()
	members := make([]Member, 0, t.rt.NumField())
	for i := 0; i < t.rt.NumField(); i++ {
		f := t.rt.Field(i)
		m := fieldMember{owner: t, field: f}
		if e != nil {
			m.attrs = e.fields[f.Name]
		}
		members = append(members, m)
	}
	return members
}

func (t reflectType) StaticMethods() []Method {
	e := t.entry()
	if e == nil {
		return nil
	}
	methods := make([]Method, 0, len(e.methods))
	for _, fn := range e.methods {
		methods = append(methods, funcMethod{owner: t, fn: fn})
	}
	return methods
}

func (t reflectType) String() string {
	return t.Name()
}

func (t reflectType) entry() *staticEntry {
	if t.lazy != nil {
		return t.lazy
	}
	if t.mod == nil {
		return nil
	}
	return t.mod.byType[t.rt]
}

// fieldMember is a struct field. Its struct tag is reported as an attribute
// of kind reflect.StructTag.
type fieldMember struct {
	owner reflectType
	field reflect.StructField
	attrs []any
}

func (m fieldMember) Name() string        { return m.field.Name }
func (m fieldMember) DeclaringType() Type { return m.owner }

func (m fieldMember) Attributes() []any {
	if m.field.Tag == "" {
		return m.attrs
	}
	attrs := make([]any, 0, len(m.attrs)+1)
	attrs = append(attrs, m.attrs...)
	return append(attrs, m.field.Tag)
}

func reflectFlags(rt reflect.Type) Flags {
	var f Flags
	switch {
	case rt.Kind() == reflect.Interface:
		f |= FlagInterface | FlagAbstract
	case isEnum(rt):
		f |= FlagEnum
	case isPrimitive(rt):
		f |= FlagPrimitive
	}
	if isPublic(rt) {
		f |= FlagPublic
	}
	if rt.Name() != "" && rt.PkgPath() != "" && !token.IsExported(rt.Name()) {
		f |= FlagNestedPrivate
	}
	if strings.Contains(rt.Name(), "[") {
		f |= FlagGeneric
	}
	return f
}

func isIntegerKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Uintptr
}

// isEnum matches the stringer convention: a defined integer type with a
// String method.
func isEnum(rt reflect.Type) bool {
	return rt.PkgPath() != "" && isIntegerKind(rt.Kind()) && rt.Implements(stringerType)
}

func isPrimitive(rt reflect.Type) bool {
	if rt.PkgPath() != "" || rt.Name() == "" {
		return false
	}
	k := rt.Kind()
	return k == reflect.Bool || isIntegerKind(k) || (k >= reflect.Float32 && k <= reflect.Complex128)
}

func isPublic(rt reflect.Type) bool {
	if rt.Name() != "" {
		// Predeclared types have no package path.
		return rt.PkgPath() == "" || token.IsExported(rt.Name())
	}
	switch rt.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan:
		return isPublic(rt.Elem())
	case reflect.Map:
		return isPublic(rt.Key()) && isPublic(rt.Elem())
	default:
		return false
	}
}

// processModule stands for a Go package linked into the running binary.
type processModule struct {
	pkg string
}

var processAssembly = sync.OnceValue(func() Assembly {
	asm := Assembly{Name: "main"}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		asm.Name = info.Main.Path
	}
	if exe, err := os.Executable(); err == nil {
		asm.Location = exe
	}
	return asm
})

func (m processModule) Name() string {
	if m.pkg == "" {
		return "builtin"
	}
	return m.pkg
}

func (m processModule) Assembly() Assembly { return processAssembly() }

// ExportedTypes is empty: package contents are not enumerable at run time.
func (m processModule) ExportedTypes() ([]Type, error) { return nil, nil }
