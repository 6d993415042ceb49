package introspect

import (
	"reflect"
	"testing"
)

// Attribute kinds used across the tests.

type Target struct {
	Name string
}

func (t Target) Description() string { return "target " + t.Name }

type Layout struct {
	Pattern string
}

// Sealed is never inherited by derived types.
type Sealed struct{}

func (Sealed) Inherited() bool { return false }

type Described interface {
	Description() string
}

// Types under inspection.

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type Renderer interface {
	Render() string
}

type BaseTarget struct {
	Encoding string
}

type FileTarget struct {
	BaseTarget
	Path string `config:"path"`
}

type hiddenTarget struct{}

type Box[T any] struct {
	Value T
}

func newTestModule() *StaticModule {
	return NewStaticModule("Plugins").
		Type(reflect.TypeFor[BaseTarget](), Target{Name: "base"}, Sealed{}).
		Type(reflect.TypeFor[FileTarget](), Layout{Pattern: "${message}"}).
		Field(reflect.TypeFor[FileTarget](), "Path", Layout{Pattern: "path"}).
		Type(reflect.TypeFor[Level]()).
		Type(reflect.TypeFor[Renderer]())
}

// TestCapabilityFlags tests the flag predicates on the rich surface.
func TestCapabilityFlags(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		want  Flags
		unset Flags
	}{
		{
			name:  "Enum",
			typ:   TypeOf[Level](),
			want:  FlagEnum | FlagPublic,
			unset: FlagPrimitive | FlagInterface,
		},
		{
			name:  "Interface",
			typ:   TypeOf[Renderer](),
			want:  FlagInterface | FlagAbstract | FlagPublic,
			unset: FlagEnum,
		},
		{
			name:  "Primitive",
			typ:   TypeOf[int](),
			want:  FlagPrimitive | FlagPublic,
			unset: FlagEnum | FlagNestedPrivate,
		},
		{
			name:  "String is not primitive",
			typ:   TypeOf[string](),
			want:  FlagPublic,
			unset: FlagPrimitive,
		},
		{
			name:  "Unexported",
			typ:   TypeOf[hiddenTarget](),
			want:  FlagNestedPrivate,
			unset: FlagPublic,
		},
		{
			name:  "Generic instantiation",
			typ:   TypeOf[Box[int]](),
			want:  FlagGeneric | FlagPublic,
			unset: FlagGenericDefinition,
		},
		{
			name:  "Slice of exported type",
			typ:   TypeOf[[]FileTarget](),
			want:  FlagPublic,
			unset: FlagAbstract,
		},
		{
			name:  "Anonymous struct",
			typ:   TypeOf[struct{ X int }](),
			want:  0,
			unset: FlagPublic | FlagNestedPrivate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.typ.Flags()
			if !got.Has(tt.want) {
				t.Errorf("Expected flags %s to include %s", got, tt.want)
			}
			if got&tt.unset != 0 {
				t.Errorf("Expected flags %s to exclude %s", got, tt.unset)
			}
		})
	}

	t.Run("Predicates", func(t *testing.T) {
		if !IsEnum(TypeOf[Level]()) {
			t.Error("Expected Level to be an enum")
		}
		if !IsInterface(TypeOf[Renderer]()) || !IsAbstract(TypeOf[Renderer]()) {
			t.Error("Expected Renderer to be an abstract interface")
		}
		if IsAbstract(TypeOf[FileTarget]()) {
			t.Error("Expected FileTarget to be concrete")
		}
		if !IsPublic(TypeOf[FileTarget]()) {
			t.Error("Expected FileTarget to be public")
		}
		if !IsPrimitive(TypeOf[float64]()) {
			t.Error("Expected float64 to be primitive")
		}
		if !IsNestedPrivate(TypeOf[hiddenTarget]()) {
			t.Error("Expected hiddenTarget to be nested-private")
		}
		if !IsGenericType(TypeOf[Box[string]]()) || IsGenericTypeDefinition(TypeOf[Box[string]]()) {
			t.Error("Expected Box[string] to be generic but not a definition")
		}
	})

	t.Run("NilHandle", func(t *testing.T) {
		if IsEnum(nil) || IsPublic(nil) || IsAbstract(nil) {
			t.Error("Expected nil handle to have no capabilities")
		}
		if _, ok := BaseType(nil); ok {
			t.Error("Expected nil handle to have no base type")
		}
		if DeclaringModule(nil) != nil {
			t.Error("Expected nil handle to have no module")
		}
	})
}

// TestBaseType tests supertype resolution through embedding.
func TestBaseType(t *testing.T) {
	mod := newTestModule()
	file := mod.TypeOf(reflect.TypeFor[FileTarget]())
	base := mod.TypeOf(reflect.TypeFor[BaseTarget]())

	got, ok := BaseType(file)
	if !ok {
		t.Fatal("Expected FileTarget to have a base type")
	}
	if got != base {
		t.Errorf("Expected base %s, got %s", base.Name(), got.Name())
	}

	if _, ok := BaseType(base); ok {
		t.Error("Expected BaseTarget to be a root type")
	}

	if !IsSubclassOf(file, base) {
		t.Error("Expected FileTarget to be a subclass of BaseTarget")
	}
	if IsSubclassOf(base, file) {
		t.Error("Expected BaseTarget not to be a subclass of FileTarget")
	}
	if IsSubclassOf(file, file) {
		t.Error("Expected a type not to be a subclass of itself")
	}
}

// TestAttributes tests the attribute queries on the rich surface.
func TestAttributes(t *testing.T) {
	mod := newTestModule()
	file := mod.TypeOf(reflect.TypeFor[FileTarget]())
	base := mod.TypeOf(reflect.TypeFor[BaseTarget]())

	t.Run("SingleAttribute", func(t *testing.T) {
		layout, ok := GetCustomAttribute[Layout](file)
		if !ok {
			t.Fatal("Expected Layout attribute on FileTarget")
		}
		if layout.Pattern != "${message}" {
			t.Errorf("Expected pattern '${message}', got '%s'", layout.Pattern)
		}

		if _, ok := GetCustomAttribute[Target](file); ok {
			t.Error("Expected single-attribute query not to see inherited attributes")
		}
	})

	t.Run("InheritFlag", func(t *testing.T) {
		if got := GetCustomAttributes[Target](file, false); len(got) != 0 {
			t.Errorf("Expected no Target attributes without inherit, got %v", got)
		}
		got := GetCustomAttributes[Target](file, true)
		if len(got) != 1 || got[0].Name != "base" {
			t.Errorf("Expected inherited Target 'base', got %v", got)
		}
	})

	t.Run("IsDefinedMatchesGetCustomAttributes", func(t *testing.T) {
		for _, typ := range []Type{file, base, TypeOf[int]()} {
			for _, inherit := range []bool{false, true} {
				want := len(GetCustomAttributes[Target](typ, inherit)) > 0
				if got := IsDefined[Target](typ, inherit); got != want {
					t.Errorf("%s inherit=%v: IsDefined=%v, GetCustomAttributes non-empty=%v",
						typ.Name(), inherit, got, want)
				}
			}
		}
	})

	t.Run("NonInheritedKind", func(t *testing.T) {
		if !IsDefined[Sealed](base, false) {
			t.Error("Expected Sealed on BaseTarget")
		}
		if IsDefined[Sealed](file, true) {
			t.Error("Expected Sealed not to be inherited")
		}
	})

	t.Run("InterfaceKind", func(t *testing.T) {
		got := GetCustomAttributes[Described](file, true)
		if len(got) != 1 || got[0].Description() != "target base" {
			t.Errorf("Expected one Described attribute, got %v", got)
		}
	})

	t.Run("UnboundHandle", func(t *testing.T) {
		if IsDefined[Layout](TypeOf[FileTarget](), true) {
			t.Error("Expected handle outside a module to carry no attributes")
		}
	})
}

// TestMemberAttributes tests attribute queries on struct fields.
func TestMemberAttributes(t *testing.T) {
	mod := newTestModule()
	file := mod.TypeOf(reflect.TypeFor[FileTarget]())

	path, ok := FindMember(file, "Path")
	if !ok {
		t.Fatal("Expected member Path")
	}
	if path.DeclaringType() != file {
		t.Error("Expected Path to be declared by FileTarget")
	}

	layout, ok := GetMemberAttribute[Layout](path)
	if !ok || layout.Pattern != "path" {
		t.Errorf("Expected Layout 'path' on member, got %v (ok=%v)", layout, ok)
	}

	tag, ok := GetMemberAttribute[reflect.StructTag](path)
	if !ok || tag.Get("config") != "path" {
		t.Errorf("Expected struct tag config:\"path\", got %q", tag)
	}

	if _, ok := FindMember(file, "Encoding"); ok {
		t.Error("Expected inherited member Encoding not to be found on FileTarget")
	}

	embedded, ok := FindMember(file, "BaseTarget")
	if !ok {
		t.Fatal("Expected embedded member BaseTarget")
	}
	if _, ok := GetMemberAttribute[Target](embedded); ok {
		t.Error("Expected member query not to walk inherited declarations")
	}
}

// TestDeclaringModule tests module and assembly accessors.
func TestDeclaringModule(t *testing.T) {
	mod := newTestModule().WithLocation("/opt/app/bin")
	file := mod.TypeOf(reflect.TypeFor[FileTarget]())

	if got := DeclaringModule(file); got != Module(mod) {
		t.Errorf("Expected module Plugins, got %v", got)
	}

	asm := DeclaringAssembly(file)
	if asm.Name != "Plugins" {
		t.Errorf("Expected assembly 'Plugins', got '%s'", asm.Name)
	}
	if asm.CodeBase() != "file:///opt/app/bin" {
		t.Errorf("Expected code base 'file:///opt/app/bin', got '%s'", asm.CodeBase())
	}

	builtin := DeclaringModule(TypeOf[int]())
	if builtin.Name() != "builtin" {
		t.Errorf("Expected builtin module, got '%s'", builtin.Name())
	}
	if ModuleAssembly(builtin).Name == "" {
		t.Error("Expected process assembly to have a name")
	}
}

// TestFlagsString tests flag rendering.
func TestFlagsString(t *testing.T) {
	if got := Flags(0).String(); got != "none" {
		t.Errorf("Expected 'none', got '%s'", got)
	}
	if got := (FlagInterface | FlagAbstract).String(); got != "interface|abstract" {
		t.Errorf("Expected 'interface|abstract', got '%s'", got)
	}
	if got := (FlagEnum | FlagPublic).Names(); len(got) != 2 || got[0] != "enum" || got[1] != "public" {
		t.Errorf("Expected [enum public], got %v", got)
	}
}
