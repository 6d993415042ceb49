package introspect

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func pluginDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:       "Plugins.Foo",
			Flags:      FlagPublic,
			Attributes: []any{Target{Name: "foo"}, Sealed{}},
			Fields: []FieldDescriptor{
				{Name: "Layout", Attributes: []any{Layout{Pattern: "${level}"}}},
			},
		},
		{
			Name: "Plugins.Bar",
			Base: "Plugins.Missing",
		},
		{
			Name:  "Plugins.Baz",
			Flags: FlagPublic,
			Base:  "Plugins.Foo",
			Methods: []MethodDescriptor{
				{
					Name: "Create",
					Params: []Param{
						{Name: "name", Type: "string"},
						{Name: "level", Type: "int"},
						{Name: "buffered", Type: "bool", Optional: true, Default: true},
					},
					Invoke: func(_ context.Context, args []any) (any, error) {
						return fmt.Sprintf("%v/%v/%v", args[0], args[1], args[2]), nil
					},
				},
			},
		},
	}
}

// TestDescriptorModulePartialLoad tests that one broken descriptor leaves the
// others loadable.
func TestDescriptorModulePartialLoad(t *testing.T) {
	mod := NewDescriptorModule("Plugins", Assembly{Name: "Plugins"}, pluginDescriptors())

	types, err := mod.ExportedTypes()
	if err == nil {
		t.Fatal("Expected TypeLoadError, got nil")
	}

	var loadErr *TypeLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *TypeLoadError, got %T", err)
	}
	if len(types) != 3 || len(loadErr.Types) != 3 {
		t.Fatalf("Expected 3 type slots, got %d and %d", len(types), len(loadErr.Types))
	}
	if types[0] == nil || types[0].Name() != "Plugins.Foo" {
		t.Errorf("Expected Plugins.Foo at index 0, got %v", types[0])
	}
	if types[1] != nil {
		t.Errorf("Expected nil at index 1, got %v", types[1])
	}
	if types[2] == nil || types[2].Name() != "Plugins.Baz" {
		t.Errorf("Expected Plugins.Baz at index 2, got %v", types[2])
	}

	if len(loadErr.LoaderErrors) != 1 {
		t.Fatalf("Expected 1 loader error, got %d", len(loadErr.LoaderErrors))
	}
	if !errors.Is(loadErr.LoaderErrors[0], ErrBaseTypeNotFound) {
		t.Errorf("Expected ErrBaseTypeNotFound, got %v", loadErr.LoaderErrors[0])
	}
	if !errors.Is(err, ErrBaseTypeNotFound) {
		t.Error("Expected TypeLoadError to unwrap to its loader errors")
	}
}

// TestDescriptorModuleFailures tests each way a descriptor can fail.
func TestDescriptorModuleFailures(t *testing.T) {
	errHost := errors.New("host rejected type")

	tests := []struct {
		name       string
		descs      []Descriptor
		wantNil    []int
		wantErrors int
	}{
		{
			name: "Failure cascades to derived types",
			descs: []Descriptor{
				{Name: "A", Err: errHost},
				{Name: "B", Base: "A"},
				{Name: "C", Base: "B"},
				{Name: "D"},
			},
			wantNil:    []int{0, 1, 2},
			wantErrors: 3,
		},
		{
			name: "Inheritance cycle",
			descs: []Descriptor{
				{Name: "A", Base: "B"},
				{Name: "B", Base: "A"},
				{Name: "C"},
			},
			wantNil:    []int{0, 1},
			wantErrors: 2,
		},
		{
			name: "Duplicate name",
			descs: []Descriptor{
				{Name: "A"},
				{Name: "A"},
			},
			wantNil:    []int{1},
			wantErrors: 1,
		},
		{
			name: "Base declared later",
			descs: []Descriptor{
				{Name: "Derived", Base: "Root"},
				{Name: "Root"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			types, err := NewDescriptorModule("M", Assembly{Name: "M"}, tt.descs).ExportedTypes()

			if tt.wantErrors == 0 {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
			} else {
				var loadErr *TypeLoadError
				if !errors.As(err, &loadErr) {
					t.Fatalf("Expected *TypeLoadError, got %v", err)
				}
				if len(loadErr.LoaderErrors) != tt.wantErrors {
					t.Errorf("Expected %d loader errors, got %d: %v", tt.wantErrors, len(loadErr.LoaderErrors), loadErr.LoaderErrors)
				}
			}

			nilAt := make(map[int]bool)
			for _, i := range tt.wantNil {
				nilAt[i] = true
			}
			for i, typ := range types {
				if nilAt[i] != (typ == nil) {
					t.Errorf("Index %d: expected nil=%v, got %v", i, nilAt[i], typ)
				}
			}
		})
	}

	t.Run("HostErrorPreserved", func(t *testing.T) {
		_, err := NewDescriptorModule("M", Assembly{}, []Descriptor{{Name: "A", Err: errHost}}).ExportedTypes()
		if !errors.Is(err, errHost) {
			t.Errorf("Expected host error to be preserved, got %v", err)
		}
	})
}

// TestDescriptorAttributes tests attribute inheritance on the restricted
// surface.
func TestDescriptorAttributes(t *testing.T) {
	types, _ := NewDescriptorModule("Plugins", Assembly{Name: "Plugins"}, pluginDescriptors()).ExportedTypes()
	foo, baz := types[0], types[2]

	if base, ok := BaseType(baz); !ok || base != foo {
		t.Fatalf("Expected Baz to derive from Foo, got %v", base)
	}
	if !IsSubclassOf(baz, foo) {
		t.Error("Expected Baz to be a subclass of Foo")
	}

	if got := GetCustomAttributes[Target](baz, false); len(got) != 0 {
		t.Errorf("Expected no declared Target on Baz, got %v", got)
	}
	if got := GetCustomAttributes[Target](baz, true); len(got) != 1 || got[0].Name != "foo" {
		t.Errorf("Expected inherited Target 'foo', got %v", got)
	}
	if IsDefined[Sealed](baz, true) {
		t.Error("Expected Sealed not to be inherited")
	}

	layoutField, ok := FindMember(foo, "Layout")
	if !ok {
		t.Fatal("Expected member Layout on Foo")
	}
	if l, ok := GetMemberAttribute[Layout](layoutField); !ok || l.Pattern != "${level}" {
		t.Errorf("Expected Layout '${level}', got %v", l)
	}

	if DeclaringAssembly(baz).Name != "Plugins" {
		t.Errorf("Expected assembly Plugins, got %s", DeclaringAssembly(baz).Name)
	}
}

// TestDescriptorInvoke tests argument padding on the restricted surface.
func TestDescriptorInvoke(t *testing.T) {
	types, _ := NewDescriptorModule("Plugins", Assembly{Name: "Plugins"}, pluginDescriptors()).ExportedTypes()
	baz := types[2]

	create, ok := FindStaticMethod(baz, "Create")
	if !ok {
		t.Fatal("Expected static method Create")
	}

	got, err := InvokeMethod(context.Background(), create, "Create", "file", 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "file/3/true" {
		t.Errorf("Expected 'file/3/true', got %v", got)
	}

	if _, err := InvokeMethod(context.Background(), create, "Create", "file"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Expected ErrMissingArgument, got %v", err)
	}
}
