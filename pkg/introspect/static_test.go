package introspect

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

type ConsoleTarget struct {
	BaseTarget
}

type brokenTarget struct{}

// TestStaticModuleExportedTypes tests enumeration order and lazy failures.
func TestStaticModuleExportedTypes(t *testing.T) {
	errResolve := errors.New("dependency not linked")

	mod := NewStaticModule("Plugins").
		Type(reflect.TypeFor[FileTarget]()).
		Lazy(func() (reflect.Type, error) { return nil, errResolve }, Target{Name: "broken"}).
		Lazy(func() (reflect.Type, error) { return reflect.TypeFor[ConsoleTarget](), nil }, Target{Name: "console"}).
		Lazy(func() (reflect.Type, error) { return nil, nil })

	types, err := mod.ExportedTypes()

	var loadErr *TypeLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *TypeLoadError, got %v", err)
	}
	if loadErr.Module != "Plugins" {
		t.Errorf("Expected module Plugins, got %s", loadErr.Module)
	}
	if len(types) != 4 {
		t.Fatalf("Expected 4 type slots, got %d", len(types))
	}
	if types[1] != nil || types[3] != nil {
		t.Errorf("Expected failed slots to be nil, got %v and %v", types[1], types[3])
	}
	if len(loadErr.LoaderErrors) != 2 {
		t.Errorf("Expected 2 loader errors, got %d", len(loadErr.LoaderErrors))
	}
	if !errors.Is(err, errResolve) {
		t.Errorf("Expected resolver error to be wrapped, got %v", err)
	}

	console := types[2]
	if got := GetCustomAttributes[Target](console, false); len(got) != 1 || got[0].Name != "console" {
		t.Errorf("Expected lazy attribute on resolved type, got %v", got)
	}
	if console.Module().Name() != "Plugins" {
		t.Errorf("Expected lazy type to belong to Plugins, got %s", console.Module().Name())
	}
}

// TestStaticModuleHandleIdentity tests that handles for the same type compare
// equal.
func TestStaticModuleHandleIdentity(t *testing.T) {
	mod := NewStaticModule("Plugins").
		Type(reflect.TypeFor[FileTarget]()).
		Type(reflect.TypeFor[BaseTarget]())

	types, err := mod.ExportedTypes()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if types[0] != mod.TypeOf(reflect.TypeFor[FileTarget]()) {
		t.Error("Expected enumerated handle to equal TypeOf handle")
	}
	if base, _ := BaseType(types[0]); base != types[1] {
		t.Error("Expected base handle to equal enumerated BaseTarget handle")
	}
	if rt, ok := Reflect(types[0]); !ok || rt != reflect.TypeFor[FileTarget]() {
		t.Errorf("Expected reflect.Type FileTarget, got %v", rt)
	}
}

// TestStaticModuleConcurrentScan tests that enumeration does not mutate the
// module.
func TestStaticModuleConcurrentScan(t *testing.T) {
	mod := NewStaticModule("Plugins").
		Type(reflect.TypeFor[FileTarget]()).
		Lazy(func() (reflect.Type, error) { return reflect.TypeFor[brokenTarget](), nil }, Layout{Pattern: "x"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			types, err := mod.ExportedTypes()
			if err != nil || len(types) != 2 {
				t.Errorf("Unexpected result: %v, %v", types, err)
			}
		}()
	}
	wg.Wait()
}

// TestAssemblyCodeBase tests code base derivation from the location.
func TestAssemblyCodeBase(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{location: "", want: ""},
		{location: "/opt/app/bin/Plugins.wasm", want: "file:///opt/app/bin/Plugins.wasm"},
		{location: "embed://plugins/Plugins.wasm", want: "embed://plugins/Plugins.wasm"},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			asm := Assembly{Name: "Plugins", Location: tt.location}
			if got := asm.CodeBase(); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}
