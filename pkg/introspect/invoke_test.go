package introspect

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

var errDiskFull = errors.New("disk full")

type Formatter struct{}

func formatMessage(level Level, msg string, prefix string) string {
	return prefix + level.String() + ": " + msg
}

func newFormatterModule() *StaticModule {
	rt := reflect.TypeFor[Formatter]()
	return NewStaticModule("Formatters").
		Func(rt, "Format", formatMessage,
			Param{Name: "level"},
			Param{Name: "msg"},
			Param{Name: "prefix", Optional: true, Default: "> "}).
		Func(rt, "Sum", func(a, b, c int) int { return a + b + c },
			Param{Name: "a"},
			Param{Name: "b", Optional: true, Default: 10},
			Param{Name: "c"}).
		Func(rt, "Join", func(sep string, parts ...string) string { return strings.Join(parts, sep) },
			Param{Name: "sep"}).
		Func(rt, "Echo8", func(n int8) int8 { return n }, Param{Name: "n"}).
		Func(rt, "EchoUint", func(n uint) uint { return n }, Param{Name: "n"}).
		Func(rt, "EchoInt", func(n int) int { return n }, Param{Name: "n"}).
		Func(rt, "Half", func(f float32) float32 { return f / 2 }, Param{Name: "f"}).
		Func(rt, "Flush", func() error { return errDiskFull }).
		Func(rt, "Crash", func() { panic("target crashed") }).
		Func(rt, "Split", func(s string) (string, string, error) {
			head, tail, _ := strings.Cut(s, ":")
			return head, tail, nil
		})
}

func anyMethod(t *testing.T, typ Type) Method {
	t.Helper()
	methods := typ.StaticMethods()
	if len(methods) == 0 {
		t.Fatalf("Expected static methods on %s", typ.Name())
	}
	return methods[len(methods)-1]
}

// TestInvokeMethod tests static method invocation with argument padding.
func TestInvokeMethod(t *testing.T) {
	ctx := context.Background()
	typ := newFormatterModule().TypeOf(reflect.TypeFor[Formatter]())
	handle := anyMethod(t, typ)

	tests := []struct {
		name   string
		method string
		args   []any
		want   any
	}{
		{
			name:   "Trailing optional padded with default",
			method: "Format",
			args:   []any{LevelWarn, "disk full"},
			want:   "> WARN: disk full",
		},
		{
			name:   "All arguments supplied",
			method: "Format",
			args:   []any{LevelError, "boom", "! "},
			want:   "! ERROR: boom",
		},
		{
			name:   "Explicit missing in the middle",
			method: "Sum",
			args:   []any{1, Missing, 3},
			want:   14,
		},
		{
			name:   "Numeric argument converted",
			method: "Format",
			args:   []any{2, "converted"},
			want:   "> ERROR: converted",
		},
		{
			name:   "Narrowed integer in range",
			method: "Echo8",
			args:   []any{int64(-128)},
			want:   int8(-128),
		},
		{
			name:   "Integral float to integer",
			method: "EchoInt",
			args:   []any{2.0},
			want:   2,
		},
		{
			name:   "Integer to float",
			method: "Half",
			args:   []any{int64(3)},
			want:   float32(1.5),
		},
		{
			name:   "Variadic tail",
			method: "Join",
			args:   []any{",", "a", "b", "c"},
			want:   "a,b,c",
		},
		{
			name:   "Variadic without tail",
			method: "Join",
			args:   []any{","},
			want:   "",
		},
		{
			name:   "Multiple results",
			method: "Split",
			args:   []any{"key:value"},
			want:   []any{"key", "value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InvokeMethod(ctx, handle, tt.method, tt.args...)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestInvokeMethodErrors tests that every failure comes back as an
// InvocationError wrapping its cause.
func TestInvokeMethodErrors(t *testing.T) {
	ctx := context.Background()
	typ := newFormatterModule().TypeOf(reflect.TypeFor[Formatter]())
	handle := anyMethod(t, typ)

	tests := []struct {
		name   string
		method string
		args   []any
		want   error
	}{
		{
			name:   "Unknown method",
			method: "Nope",
			want:   ErrMethodNotFound,
		},
		{
			name:   "Required argument missing",
			method: "Format",
			args:   []any{LevelInfo},
			want:   ErrMissingArgument,
		},
		{
			name:   "Explicit missing for required parameter",
			method: "Sum",
			args:   []any{Missing, 2, 3},
			want:   ErrMissingArgument,
		},
		{
			name:   "Too many arguments",
			method: "Format",
			args:   []any{LevelInfo, "a", "b", "c"},
			want:   ErrArgumentCount,
		},
		{
			name:   "Wrong argument type",
			method: "Format",
			args:   []any{"not a level", "msg"},
			want:   ErrArgumentType,
		},
		{
			name:   "Integer overflows narrower parameter",
			method: "Echo8",
			args:   []any{300},
			want:   ErrArgumentType,
		},
		{
			name:   "Negative to unsigned",
			method: "EchoUint",
			args:   []any{-1},
			want:   ErrArgumentType,
		},
		{
			name:   "Fraction to integer",
			method: "EchoInt",
			args:   []any{2.9},
			want:   ErrArgumentType,
		},
		{
			name:   "Unsigned overflows signed",
			method: "EchoInt",
			args:   []any{uint64(1) << 63},
			want:   ErrArgumentType,
		},
		{
			name:   "Float overflows float32",
			method: "Half",
			args:   []any{1e300},
			want:   ErrArgumentType,
		},
		{
			name:   "Method returns an error",
			method: "Flush",
			want:   errDiskFull,
		},
		{
			name:   "Method panics",
			method: "Crash",
			want:   ErrMethodPanicked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InvokeMethod(ctx, handle, tt.method, tt.args...)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !IsInvocationError(err) {
				t.Errorf("Expected InvocationError, got %T", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected error to wrap %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("NilHandle", func(t *testing.T) {
		_, err := InvokeMethod(ctx, nil, "Format")
		if !errors.Is(err, ErrMethodNotFound) {
			t.Errorf("Expected ErrMethodNotFound, got %v", err)
		}
	})

	t.Run("ErrorNamesTarget", func(t *testing.T) {
		_, err := InvokeMethod(ctx, handle, "Flush")
		var invErr *InvocationError
		if !errors.As(err, &invErr) {
			t.Fatalf("Expected *InvocationError, got %T", err)
		}
		if invErr.Method != "Flush" || !strings.HasSuffix(invErr.Type, "Formatter") {
			t.Errorf("Expected Formatter.Flush, got %s.%s", invErr.Type, invErr.Method)
		}
	})
}

// TestMissingPadding tests that short argument lists and explicit omissions
// resolve to the same parameter default.
func TestMissingPadding(t *testing.T) {
	ctx := context.Background()
	handle := anyMethod(t, newFormatterModule().TypeOf(reflect.TypeFor[Formatter]()))

	var omitted any = Missing
	padded, err := InvokeMethod(ctx, handle, "Format", LevelInfo, "msg")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	explicit, err := InvokeMethod(ctx, handle, "Format", LevelInfo, "msg", omitted)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if padded != explicit || padded != "> INFO: msg" {
		t.Errorf("Expected both calls to use the default prefix, got %q and %q", padded, explicit)
	}
}

// TestStaticMethodParams tests parameter descriptions derived from Func.
func TestStaticMethodParams(t *testing.T) {
	typ := newFormatterModule().TypeOf(reflect.TypeFor[Formatter]())

	format, ok := FindStaticMethod(typ, "Format")
	if !ok {
		t.Fatal("Expected static method Format")
	}
	params := format.Params()
	if len(params) != 3 {
		t.Fatalf("Expected 3 params, got %d", len(params))
	}
	if params[2].Name != "prefix" || !params[2].Optional || params[2].Type != "string" {
		t.Errorf("Unexpected prefix param: %+v", params[2])
	}

	join, _ := FindStaticMethod(typ, "Join")
	if !join.Variadic() {
		t.Error("Expected Join to be variadic")
	}

	flush, _ := FindStaticMethod(typ, "Flush")
	if len(flush.Params()) != 0 {
		t.Errorf("Expected Flush to take no params, got %v", flush.Params())
	}
}

// TestFuncPanicsOnBadDeclaration tests the builder's argument checks.
func TestFuncPanicsOnBadDeclaration(t *testing.T) {
	rt := reflect.TypeFor[Formatter]()

	tests := []struct {
		name   string
		fn     any
		params []Param
	}{
		{name: "Not a function", fn: 42},
		{name: "Too many params", fn: func(int) {}, params: []Param{{Name: "a"}, {Name: "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Expected panic")
				}
			}()
			NewStaticModule("Bad").Func(rt, "Bad", tt.fn, tt.params...)
		})
	}
}
