package wasmhost

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
)

// bindMethod validates m against the binary's exports and returns a
// descriptor that calls the export.
func (b *Binary) bindMethod(m MethodSpec, exports map[string]api.FunctionDefinition) (introspect.MethodDescriptor, error) {
	export := m.Export
	if export == "" {
		export = m.Name
	}

	def, ok := exports[export]
	if !ok {
		return introspect.MethodDescriptor{}, fmt.Errorf("%w: %s", ErrExportNotFound, export)
	}

	paramTypes := def.ParamTypes()
	if len(paramTypes) != len(m.Params) {
		return introspect.MethodDescriptor{}, fmt.Errorf("%w: %s takes %d params, %d declared",
			ErrSignatureMismatch, export, len(paramTypes), len(m.Params))
	}
	params := make([]introspect.Param, len(m.Params))
	for i, p := range m.Params {
		if got := api.ValueTypeName(paramTypes[i]); got != p.Type {
			return introspect.MethodDescriptor{}, fmt.Errorf("%w: param %s is %s, declared %s",
				ErrSignatureMismatch, p.Name, got, p.Type)
		}
		params[i] = introspect.Param{Name: p.Name, Type: p.Type, Optional: p.Optional, Default: p.Default}
	}

	results := def.ResultTypes()
	wantResults := 0
	if m.Result != "" {
		wantResults = 1
	}
	if len(results) != wantResults || (wantResults == 1 && api.ValueTypeName(results[0]) != m.Result) {
		return introspect.MethodDescriptor{}, fmt.Errorf("%w: result of %s", ErrSignatureMismatch, export)
	}

	return introspect.MethodDescriptor{
		Name:   m.Name,
		Params: params,
		Invoke: b.invoker(export, m),
	}, nil
}

func (b *Binary) invoker(export string, m MethodSpec) func(context.Context, []any) (any, error) {
	return func(ctx context.Context, args []any) (any, error) {
		params := make([]uint64, len(args))
		for i, arg := range args {
			v, err := encodeValue(arg, m.Params[i].Type)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", m.Params[i].Name, err)
			}
			params[i] = v
		}

		// A call under a done context would close the shared instance.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", export, err)
		}

		if b.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
			defer cancel()
		}

		results, err := b.call(ctx, export, params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", export, err)
		}
		if m.Result == "" || len(results) == 0 {
			return nil, nil
		}
		return decodeValue(results[0], m.Result), nil
	}
}

// call runs export on the current instance. When another caller's
// cancellation closed the instance under this call, it is retried once on a
// fresh instance.
func (b *Binary) call(ctx context.Context, export string, params []uint64) ([]uint64, error) {
	for attempt := 0; ; attempt++ {
		mod, err := b.instance(ctx)
		if err != nil {
			return nil, err
		}

		fn := mod.ExportedFunction(export)
		if fn == nil {
			return nil, fmt.Errorf("%w: %s", ErrExportNotFound, export)
		}

		results, err := fn.Call(ctx, params...)
		if err != nil && attempt == 0 && ctx.Err() == nil && closedByCancel(err) {
			continue
		}
		return results, err
	}
}

func closedByCancel(err error) bool {
	var exit *sys.ExitError
	if !errors.As(err, &exit) {
		return false
	}
	code := exit.ExitCode()
	return code == sys.ExitCodeContextCanceled || code == sys.ExitCodeDeadlineExceeded
}

func encodeValue(arg any, typ string) (uint64, error) {
	rv := reflect.ValueOf(arg)
	if !rv.IsValid() {
		return 0, nil
	}

	switch typ {
	case "i32", "i64":
		n, ok := asInt(rv)
		if !ok {
			return 0, fmt.Errorf("%w: cannot use %T as %s", introspect.ErrArgumentType, arg, typ)
		}
		if typ == "i32" {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return 0, fmt.Errorf("%w: %v overflows %s", introspect.ErrArgumentType, arg, typ)
			}
			return api.EncodeI32(int32(n)), nil
		}
		return api.EncodeI64(n), nil
	case "f32", "f64":
		f, ok := asFloat(rv)
		if !ok {
			return 0, fmt.Errorf("%w: cannot use %T as %s", introspect.ErrArgumentType, arg, typ)
		}
		if typ == "f32" {
			return api.EncodeF32(float32(f)), nil
		}
		return api.EncodeF64(f), nil
	default:
		return 0, fmt.Errorf("%w: unknown value type %q", introspect.ErrArgumentType, typ)
	}
}

func decodeValue(v uint64, typ string) any {
	switch typ {
	case "i32":
		return api.DecodeI32(v)
	case "i64":
		return int64(v)
	case "f32":
		return api.DecodeF32(v)
	case "f64":
		return api.DecodeF64(v)
	default:
		return v
	}
}

func asInt(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func asFloat(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		n, ok := asInt(rv)
		return float64(n), ok
	}
}
