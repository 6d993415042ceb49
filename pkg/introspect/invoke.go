package introspect

import (
	"context"
	"fmt"
)

type missing struct{}

func (missing) String() string { return "<missing>" }

// Missing stands for an omitted argument. InvokeMethod pads short argument
// lists with it; it may also be passed explicitly to skip an optional
// parameter in the middle of a call. Its type is unexported, so it cannot
// be reassigned to any other value.
var Missing missing

// InvokeMethod invokes the static method name declared on the type that
// declares method, passing args positionally.
//
// When the target declares more parameters than supplied, the missing trailing
// arguments are padded with Missing, which resolves to the parameter default.
// Any failure, including a panic or error raised by the method itself, is
// returned as an *InvocationError wrapping the cause.
func InvokeMethod(ctx context.Context, method Method, name string, args ...any) (result any, err error) {
	if method == nil || method.DeclaringType() == nil {
		return nil, &InvocationError{Method: name, Err: ErrMethodNotFound}
	}
	owner := method.DeclaringType()

	target, ok := FindStaticMethod(owner, name)
	if !ok {
		return nil, &InvocationError{Type: owner.Name(), Method: name, Err: ErrMethodNotFound}
	}

	bound, err := bindArguments(target, args)
	if err != nil {
		return nil, &InvocationError{Type: owner.Name(), Method: name, Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &InvocationError{
				Type:   owner.Name(),
				Method: name,
				Err:    fmt.Errorf("%w: %v", ErrMethodPanicked, r),
			}
		}
	}()

	out, err := target.Call(ctx, bound)
	if err != nil {
		return nil, &InvocationError{Type: owner.Name(), Method: name, Err: err}
	}
	return out, nil
}

// bindArguments pads args to the declared parameter count and replaces every
// Missing with the parameter default.
func bindArguments(m Method, args []any) ([]any, error) {
	params := m.Params()
	if len(args) > len(params) && !m.Variadic() {
		return nil, fmt.Errorf("%w: want at most %d, got %d", ErrArgumentCount, len(params), len(args))
	}

	bound := make([]any, len(args), max(len(args), len(params)))
	copy(bound, args)
	for len(bound) < len(params) {
		bound = append(bound, missing{})
	}

	for i, arg := range bound {
		if _, omitted := arg.(missing); !omitted {
			continue
		}
		if i >= len(params) || !params[i].Optional {
			return nil, fmt.Errorf("%w: %s", ErrMissingArgument, paramName(params, i))
		}
		bound[i] = params[i].Default
	}
	return bound, nil
}

func paramName(params []Param, i int) string {
	if i < len(params) && params[i].Name != "" {
		return params[i].Name
	}
	return fmt.Sprintf("#%d", i)
}
