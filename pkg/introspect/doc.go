// Package introspect provides a uniform type-introspection facade over the
// reflection surfaces a plugin host can encounter.
//
// Two surfaces produce type handles:
//
//   - The rich surface wraps reflect.Type for types linked into the process.
//     Types are grouped into a StaticModule that also carries their attributes,
//     field attributes and static functions.
//
//   - The restricted surface is descriptor-only. A DescriptorModule is built
//     from plain Descriptor values, typically decoded from a WASM binary's type
//     table by package wasmhost. Nothing but the descriptor is known about the
//     type.
//
// Callers never branch on the surface. Every capability query (IsEnum,
// IsAbstract, GetCustomAttributes, InvokeMethod, ...) takes a Type, Member or
// Method and answers the same way for both.
//
// # Attributes
//
// Attributes are ordinary Go values. An attribute kind is a Go type, so
//
//	target, ok := introspect.GetCustomAttribute[TargetAttribute](t)
//
// returns the first TargetAttribute declared on t. Interface kinds match every
// attribute that implements them. The order in which attributes are reported
// is not specified; single-attribute queries return the first one encountered.
//
// # Loading failures
//
// Module.ExportedTypes reports partially loadable binaries with a
// *TypeLoadError. Package scanner turns that into the usable subset.
package introspect
