// Package wasmhost loads WebAssembly binaries as modules of the restricted
// introspection surface. A binary declares its exported types in a msgpack
// type table stored in the SectionName custom section; static methods are
// bound to exported functions and run under wazero.
package wasmhost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// HostABI is the newest type table ABI this host understands.
const HostABI = 1

// DefaultMemoryLimitPages is the default memory limit (16MB).
const DefaultMemoryLimitPages = 256

var (
	// ErrMalformed is returned when a binary cannot be compiled or its type
	// table cannot be decoded.
	ErrMalformed = errors.New("malformed binary")

	// ErrABIUnsupported marks a binary or type built for a newer ABI.
	ErrABIUnsupported = errors.New("unsupported type table ABI")

	// ErrHostModuleMissing marks a type that requires a host module this host
	// does not provide.
	ErrHostModuleMissing = errors.New("required host module not provided")

	// ErrExportNotFound marks a method bound to a function the binary does
	// not export.
	ErrExportNotFound = errors.New("exported function not found")

	// ErrSignatureMismatch marks a method whose declared parameters disagree
	// with the exported function.
	ErrSignatureMismatch = errors.New("method signature does not match export")
)

// Logger receives messages written by guests through the host module.
type Logger interface {
	Infof(format string, args ...any)
}

// Config contains configuration for compiling and running binaries.
type Config struct {
	// MemoryLimitPages is the maximum memory limit in pages (64KB each).
	MemoryLimitPages uint32

	// ABI is the newest type table ABI accepted. Defaults to HostABI.
	ABI int

	// Timeout bounds each method invocation. Zero means no timeout. A
	// timed-out invocation closes the instance; later calls fail.
	Timeout time.Duration

	// Kinds decodes attributes. Without it every attribute surfaces as an
	// introspect.RawAttribute.
	Kinds *Kinds

	// Logger receives guest log messages. Optional.
	Logger Logger
}

// DefaultConfig returns the default host configuration.
func DefaultConfig() Config {
	return Config{
		MemoryLimitPages: DefaultMemoryLimitPages,
		ABI:              HostABI,
		Timeout:          30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.MemoryLimitPages == 0 {
		c.MemoryLimitPages = DefaultMemoryLimitPages
	}
	if c.ABI == 0 {
		c.ABI = HostABI
	}
	return c
}

// Binary is a compiled WASM binary exposed as an introspect.Module.
type Binary struct {
	*introspect.DescriptorModule

	// runtime is the wazero runtime owning the binary.
	runtime wazero.Runtime

	// compiled is the compiled module, instantiated on first invocation.
	compiled wazero.CompiledModule

	// config is the host configuration.
	config Config

	// table is the decoded type table.
	table *TypeTable

	// mu guards the host modules and the instance. A module closed by a
	// cancelled call is instantiated again by the next one.
	mu     sync.Mutex
	host   bool
	module api.Module
}

// Compile compiles wasm and decodes its type table. Types that cannot be
// materialized do not fail the binary; they are reported by ExportedTypes.
func Compile(ctx context.Context, name, location string, wasm []byte, config Config) (*Binary, error) {
	config = config.withDefaults()

	runtimeConfig := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(config.MemoryLimitPages).
		WithCloseOnContextDone(true).
		WithCustomSections(true)

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)

	compiled, err := runtime.CompileModule(ctx, wasm)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	table, err := readTypeTable(compiled)
	if err != nil {
		runtime.Close(ctx)
		return nil, err
	}
	if table.ABI > config.ABI {
		runtime.Close(ctx)
		return nil, fmt.Errorf("%w: binary requires ABI %d, host supports %d", ErrABIUnsupported, table.ABI, config.ABI)
	}

	b := &Binary{
		runtime:  runtime,
		compiled: compiled,
		config:   config,
		table:    table,
	}

	exports := compiled.ExportedFunctions()
	descs := make([]introspect.Descriptor, len(table.Types))
	for i, spec := range table.Types {
		descs[i] = b.describe(spec, exports)
	}

	b.DescriptorModule = introspect.NewDescriptorModule(name, introspect.Assembly{Name: name, Location: location}, descs)
	return b, nil
}

// readTypeTable decodes the type table section. A binary without one
// exports no types.
func readTypeTable(compiled wazero.CompiledModule) (*TypeTable, error) {
	var found []byte
	seen := false
	for _, s := range compiled.CustomSections() {
		if s.Name() != SectionName {
			continue
		}
		if seen {
			return nil, fmt.Errorf("%w: duplicate %s section", ErrMalformed, SectionName)
		}
		seen = true
		found = s.Data()
	}
	if !seen {
		return &TypeTable{ABI: HostABI}, nil
	}

	table, err := DecodeTypeTable(found)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return table, nil
}

// describe converts a type spec into a descriptor, marking it failed when the
// host cannot materialize it.
func (b *Binary) describe(spec TypeSpec, exports map[string]api.FunctionDefinition) introspect.Descriptor {
	d := introspect.Descriptor{
		Name:  spec.Name,
		Flags: specFlags(spec),
		Base:  spec.Base,
	}

	if spec.ABI > b.config.ABI {
		d.Err = fmt.Errorf("%w: type requires ABI %d, host supports %d", ErrABIUnsupported, spec.ABI, b.config.ABI)
		return d
	}
	for _, req := range spec.Requires {
		if !providesModule(req) {
			d.Err = fmt.Errorf("%w: %s", ErrHostModuleMissing, req)
			return d
		}
	}

	attrs, err := b.config.Kinds.decodeAll(spec.Attributes)
	if err != nil {
		d.Err = err
		return d
	}
	d.Attributes = attrs

	for _, f := range spec.Fields {
		fattrs, err := b.config.Kinds.decodeAll(f.Attributes)
		if err != nil {
			d.Err = fmt.Errorf("field %s: %w", f.Name, err)
			return d
		}
		d.Fields = append(d.Fields, introspect.FieldDescriptor{Name: f.Name, Attributes: fattrs})
	}

	for _, m := range spec.Methods {
		md, err := b.bindMethod(m, exports)
		if err != nil {
			d.Err = fmt.Errorf("method %s: %w", m.Name, err)
			return d
		}
		d.Methods = append(d.Methods, md)
	}
	return d
}

func specFlags(spec TypeSpec) introspect.Flags {
	var f introspect.Flags
	switch spec.Kind {
	case KindInterface:
		f |= introspect.FlagInterface | introspect.FlagAbstract
	case KindEnum:
		f |= introspect.FlagEnum
	case KindPrimitive:
		f |= introspect.FlagPrimitive
	}
	if spec.Abstract {
		f |= introspect.FlagAbstract
	}
	if spec.Exported && !spec.Nested {
		f |= introspect.FlagPublic
	}
	if spec.Nested && !spec.Exported {
		f |= introspect.FlagNestedPrivate
	}
	if spec.GenericParams > 0 || len(spec.TypeArgs) > 0 {
		f |= introspect.FlagGeneric
	}
	if spec.GenericParams > 0 && len(spec.TypeArgs) == 0 {
		f |= introspect.FlagGenericDefinition
	}
	return f
}

// Table returns the decoded type table.
func (b *Binary) Table() *TypeTable {
	return b.table
}

// Close releases the runtime and any instance.
func (b *Binary) Close(ctx context.Context) error {
	if b.runtime == nil {
		return nil
	}
	if err := b.runtime.Close(ctx); err != nil {
		return fmt.Errorf("failed to close WASM runtime: %w", err)
	}
	return nil
}

// instance returns the instantiated module, instantiating it on first use
// or after it was closed. Instantiation does not inherit the caller's
// cancellation.
func (b *Binary) instance(ctx context.Context) (api.Module, error) {
	ctx = context.WithoutCancel(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.module != nil && !b.module.IsClosed() {
		return b.module, nil
	}
	if !b.host {
		if err := b.instantiateHost(ctx); err != nil {
			return nil, err
		}
		b.host = true
	}

	mod, err := b.instantiate(ctx)
	if err != nil {
		return nil, err
	}
	b.module = mod
	return mod, nil
}

func (b *Binary) instantiateHost(ctx context.Context) error {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, b.runtime); err != nil {
		return fmt.Errorf("failed to instantiate WASI: %w", err)
	}
	if err := instantiateEnv(ctx, b.runtime, b.config); err != nil {
		return fmt.Errorf("failed to instantiate host module: %w", err)
	}
	return nil
}

func (b *Binary) instantiate(ctx context.Context) (api.Module, error) {
	moduleConfig := wazero.NewModuleConfig().
		WithName(b.Name()).
		WithStartFunctions("_initialize")

	mod, err := b.runtime.InstantiateModule(ctx, b.compiled, moduleConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate WASM module: %w", err)
	}
	return mod, nil
}
