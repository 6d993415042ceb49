package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// EnvModule is the name of the host module offered to guests.
const EnvModule = "env"

// providesModule reports whether the host instantiates the named module.
func providesModule(name string) bool {
	return name == EnvModule || name == wasi_snapshot_preview1.ModuleName
}

// ProvidedModules lists the host modules available to guests.
func ProvidedModules() []string {
	return []string{EnvModule, wasi_snapshot_preview1.ModuleName}
}

// instantiateEnv registers the env host module:
//
//	typescope_abi() i32          the host ABI
//	typescope_log(ptr, len i32)  writes a guest message to the logger
func instantiateEnv(ctx context.Context, runtime wazero.Runtime, config Config) error {
	builder := runtime.NewHostModuleBuilder(EnvModule)

	abi := uint32(config.ABI)
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			return abi
		}).
		Export("typescope_abi")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, ptr, size uint32) {
			if config.Logger == nil || mod.Memory() == nil {
				return
			}
			msg, ok := mod.Memory().Read(ptr, size)
			if !ok {
				return
			}
			config.Logger.Infof("guest %s: %s", mod.Name(), msg)
		}).
		Export("typescope_log")

	_, err := builder.Instantiate(ctx)
	return err
}
