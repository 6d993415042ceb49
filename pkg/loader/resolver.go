package loader

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/openfroyo/typescope/pkg/introspect"
)

// Extension is appended to every logical binary name.
const Extension = ".wasm"

// Source is a resolved binary: either raw WASM bytes to compile or a module
// that is already linked into the process.
type Source struct {
	Bytes  []byte
	Module introspect.Module
}

// Resolver maps logical binary names to their contents for one hosting
// profile.
type Resolver interface {
	// Profile reports the hosting profile the resolver serves.
	Profile() introspect.Profile

	// Location returns where name is looked up. It is the memoization key
	// and the path reported in logs.
	Location(name, baseLocation string) string

	// Open reads the binary at location. Missing binaries yield an error
	// matching fs.ErrNotExist.
	Open(ctx context.Context, location string) (*Source, error)
}

// FileResolver reads binaries from the filesystem, relative to the base
// location given on each load.
type FileResolver struct{}

// Profile implements Resolver.
func (FileResolver) Profile() introspect.Profile { return introspect.ProfileFull }

// Location implements Resolver.
func (FileResolver) Location(name, baseLocation string) string {
	return filepath.Join(baseLocation, name+Extension)
}

// Open implements Resolver.
func (FileResolver) Open(_ context.Context, location string) (*Source, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, err
	}
	return &Source{Bytes: data}, nil
}

// ResourceResolver reads binaries from an embedded resource tree. The base
// location is ignored.
type ResourceResolver struct {
	fsys fs.FS
}

// NewResourceResolver creates a resolver over fsys.
func NewResourceResolver(fsys fs.FS) *ResourceResolver {
	if fsys == nil {
		fsys = embed.FS{}
	}
	return &ResourceResolver{fsys: fsys}
}

// Profile implements Resolver.
func (r *ResourceResolver) Profile() introspect.Profile { return introspect.ProfileSandbox }

// Location implements Resolver.
func (r *ResourceResolver) Location(name, _ string) string {
	return path.Clean(name + Extension)
}

// Open implements Resolver.
func (r *ResourceResolver) Open(_ context.Context, location string) (*Source, error) {
	// Names escaping the resource root cannot name a resource.
	if !fs.ValidPath(location) {
		return nil, &fs.PathError{Op: "open", Path: location, Err: fs.ErrNotExist}
	}
	data, err := fs.ReadFile(r.fsys, location)
	if err != nil {
		return nil, err
	}
	return &Source{Bytes: data}, nil
}

// NamedResolver resolves names against modules linked into the process.
// The base location is ignored.
type NamedResolver struct {
	mu      sync.RWMutex
	modules map[string]introspect.Module
}

// NewNamedResolver creates a resolver holding mods, keyed by module name.
func NewNamedResolver(mods ...introspect.Module) *NamedResolver {
	r := &NamedResolver{modules: make(map[string]introspect.Module)}
	for _, m := range mods {
		_ = r.Register(m)
	}
	return r
}

// Register links m under its name.
func (r *NamedResolver) Register(m introspect.Module) error {
	if m == nil {
		return errors.New("cannot register nil module")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[m.Name()]; exists {
		return fmt.Errorf("module %s already registered", m.Name())
	}
	r.modules[m.Name()] = m
	return nil
}

// Names returns the registered module names in sorted order.
func (r *NamedResolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile implements Resolver.
func (r *NamedResolver) Profile() introspect.Profile { return introspect.ProfileMobile }

// Location implements Resolver.
func (r *NamedResolver) Location(name, _ string) string { return name }

// Open implements Resolver.
func (r *NamedResolver) Open(_ context.Context, location string) (*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[location]
	if !ok {
		return nil, fmt.Errorf("module %s: %w", location, fs.ErrNotExist)
	}
	return &Source{Module: m}, nil
}

// Resources holds the embedded binaries served by the sandbox profile.
var Resources fs.FS = embed.FS{}

// Linked holds the in-process modules served by the mobile profile.
var Linked = NewNamedResolver()
