//go:build sandbox && !mobile

package loader

// DefaultResolver returns the resolver of the sandbox profile: binaries are
// read from Resources.
func DefaultResolver() Resolver {
	return NewResourceResolver(Resources)
}
