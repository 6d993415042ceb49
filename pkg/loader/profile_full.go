//go:build !sandbox && !mobile

package loader

// DefaultResolver returns the resolver of the full profile: binaries are read
// from the filesystem.
func DefaultResolver() Resolver {
	return FileResolver{}
}
