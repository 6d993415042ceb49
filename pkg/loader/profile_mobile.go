//go:build mobile

package loader

// DefaultResolver returns the resolver of the mobile profile: modules are
// looked up in Linked.
func DefaultResolver() Resolver {
	return Linked
}
