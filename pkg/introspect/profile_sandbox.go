//go:build sandbox && !mobile

package introspect

// ActiveProfile is the hosting profile selected by build tags.
const ActiveProfile = ProfileSandbox
