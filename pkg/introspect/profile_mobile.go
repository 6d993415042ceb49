//go:build mobile

package introspect

// ActiveProfile is the hosting profile selected by build tags.
const ActiveProfile = ProfileMobile
