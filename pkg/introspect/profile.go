package introspect

// Profile identifies the hosting profile the binary was built for.
type Profile string

const (
	// ProfileFull is the full runtime: binaries come from the filesystem.
	ProfileFull Profile = "full"

	// ProfileSandbox is the sandboxed runtime: binaries come from embedded
	// resources.
	ProfileSandbox Profile = "sandbox"

	// ProfileMobile is the restricted mobile runtime: binaries are linked in
	// and resolved by name.
	ProfileMobile Profile = "mobile"
)
