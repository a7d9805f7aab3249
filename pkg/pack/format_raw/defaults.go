package format_raw

// =================================
// File permissions defaults
// =================================
const (
	FilePerms = 0o644 // Packs are copied to devices by other tools
	DirPerms  = 0o755
)

// =================================
// Output defaults
// =================================
const (
	LockSuffix = ".lock"
	TmpPrefix  = ".storypack-"

	// Headroom required on the destination volume on top of the pack size
	DiskSpaceHeadroom = 1024 * 1024
)
