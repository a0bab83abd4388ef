package patchly

import (
	"fmt"
)

const (
	// VersionMajor represents the current major version of Patchly.
	VersionMajor = 0
	// VersionMinor represents the current minor version of Patchly.
	VersionMinor = 1
	// VersionPatch represents the current patch version of Patchly.
	VersionPatch = 0
	// VersionTag represents a tag to be appended to the Patchly version
	// string. It must not contain spaces. If empty, no tag is appended to the
	// version string.
	VersionTag = ""
)

// Version provides a stringified version of the current Patchly release.
var Version string

func init() {
	if VersionTag != "" {
		Version = fmt.Sprintf("%d.%d.%d-%s", VersionMajor, VersionMinor, VersionPatch, VersionTag)
	} else {
		Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
	}
}

// ContainerFormatVersion is the on-wire version byte written into every patch
// container header. It tracks the container layout, not the release version
// above, and only changes if that layout changes.
const ContainerFormatVersion = 0x01
