// Package platform detects the host operating system and exposes the
// platform facts font installation depends on, such as whether unix
// permission bits can be restored. It also provides the read-only Lua view
// used by the declarative catalog and config files.
//
// Linux distribution details come from gopsutil. Detection failures for the
// distribution are tolerated; OS and architecture always come from the runtime.
package platform

import (
	"context"
	"strings"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// windowsSubtree is the top-level directory aggregator archives use for
// Windows-only font variants.
const windowsSubtree = "Windows"

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // normalized, e.g. "amd64", "arm64"
	ArchRaw  string // GOARCH before normalization
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel", "arch")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// SupportsFileModes reports whether unix permission bits carried by archive
// entries can be applied to files written on this platform.
func (i *Info) SupportsFileModes() bool {
	switch i.OS {
	case "windows", "plan9", "js", "wasip1":
		return false
	default:
		return i.OS != ""
	}
}

// IgnoredSubtrees returns the top-level archive directories that hold
// variants for other operating systems and must never be extracted here.
func (i *Info) IgnoredSubtrees() []string {
	if i.IsWindows() {
		return nil
	}
	return []string{windowsSubtree}
}

// IsIgnoredSubtree reports whether the given top-level path component is one
// of the subtrees returned by IgnoredSubtrees.
func (i *Info) IsIgnoredSubtree(component string) bool {
	for _, s := range i.IgnoredSubtrees() {
		if strings.EqualFold(s, component) {
			return true
		}
	}
	return false
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// Static is a Detector that always returns the same Info. It is used when
// the platform has already been detected once, and in tests.
type Static struct {
	Info *Info
}

// Detect returns the stored Info.
func (s Static) Detect(ctx context.Context) (*Info, error) {
	return s.Info, nil
}
