package version

import (
	"runtime/debug"
)

// Version is overridden at release time via
// -ldflags "-X .../internal/version.Version=x.y.z".
var Version = "1.0.0"

// Resolve returns the release version, appending the VCS revision when
// the binary was built from a checkout rather than a tagged release.
func Resolve() string {
	return resolveVersion(Version, debug.ReadBuildInfo)
}

func resolveVersion(base string, readBuildInfo func() (*debug.BuildInfo, bool)) string {
	if base == "" {
		base = "0.0.0"
	}

	info, ok := readBuildInfo()
	if !ok {
		return base
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if revision == "" {
		return base
	}
	if len(revision) > 8 {
		revision = revision[:8]
	}
	if modified {
		revision += "-dirty"
	}

	return base + "+" + revision
}
