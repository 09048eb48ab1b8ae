package run

import (
	"os"
	"runtime"
	"runtime/debug"

	"tickvault/internal/manifest"
)

const versionUnknown = "UNKNOWN"

// Fingerprint captures the host environment once at run creation: platform,
// Go runtime and the module listing baked into the binary.
func Fingerprint() manifest.Environment {
	hostname, _ := os.Hostname()
	env := manifest.Environment{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		Runtime:  runtime.Version(),
		Hostname: hostname,
		Modules:  []string{},
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return env
	}
	if info.Main.Path != "" {
		env.Modules = append(env.Modules, info.Main.Path+" "+moduleVersion(info.Main.Version))
	}
	for _, dep := range info.Deps {
		env.Modules = append(env.Modules, dep.Path+" "+moduleVersion(dep.Version))
	}
	return env
}

// CodeVersion returns the VCS revision stamped into the binary. Best effort:
// builds outside version control report UNKNOWN, never an error.
func CodeVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return versionUnknown
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			return setting.Value
		}
	}
	return versionUnknown
}

func moduleVersion(v string) string {
	if v == "" {
		return "(devel)"
	}
	return v
}
