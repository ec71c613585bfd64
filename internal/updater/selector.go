package updater

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/myle-app/myle/internal/transport"
)

// InstallMode is how the running application was deployed.
type InstallMode string

// Installation modes.
const (
	ModePortable  InstallMode = "portable"
	ModeInstalled InstallMode = "installed"
)

// ParseInstallMode maps a config value to a mode; "auto" and unknown values return "".
func ParseInstallMode(s string) InstallMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModePortable):
		return ModePortable
	case string(ModeInstalled):
		return ModeInstalled
	default:
		return ""
	}
}

// DetectInstallMode classifies exePath. Paths under Program Files or the per-user
// programs directory are installed; everything else, including unknown locations,
// is portable.
func DetectInstallMode(exePath string) InstallMode {
	if os.Getenv("PORTABLE_EXECUTABLE_DIR") != "" {
		return ModePortable
	}

	p := strings.ToLower(strings.ReplaceAll(exePath, `\`, "/"))
	if strings.Contains(filepath.Base(p), "portable") {
		return ModePortable
	}
	if tmp := strings.ToLower(strings.ReplaceAll(os.TempDir(), `\`, "/")); tmp != "" && strings.HasPrefix(p, tmp) {
		return ModePortable
	}
	if strings.Contains(p, "/program files") || strings.Contains(p, "/appdata/local/programs/") {
		return ModeInstalled
	}
	return ModePortable
}

// DetectCurrentInstallMode classifies the running executable.
func DetectCurrentInstallMode() InstallMode {
	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return ModePortable
	}
	return DetectInstallMode(exe)
}

var (
	executableExts = map[string]string{
		"windows": ".exe",
		"linux":   ".appimage",
		"darwin":  ".dmg",
	}
	platformKeywords = map[string][]string{
		"windows": {"win"},
		"linux":   {"linux"},
		"darwin":  {"mac", "darwin", "osx"},
	}
	installerKeywords = []string{"installer", "setup", "nsis"}
)

// AssetSelector picks the release asset for an installation mode.
type AssetSelector struct {
	AppName  string
	Platform string
}

func (s AssetSelector) isExecutable(name string) bool {
	ext, ok := executableExts[s.Platform]
	if !ok {
		ext = executableExts["windows"]
	}
	return strings.HasSuffix(strings.ToLower(name), ext)
}

func modeKeywords(mode InstallMode) []string {
	if mode == ModeInstalled {
		return installerKeywords
	}
	return []string{"portable"}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Select applies the ordered predicates and returns the first match, or false.
func (s AssetSelector) Select(mode InstallMode, assets []transport.ReleaseAsset) (transport.ReleaseAsset, bool) {
	keywords := modeKeywords(mode)
	app := strings.ToLower(s.AppName)

	predicates := []func(name string) bool{
		func(name string) bool {
			return s.isExecutable(name) && containsAny(name, keywords)
		},
		func(name string) bool {
			return app != "" && strings.Contains(name, app) && containsAny(name, keywords)
		},
		s.isExecutable,
		func(name string) bool {
			return containsAny(name, platformKeywords[s.Platform])
		},
	}

	for _, match := range predicates {
		for _, a := range assets {
			if match(strings.ToLower(a.Name)) {
				return a, true
			}
		}
	}
	return transport.ReleaseAsset{}, false
}
