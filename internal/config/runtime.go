package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/myle-app/myle/internal/logging"
	"github.com/pelletier/go-toml/v2"
)

// Runtime is the part of the config file that is applied without a restart.
type Runtime struct {
	Logging         logging.Config
	UpdatesDisabled bool
}

// LoadRuntime reads the hot-reloadable settings from the TOML file at path.
// Unlike LoadLoggingConfig it reports read and parse errors, so a broken edit
// leaves the running settings untouched.
func LoadRuntime(path string) (Runtime, error) {
	rt := Runtime{
		Logging: logging.Config{
			Level:   "info",
			Format:  "text",
			Modules: make(map[string]string),
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rt, fmt.Errorf("failed to read config: %w", err)
	}

	var raw struct {
		Logging map[string]any `toml:"logging"`
		Updates struct {
			Disabled bool `toml:"disabled"`
		} `toml:"updates"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return rt, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for key, value := range raw.Logging {
		level, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			rt.Logging.Level = level
		case "format":
			rt.Logging.Format = level
		default:
			rt.Logging.Modules[key] = level
		}
	}
	rt.UpdatesDisabled = raw.Updates.Disabled

	return rt, nil
}

// updaterDisableVars switch the updater off when set. ELECTRON_NO_UPDATER must be "1".
var updaterDisableVars = []string{"ELECTRON_NO_UPDATER", "BYPASS_UPDATER", EnvPrefix + "NO_UPDATER"}

// UpdatesDisabledByEnv reports whether the environment switches the updater off,
// and names the variable that did.
func UpdatesDisabledByEnv() (bool, string) {
	for _, key := range updaterDisableVars {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			continue
		}
		if key == "ELECTRON_NO_UPDATER" && value != "1" {
			continue
		}
		if strings.EqualFold(value, "false") || value == "0" {
			continue
		}
		return true, "disabled by " + key
	}
	return false, ""
}
