package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "stepwise"

var configFileNames = []string{"config.yaml", "config.yml", "config.json"}

// SearchConfigFile looks for stepwise/config.{yaml,yml,json} in the XDG
// config directories.
func SearchConfigFile() (string, bool) {
	for _, name := range configFileNames {
		if path, err := xdg.SearchConfigFile(filepath.Join(appName, name)); err == nil {
			return path, true
		}
	}
	return "", false
}

// DefaultConfigPath is where a user config file is expected.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}
