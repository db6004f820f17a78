package infra

import (
	"os"
	"path/filepath"
)

const appName = "sicbo-client"

// EnsureDir creates the directory if it doesn't exist with safe permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ResolveConfigPath attempts to find the config.yaml.
// Priority: 1. SICBO_CONFIG env, 2. Current Dir, 3. OS Config Dir
func ResolveConfigPath() string {
	if p := os.Getenv("SICBO_CONFIG"); p != "" {
		return p
	}

	defaultPath := filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	if configRoot, err := os.UserConfigDir(); err == nil {
		osPath := filepath.Join(configRoot, appName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	// Return default and let LoadConfig report the missing file.
	return defaultPath
}
