package config

import (
	"os"
	"path/filepath"
)

// appDir is the per-application directory name under OS data roots.
const appDir = "pubrt"

// DefaultDataDir returns where an on-disk pebble buffer keeps its scratch
// files when no directory is configured. Order: $XDG_DATA_HOME, /var/lib,
// the macOS and Windows per-user data roots, then ~/.pubrt. Without a home
// directory it falls back to ./data.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	candidates := []struct{ root, dir string }{
		{"/var/lib", filepath.Join("/var/lib", appDir)},
		{filepath.Join(homeDir, "Library"), filepath.Join(homeDir, "Library", "Application Support", appDir)},
		{filepath.Join(homeDir, "AppData"), filepath.Join(homeDir, "AppData", "Local", appDir)},
	}
	for _, c := range candidates {
		if isWritableDir(c.root) {
			return c.dir
		}
	}
	return filepath.Join(homeDir, "."+appDir)
}

// ResolveDataDir returns the directory an on-disk pebble store should use:
// the configured one, or DefaultDataDir()/buffer.
func ResolveDataDir(cfg StoreConfig) string {
	if cfg.DataDir != "" {
		return cfg.DataDir
	}
	return filepath.Join(DefaultDataDir(), "buffer")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// isWritableDir is isDir plus a best-effort write probe; /var/lib exists on
// most Linux hosts but is rarely writable by an unprivileged server.
func isWritableDir(path string) bool {
	if !isDir(path) {
		return false
	}
	f, err := os.CreateTemp(path, ".pubrt-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
