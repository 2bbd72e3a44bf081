// Package socketpath resolves the compositor socket from the environment.
package socketpath

import (
	"errors"
	"path/filepath"
)

const defaultDisplay = "wayland-0"

var ErrNoRuntimeDir = errors.New("socketpath: XDG_RUNTIME_DIR not set")

// Resolve returns the socket path named by WAYLAND_DISPLAY, relative to
// XDG_RUNTIME_DIR unless it is absolute. getenv is usually os.Getenv.
func Resolve(getenv func(string) string) (string, error) {
	display := getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = defaultDisplay
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	dir := getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", ErrNoRuntimeDir
	}
	return filepath.Join(dir, display), nil
}
