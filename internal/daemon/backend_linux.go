//go:build linux

package daemon

import "github.com/1broseidon/dashell/internal/platform"

func openX11Backend() (platform.Backend, error) {
	return platform.NewLinuxBackendFromDisplay()
}
