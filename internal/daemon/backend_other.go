//go:build !linux

package daemon

import (
	"errors"

	"github.com/1broseidon/dashell/internal/platform"
)

func openX11Backend() (platform.Backend, error) {
	return nil, errors.New("the x11 backend is only available on linux")
}
