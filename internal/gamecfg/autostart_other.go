//go:build !windows

package gamecfg

import (
	"github.com/MimeLyc/startrad-companion/internal/apperror"
)

var errAutostartUnsupported = apperror.New(apperror.KindUnsupported, "autostart is only supported on Windows")

func (a *Autostart) Enable() error {
	return errAutostartUnsupported
}

func (a *Autostart) Disable() error {
	return errAutostartUnsupported
}

func (a *Autostart) Enabled() (bool, error) {
	return false, nil
}
