//go:build windows

package gamecfg

import (
	"errors"

	"golang.org/x/sys/windows/registry"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const runKey = `Software\Microsoft\Windows\CurrentVersion\Run`

func (a *Autostart) Enable() error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to open startup registry key")
	}
	defer k.Close()
	if err := k.SetStringValue(a.name, a.command()); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to enable autostart")
	}
	log.Info("[Autostart] Enabled for %s", a.exe)
	return nil
}

func (a *Autostart) Disable() error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil
		}
		return apperror.Wrap(err, apperror.KindIO, "failed to open startup registry key")
	}
	defer k.Close()
	if err := k.DeleteValue(a.name); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return apperror.Wrap(err, apperror.KindIO, "failed to disable autostart")
	}
	log.Info("[Autostart] Disabled")
	return nil
}

func (a *Autostart) Enabled() (bool, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, apperror.Wrap(err, apperror.KindIO, "failed to open startup registry key")
	}
	defer k.Close()
	if _, _, err := k.GetStringValue(a.name); err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, apperror.Wrap(err, apperror.KindIO, "failed to read autostart entry")
	}
	return true, nil
}
