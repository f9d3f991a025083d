// Package backup copies player data out of, and back into, game installations.
package backup

import (
	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
)

type Locator interface {
	Discover() gamepath.Installations
}

func installPath(locator Locator, channel string) (string, error) {
	inst, ok := locator.Discover()[channel]
	if !ok {
		return "", apperror.Newf(apperror.KindNotFound, "version %s not found", channel)
	}
	return inst.Path, nil
}
