// Package gamecfg reads and edits the files a Star Citizen installation
// keeps outside the translation: user.cfg graphics keys, key bindings,
// local character presets, the shader cache and the launcher logs used to
// compute playtime.
package gamecfg

import (
	"path/filepath"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
)

const userCfgName = "user.cfg"

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

func profileDir(installPath string) string {
	return filepath.Join(installPath, "user", "client", "0")
}
