package gamecfg

import (
	"os"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
)

// Autostart registers the application to start minimized with the
// user session. Only Windows supports it.
type Autostart struct {
	name string
	exe  string
	args []string
}

// NewAutostart targets the running executable.
func NewAutostart(name string, args ...string) (*Autostart, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindIO, "failed to locate executable")
	}
	return &Autostart{name: name, exe: exe, args: args}, nil
}

func (a *Autostart) command() string {
	cmd := `"` + a.exe + `"`
	for _, arg := range a.args {
		cmd += " " + arg
	}
	return cmd
}
