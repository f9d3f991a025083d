package gamepath

import (
	"os/exec"
	"regexp"
	"strings"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

// LauncherStatus reports whether the launcher executable was found.
type LauncherStatus struct {
	Installed bool   `json:"installed"`
	Path      string `json:"path,omitempty"`
}

var rsiRootRe = regexp.MustCompile(`([a-zA-Z]:(?:\\{1,2}(?:[^\\"'\r\n]+\\{1,2})*?)Roberts Space Industries)\\`)

// DefaultLauncherPaths are checked when the log does not mention the launcher.
var DefaultLauncherPaths = []string{
	`C:\Program Files\Roberts Space Industries\RSI Launcher\RSI Launcher.exe`,
	`C:\Program Files (x86)\Roberts Space Industries\RSI Launcher\RSI Launcher.exe`,
}

// FindLauncher looks for the launcher next to the install root mentioned in
// the log, then in the default install locations.
func (l *Locator) FindLauncher() LauncherStatus {
	var found string
	_ = scanLinesReverse(l.logPath, l.maxLine, func(line string) bool {
		for _, m := range rsiRootRe.FindAllStringSubmatch(line, -1) {
			root := strings.ReplaceAll(m[1], `\\`, `\`)
			candidate := JoinInstallPath(root, "RSI Launcher", "RSI Launcher.exe")
			if l.exists(candidate) {
				found = candidate
				return false
			}
		}
		return true
	})
	if found != "" {
		return LauncherStatus{Installed: true, Path: found}
	}

	for _, candidate := range DefaultLauncherPaths {
		if l.exists(candidate) {
			return LauncherStatus{Installed: true, Path: candidate}
		}
	}
	return LauncherStatus{}
}

// LaunchLauncher starts the launcher as a detached process.
func (l *Locator) LaunchLauncher() error {
	status := l.FindLauncher()
	if !status.Installed {
		return apperror.New(apperror.KindNotFound, "RSI Launcher not found, please install it first")
	}

	cmd := exec.Command(status.Path)
	if err := cmd.Start(); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "start RSI Launcher").WithContext("path", status.Path)
	}
	log.Info("[Locator] Started launcher %s (pid %d)", status.Path, cmd.Process.Pid)
	return cmd.Process.Release()
}
