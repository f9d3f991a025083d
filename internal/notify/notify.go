// Package notify raises desktop notifications through the platform's
// notification command.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

type runner func(ctx context.Context, name string, args ...string) error

// Desktop shells out to notify-send, osascript or powershell.
type Desktop struct {
	goos    string
	appName string
	lookup  func(string) (string, error)
	run     runner
	timeout time.Duration
}

type Option func(*Desktop)

func WithPlatform(goos string) Option {
	return func(d *Desktop) {
		d.goos = goos
	}
}

func WithRunner(lookup func(string) (string, error), run runner) Option {
	return func(d *Desktop) {
		d.lookup = lookup
		d.run = run
	}
}

func NewDesktop(appName string, opts ...Option) *Desktop {
	d := &Desktop{
		goos:    runtime.GOOS,
		appName: appName,
		lookup:  exec.LookPath,
		run:     execRun,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Desktop) Notify(ctx context.Context, title, body string) error {
	name, args := d.command(title, body)

	cmdPath, err := d.lookup(name)
	if err != nil {
		return apperror.Wrap(err, apperror.KindUnsupported, "notification command not available").
			WithContext("command", name)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.run(ctx, cmdPath, args...); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to show notification")
	}
	return nil
}

func (d *Desktop) command(title, body string) (string, []string) {
	switch d.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(body), appleQuote(title))
		return "osascript", []string{"-e", script}
	case "windows":
		script := fmt.Sprintf(windowsToastScript, psQuote(d.appName), psQuote(title), psQuote(body))
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}
	default:
		return "notify-send", []string{"--app-name", d.appName, title, body}
	}
}

const windowsToastScript = `[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] > $null
$t = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$x = $t.GetElementsByTagName('text')
$x.Item(0).AppendChild($t.CreateTextNode(%[2]s)) > $null
$x.Item(1).AppendChild($t.CreateTextNode(%[3]s)) > $null
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier(%[1]s).Show([Windows.UI.Notifications.ToastNotification]::new($t))`

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func execRun(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		log.Debug("[Notify] %s output: %s", name, strings.TrimSpace(string(out)))
	}
	return err
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }

// BestEffort shows a notification and only logs a failure.
func BestEffort(ctx context.Context, n Notifier, title, body string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, title, body); err != nil {
		log.Warn("[Notify] %v", err)
	}
}
