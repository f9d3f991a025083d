// Package updater checks GitHub releases for a newer application version
// and downloads its installer.
package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-github/v66/github"
	"github.com/mitchellh/go-homedir"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/notify"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

var installerExts = []string{".msi", ".exe"}

type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
	Size        int    `json:"size"`
}

// Release compares the latest published release with the running version.
type Release struct {
	Current      string  `json:"current"`
	Latest       string  `json:"latest"`
	Available    bool    `json:"available"`
	Notes        string  `json:"notes,omitempty"`
	PageURL      string  `json:"page_url,omitempty"`
	PublishedAt  string  `json:"published_at,omitempty"`
	InstallerURL string  `json:"installer_url,omitempty"`
	Assets       []Asset `json:"assets"`
}

type Updater struct {
	gh       *github.Client
	http     *http.Client
	owner    string
	repo     string
	current  string
	destDir  string
	notifier notify.Notifier
}

type Option func(*Updater)

// WithDownloadDir overrides the ~/Downloads default.
func WithDownloadDir(dir string) Option {
	return func(u *Updater) {
		u.destDir = dir
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(u *Updater) {
		u.notifier = n
	}
}

func New(gh *github.Client, httpClient *http.Client, owner, repo, current string, opts ...Option) *Updater {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	u := &Updater{
		gh:       gh,
		http:     httpClient,
		owner:    owner,
		repo:     repo,
		current:  current,
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Updater) Check(ctx context.Context) (Release, error) {
	current, err := semver.NewVersion(u.current)
	if err != nil {
		return Release{}, apperror.Wrap(err, apperror.KindInvalid, "invalid application version").WithContext("version", u.current)
	}

	rel, _, err := u.gh.Repositories.GetLatestRelease(ctx, u.owner, u.repo)
	if err != nil {
		return Release{}, apperror.Wrap(err, apperror.KindNetwork, "failed to fetch latest release")
	}

	tag := rel.GetTagName()
	latest, err := semver.NewVersion(tag)
	if err != nil {
		return Release{}, apperror.Wrap(err, apperror.KindInvalid, "release tag is not a version").WithContext("tag", tag)
	}

	out := Release{
		Current:   current.String(),
		Latest:    latest.String(),
		Available: latest.GreaterThan(current),
		Notes:     rel.GetBody(),
		PageURL:   rel.GetHTMLURL(),
		Assets:    make([]Asset, 0, len(rel.Assets)),
	}
	if rel.PublishedAt != nil {
		out.PublishedAt = rel.GetPublishedAt().Format("2006-01-02T15:04:05Z07:00")
	}
	for _, a := range rel.Assets {
		asset := Asset{Name: a.GetName(), DownloadURL: a.GetBrowserDownloadURL(), Size: a.GetSize()}
		out.Assets = append(out.Assets, asset)
		if out.InstallerURL == "" && isInstaller(asset.Name) {
			out.InstallerURL = asset.DownloadURL
		}
	}

	if out.Available {
		log.Info("[Updater] Version %s available (running %s)", out.Latest, out.Current)
	} else {
		log.Debug("[Updater] Running latest version %s", out.Current)
	}
	return out, nil
}

func isInstaller(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range installerExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Download saves the installer at rawURL into the download dir and
// returns the local path.
func (u *Updater) Download(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return "", apperror.New(apperror.KindInvalid, "invalid download url").WithContext("url", rawURL)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		return "", apperror.New(apperror.KindInvalid, "download url has no file name").WithContext("url", rawURL)
	}

	dir, err := u.downloadDir()
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindInvalid, "invalid download request")
	}
	resp, err := u.http.Do(req)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindNetwork, "download failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperror.Newf(apperror.KindNetwork, "download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindNetwork, "failed to read download")
	}
	if err := file.WriteAtomic(dest, data, 0o755); err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "failed to save installer")
	}
	log.Info("[Updater] Installer saved to %s (%d bytes)", dest, len(data))

	notify.BestEffort(ctx, u.notifier, "Mise à jour disponible",
		fmt.Sprintf("L'installateur %s a été téléchargé.", name))
	return dest, nil
}

func (u *Updater) downloadDir() (string, error) {
	if u.destDir != "" {
		return u.destDir, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "cannot locate home directory")
	}
	return filepath.Join(home, "Downloads"), nil
}
