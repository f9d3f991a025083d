package backup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const (
	SubfolderName   = "Backup de personnages"
	DefaultChannel  = "LIVE"
	characterPrefix = "backup_customcharacters_"
	timestampLayout = "20060102_150405"
	entryDateLayout = "2006-01-02 15:04"
)

// Entry is one character backup folder.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Date string `json:"date"`
}

// Characters manages customcharacters snapshots in a user-chosen folder.
// The chosen folder is remembered in a one-line text file.
type Characters struct {
	configPath string
	locator    Locator
	now        func() time.Time
}

func NewCharacters(configPath string, locator Locator) *Characters {
	return &Characters{configPath: configPath, locator: locator, now: time.Now}
}

// CustomCharactersDir is where the game keeps saved characters.
func CustomCharactersDir(installPath string) string {
	return filepath.Join(installPath, "user", "client", "0", "customcharacters")
}

// Dir returns the backup root, or "" when none was configured. A saved
// folder that is not the backup subfolder is upgraded to it.
func (c *Characters) Dir() (string, error) {
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", apperror.Wrap(err, apperror.KindIO, "failed to read backup dir setting")
	}
	saved := strings.TrimSpace(string(data))
	if saved == "" {
		return "", nil
	}
	if filepath.Base(saved) == SubfolderName {
		return saved, nil
	}

	dir := filepath.Join(saved, SubfolderName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "failed to create backup dir")
	}
	if err := c.saveDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// SetDir creates the backup subfolder under root, takes a first snapshot
// of LIVE when possible and remembers the folder.
func (c *Characters) SetDir(root string) (string, error) {
	root, err := file.ExpandHome(strings.TrimSpace(root))
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindInvalid, "invalid backup dir")
	}
	if root == "" || root == "." {
		return "", apperror.New(apperror.KindInvalid, "backup dir is required")
	}

	dir := filepath.Join(root, SubfolderName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "failed to create backup dir")
	}

	// initial snapshot is optional
	if src, err := c.sourceDir(DefaultChannel); err == nil && file.IsDir(src) {
		if _, err := c.snapshot(src, dir); err != nil {
			log.Warn("[Backup] Initial character backup failed: %v", err)
		}
	}

	return dir, c.saveDir(dir)
}

func (c *Characters) List() ([]Entry, error) {
	dir, err := c.Dir()
	if err != nil || dir == "" {
		return []Entry{}, err
	}
	dirs, err := file.FindDirs(dir, "")
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindIO, "failed to list backups")
	}

	entries := make([]Entry, 0, len(dirs))
	for _, d := range dirs {
		entries = append(entries, Entry{
			Name: d.Name,
			Path: d.Path,
			Date: d.ModTime.Local().Format(entryDateLayout),
		})
	}
	return entries, nil
}

func (c *Characters) Count() int {
	entries, err := c.List()
	if err != nil {
		return 0
	}
	return len(entries)
}

// Create snapshots the customcharacters folder of channel.
func (c *Characters) Create(channel string) (Entry, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	src, err := c.sourceDir(channel)
	if err != nil {
		return Entry{}, err
	}
	if !file.IsDir(src) {
		return Entry{}, apperror.New(apperror.KindNotFound, "customcharacters folder does not exist").
			WithContext("path", src)
	}

	dir, err := c.Dir()
	if err != nil {
		return Entry{}, err
	}
	if dir == "" {
		return Entry{}, apperror.New(apperror.KindInvalid, "no backup folder configured")
	}
	return c.snapshot(src, dir)
}

// Restore replaces channel's customcharacters folder with backupPath.
func (c *Characters) Restore(backupPath, channel string) error {
	if !file.IsDir(backupPath) {
		return apperror.New(apperror.KindNotFound, "backup folder not found").WithContext("path", backupPath)
	}
	dst, err := c.sourceDir(channel)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dst); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to clear customcharacters")
	}
	if err := file.CopyDir(backupPath, dst); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to restore backup")
	}
	log.Info("[Backup] Restored %s to %s", filepath.Base(backupPath), channel)
	return nil
}

// Delete removes a backup folder. Missing folders are ignored.
func (c *Characters) Delete(backupPath string) error {
	if err := os.RemoveAll(backupPath); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to delete backup")
	}
	return nil
}

func (c *Characters) snapshot(src, dir string) (Entry, error) {
	now := c.now()
	name := characterPrefix + now.Format(timestampLayout)
	dst := filepath.Join(dir, name)
	if err := file.CopyDir(src, dst); err != nil {
		return Entry{}, apperror.Wrap(err, apperror.KindIO, "failed to copy characters")
	}
	log.Info("[Backup] Character backup created: %s", name)
	return Entry{Name: name, Path: dst, Date: now.Format(entryDateLayout)}, nil
}

func (c *Characters) sourceDir(channel string) (string, error) {
	path, err := installPath(c.locator, channel)
	if err != nil {
		return "", err
	}
	return CustomCharactersDir(path), nil
}

func (c *Characters) saveDir(dir string) error {
	if err := file.WriteAtomic(c.configPath, []byte(dir), 0o600); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to save backup dir setting")
	}
	return nil
}
