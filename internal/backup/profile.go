package backup

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const (
	userDirName  = "user"
	userCfgName  = "user.cfg"
	archiveLimit = 2 << 30
)

// Profiles archives a channel's user/ folder and user.cfg.
type Profiles struct {
	locator Locator
	workDir string
	now     func() time.Time
}

// NewProfiles writes archives into workDir, or the system temp dir when
// workDir is empty.
func NewProfiles(locator Locator, workDir string) *Profiles {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Profiles{locator: locator, workDir: workDir, now: time.Now}
}

// Create zips the profile of channel and returns the archive path.
func (p *Profiles) Create(channel string) (string, error) {
	base, err := installPath(p.locator, channel)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.workDir, 0o755); err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "failed to create archive dir")
	}
	zipPath := filepath.Join(p.workDir, fmt.Sprintf("user_backup_%s.zip", p.now().UTC().Format(timestampLayout)))
	out, err := os.Create(zipPath)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "failed to create archive")
	}

	if err := WriteArchive(base, out); err != nil {
		out.Close()
		_ = os.Remove(zipPath)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "failed to write archive")
	}
	log.Info("[Backup] Profile archive for %s written to %s", channel, zipPath)
	return zipPath, nil
}

// Restore replaces the profile of channel with the archive at zipPath.
func (p *Profiles) Restore(zipPath, channel string) error {
	base, err := installPath(p.locator, channel)
	if err != nil {
		return err
	}
	return ExtractArchive(zipPath, base)
}

// WriteArchive writes user/ (recursively) and user.cfg found under base.
func WriteArchive(base string, w io.Writer) error {
	userDir := filepath.Join(base, userDirName)
	userCfg := filepath.Join(base, userCfgName)
	if !file.Exists(userDir) && !file.Exists(userCfg) {
		return apperror.New(apperror.KindNotFound, "user/ and user.cfg do not exist").WithContext("path", base)
	}

	zw := zip.NewWriter(w)
	if file.IsDir(userDir) {
		err := filepath.WalkDir(userDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			if d.IsDir() {
				_, err := zw.Create(name + "/")
				return err
			}
			return addFile(zw, path, name)
		})
		if err != nil {
			return apperror.Wrap(err, apperror.KindIO, "failed to archive user folder")
		}
	}
	if file.Exists(userCfg) {
		if err := addFile(zw, userCfg, userCfgName); err != nil {
			return apperror.Wrap(err, apperror.KindIO, "failed to archive user.cfg")
		}
	}
	if err := zw.Close(); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to finish archive")
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// ExtractArchive removes the current user/ and user.cfg under base, then
// unpacks zipPath into it. Entries other than user/ and user.cfg are
// rejected before anything is removed.
func ExtractArchive(zipPath, base string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		if os.IsNotExist(err) {
			return apperror.New(apperror.KindNotFound, "archive not found").WithContext("path", zipPath)
		}
		return apperror.Wrap(err, apperror.KindInvalid, "failed to read archive")
	}
	defer r.Close()

	root := filepath.Clean(base)
	for _, f := range r.File {
		if !withinRoot(root, filepath.Join(root, filepath.FromSlash(f.Name))) {
			return apperror.New(apperror.KindInvalid, "archive entry escapes installation").WithContext("entry", f.Name)
		}
		if !profileEntry(f.Name) {
			return apperror.New(apperror.KindInvalid, "archive entry is not part of a profile").WithContext("entry", f.Name)
		}
	}

	userDir := filepath.Join(root, userDirName)
	if err := os.RemoveAll(userDir); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to remove previous user folder")
	}
	if err := os.Remove(filepath.Join(root, userCfgName)); err != nil && !os.IsNotExist(err) {
		return apperror.Wrap(err, apperror.KindIO, "failed to remove previous user.cfg")
	}
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to create user folder")
	}

	for _, f := range r.File {
		if f.Name == "" || f.Name == userDirName+"/" {
			continue
		}
		dst := filepath.Join(root, filepath.FromSlash(f.Name))
		if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return apperror.Wrap(err, apperror.KindIO, "failed to create folder").WithContext("entry", f.Name)
			}
			continue
		}
		if err := extractFile(f, dst); err != nil {
			return apperror.Wrap(err, apperror.KindIO, "failed to extract file").WithContext("entry", f.Name)
		}
	}
	log.Info("[Backup] Restored %d archive entries into %s", len(r.File), root)
	return nil
}

// profileEntry reports whether name is user.cfg or lies under user/.
func profileEntry(name string) bool {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	return clean == userCfgName || clean == userDirName || strings.HasPrefix(clean, userDirName+"/")
}

func withinRoot(root, path string) bool {
	path = filepath.Clean(path)
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(rc, archiveLimit)); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
