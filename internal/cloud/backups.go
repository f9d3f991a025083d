package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/file"
)

const (
	backupTimestampLayout = "20060102_150405"
	preferencesObject     = "preferences.json"
)

// Store scopes storage operations to the signed-in user's folder.
type Store struct {
	client       *Client
	backupBucket string
	prefsBucket  string
	now          func() time.Time
}

func NewStore(client *Client, backupBucket, prefsBucket string) *Store {
	return &Store{
		client:       client,
		backupBucket: backupBucket,
		prefsBucket:  prefsBucket,
		now:          time.Now,
	}
}

func (s *Store) session(token string) (Session, error) {
	return ParseSession(token, s.now())
}

// BackupKey is <user>/backup_<version>_<timestamp>.zip.
func BackupKey(userID, version string, at time.Time) string {
	return fmt.Sprintf("%s/backup_%s_%s.zip", userID, version, at.UTC().Format(backupTimestampLayout))
}

// UploadBackup sends the archive at zipPath and returns its key.
func (s *Store) UploadBackup(ctx context.Context, token, version, zipPath string) (string, error) {
	sess, err := s.session(token)
	if err != nil {
		return "", err
	}
	f, err := os.Open(zipPath)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "failed to open archive")
	}
	defer f.Close()

	key := BackupKey(sess.UserID, version, s.now())
	if err := s.client.Upload(ctx, sess.Token, s.backupBucket, key, "application/zip", f); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Store) ListBackups(ctx context.Context, token string) ([]Object, error) {
	sess, err := s.session(token)
	if err != nil {
		return nil, err
	}
	return s.client.List(ctx, sess.Token, s.backupBucket, sess.UserID+"/")
}

// DownloadBackup saves the object at key into dir and returns the local path.
func (s *Store) DownloadBackup(ctx context.Context, token, key, dir string) (string, error) {
	sess, err := s.ownedKey(token, key)
	if err != nil {
		return "", err
	}
	body, err := s.client.Download(ctx, sess.Token, s.backupBucket, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindNetwork, "failed to read backup")
	}
	local := filepath.Join(dir, fmt.Sprintf("downloaded_backup_%s.zip", s.now().UTC().Format(backupTimestampLayout)))
	if err := file.WriteAtomic(local, data, 0o600); err != nil {
		return "", apperror.Wrap(err, apperror.KindIO, "failed to save backup")
	}
	return local, nil
}

func (s *Store) DeleteBackup(ctx context.Context, token, key string) error {
	sess, err := s.ownedKey(token, key)
	if err != nil {
		return err
	}
	return s.client.Delete(ctx, sess.Token, s.backupBucket, key)
}

// ownedKey rejects keys outside the caller's folder.
func (s *Store) ownedKey(token, key string) (Session, error) {
	sess, err := s.session(token)
	if err != nil {
		return Session{}, err
	}
	if !strings.HasPrefix(key, sess.UserID+"/") || strings.Contains(key, "..") {
		return Session{}, apperror.New(apperror.KindInvalid, "backup does not belong to this account").WithContext("key", key)
	}
	return sess, nil
}

func (s *Store) preferencesKey(sess Session) string {
	return sess.UserID + "/" + preferencesObject
}

func (s *Store) SavePreferences(ctx context.Context, token string, prefs json.RawMessage) error {
	sess, err := s.session(token)
	if err != nil {
		return err
	}
	if !json.Valid(prefs) {
		return apperror.New(apperror.KindInvalid, "preferences must be valid JSON")
	}
	return s.client.Upload(ctx, sess.Token, s.prefsBucket, s.preferencesKey(sess), "application/json", strings.NewReader(string(prefs)))
}

// LoadPreferences returns nil when nothing was saved yet.
func (s *Store) LoadPreferences(ctx context.Context, token string) (json.RawMessage, error) {
	sess, err := s.session(token)
	if err != nil {
		return nil, err
	}
	body, err := s.client.Download(ctx, sess.Token, s.prefsBucket, s.preferencesKey(sess))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindNetwork, "failed to read preferences")
	}
	if !json.Valid(data) {
		return nil, apperror.New(apperror.KindInvalid, "stored preferences are not valid JSON")
	}
	return json.RawMessage(data), nil
}

func (s *Store) DeletePreferences(ctx context.Context, token string) error {
	sess, err := s.session(token)
	if err != nil {
		return err
	}
	err = s.client.Delete(ctx, sess.Token, s.prefsBucket, s.preferencesKey(sess))
	if apperror.IsKind(err, apperror.KindNotFound) {
		return nil
	}
	return err
}
