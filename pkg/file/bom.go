package file

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// UTF8BOM is the byte order mark the game expects in localization files.
var UTF8BOM = []byte{0xEF, 0xBB, 0xBF}

// HasBOM reports whether data starts with a UTF-8 BOM.
func HasBOM(data []byte) bool {
	return bytes.HasPrefix(data, UTF8BOM)
}

// StripBOM returns data without a leading UTF-8 BOM.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, UTF8BOM)
}

// WithBOM returns data with exactly one leading UTF-8 BOM.
func WithBOM(data []byte) []byte {
	if HasBOM(data) {
		return data
	}
	return PrependBOM(data)
}

// PrependBOM adds a BOM unconditionally, so StripBOM returns data unchanged
// even when data already starts with one.
func PrependBOM(data []byte) []byte {
	out := make([]byte, 0, len(UTF8BOM)+len(data))
	out = append(out, UTF8BOM...)
	return append(out, data...)
}

// WriteAtomic writes data to a temp file next to path and renames it into
// place, creating parent directories as needed.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// WriteWithBOM writes content prefixed with a single UTF-8 BOM.
func WriteWithBOM(path string, content []byte) error {
	return WriteAtomic(path, WithBOM(content), 0o644)
}
