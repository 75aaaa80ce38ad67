package classconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format reads and writes documents for one file encoding. Read returns
// (nil, nil) when the file does not exist; malformed content fails with an
// error matching ErrParse. Write must create missing parent directories and
// replace the target atomically.
type Format interface {
	Read(path string) (*Map, error)
	Write(path string, doc *Map) error

	// Ext returns the canonical file extension, including the dot.
	Ext() string
}

// DetectFormat picks a format from the path's file extension. Unknown or
// missing extensions fall back to TOML.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONFormat()
	case ".yaml", ".yml":
		return NewYAMLFormat()
	default:
		return NewTOMLFormat()
	}
}

// atomicWriteFile writes data to path via a temp file in the same directory
// followed by a rename, creating parent directories as needed. A crash
// mid-write never corrupts a previously valid file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// readFileOrAbsent returns the file content, or (nil, nil) when the file
// does not exist.
func readFileOrAbsent(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	return data, nil
}
