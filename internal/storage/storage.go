// Package storage holds the pluggable file-storage backend used for
// exhibit assets such as point images.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Adapter stores files under a web-accessible directory.
type Adapter interface {
	// WebDir is the directory files are written to.
	WebDir() string
	// Store writes r under name and returns the public URL of the file.
	Store(name string, r io.Reader) (string, error)
}

// Filesystem writes files to a local directory served at WebURL.
type Filesystem struct {
	webDir string
	webURL string
}

// NewFilesystem creates a filesystem adapter.
func NewFilesystem(webDir, webURL string) *Filesystem {
	return &Filesystem{webDir: webDir, webURL: strings.TrimRight(webURL, "/")}
}

func (f *Filesystem) WebDir() string { return f.webDir }

func (f *Filesystem) Store(name string, r io.Reader) (string, error) {
	clean := filepath.Base(filepath.Clean("/" + name))
	if clean == "/" || clean == "." {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	if err := os.MkdirAll(f.webDir, 0755); err != nil {
		return "", fmt.Errorf("create web dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(f.webDir, clean))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", clean, err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return "", fmt.Errorf("write %s: %w", clean, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", clean, err)
	}
	return f.webURL + "/" + path.Base(clean), nil
}

var (
	mu      sync.RWMutex
	current Adapter = NewFilesystem("./files", "/files")
)

// GetAdapter returns the active adapter.
func GetAdapter() Adapter {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetAdapter swaps the active adapter.
func SetAdapter(a Adapter) {
	mu.Lock()
	defer mu.Unlock()
	current = a
}

// WebDir returns the web directory of the active adapter.
func WebDir() string {
	return GetAdapter().WebDir()
}

// SetWebDir installs a new filesystem adapter rooted at dir, keeping the
// public URL prefix of the current adapter when it is a filesystem one.
func SetWebDir(dir string) {
	mu.Lock()
	defer mu.Unlock()

	webURL := "/files"
	if fs, ok := current.(*Filesystem); ok {
		webURL = fs.webURL
	}
	current = NewFilesystem(dir, webURL)
	logrus.WithField("web_dir", dir).Info("Storage adapter replaced.")
}
