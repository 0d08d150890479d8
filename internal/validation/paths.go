package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathHandler resolves and validates the filesystem paths verifeed writes
// to, keeping user-supplied overrides inside sane bounds.
type PathHandler struct {
	// MaxPathLength is the maximum allowed path length
	MaxPathLength int
}

func NewPathHandler() *PathHandler {
	return &PathHandler{MaxPathLength: 4096}
}

// DatabasePath returns a validated database path, defaulting to
// ~/.verifeed.db when userPath is empty.
func (ph *PathHandler) DatabasePath(userPath string) (string, error) {
	if userPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(homeDir, ".verifeed.db")
	}
	return ph.sanitize(userPath)
}

// IndexPath returns a validated search index path, defaulting to
// ~/.verifeed/index.bleve when userPath is empty.
func (ph *PathHandler) IndexPath(userPath string) (string, error) {
	if userPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		userPath = filepath.Join(homeDir, ".verifeed", "index.bleve")
	}
	return ph.sanitize(userPath)
}

func (ph *PathHandler) sanitize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if len(path) > ph.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", ph.MaxPathLength)
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains null bytes")
	}

	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}

	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("directory traversal patterns not allowed")
	}
	return cleaned, nil
}
