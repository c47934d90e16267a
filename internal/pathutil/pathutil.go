// Package pathutil holds the path helpers shared by the walker, the exclusion
// policy and the index. Everything here is pure except HomeDir, which reads the
// home directory from the environment.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize returns the canonical form of path used for index keys, checkpoint
// keys and exclusion matching. Bare volume names ("C:") keep a trailing separator.
func Normalize(path string) string {
	if path == "" {
		return ""
	}
	clean := filepath.Clean(path)
	if vol := filepath.VolumeName(clean); vol != "" && vol == clean {
		return clean + string(filepath.Separator)
	}
	return clean
}

// Ext returns the file extension without the leading dot.
// Returns empty string if there is no extension. Dotfiles such as ".bashrc"
// have no extension.
func Ext(name string) string {
	base := filepath.Base(name)
	if strings.LastIndex(base, ".") <= 0 {
		return ""
	}
	return strings.TrimPrefix(filepath.Ext(base), ".")
}

// HomeDir returns the normalized home directory of the current user.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return Normalize(home), nil
}

// UserName derives the user name from a home directory path, e.g. "/home/alice" -> "alice".
func UserName(home string) string {
	base := filepath.Base(Normalize(home))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}

// IsRoot reports whether path is a filesystem root ("/" or "C:\").
func IsRoot(path string) bool {
	clean := Normalize(path)
	return clean != "" && filepath.Dir(clean) == clean
}

// HasAnyPrefix reports whether path starts with any of the given prefixes.
func HasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsWithin reports whether path is dir or lies below it. Unlike HasAnyPrefix it
// respects element boundaries: "/proc" does not contain "/processes".
func IsWithin(path, dir string) bool {
	if dir == "" {
		return false
	}
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// IsWithinAny reports whether path is within any of dirs.
func IsWithinAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		if IsWithin(path, dir) {
			return true
		}
	}
	return false
}
